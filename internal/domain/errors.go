package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrChatNotIdentified       = errors.New("neither chat id nor chat name was provided")
	ErrChatResolutionAmbiguous = errors.New("chat name matches more than one chat")
	ErrChatNotFound            = errors.New("chat not found")
	ErrTopicNotFound           = errors.New("topic not found")
	ErrRemoteFetch             = errors.New("remote fetch failed")
	ErrInvalidInput            = errors.New("invalid input")
	ErrMessageNotFound         = errors.New("message not found")
	ErrStoreUnavailable        = errors.New("message store is not configured")
	ErrQueueUnavailable        = errors.New("job queue is not configured")
)

// ChatResolutionAmbiguousError lists the chats a private name part matched.
type ChatResolutionAmbiguousError struct {
	Query      string
	Candidates []ChatInfo
}

func (e *ChatResolutionAmbiguousError) Error() string {
	titles := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		titles = append(titles, fmt.Sprintf("%q (%d)", c.Title, c.ID))
	}
	return fmt.Sprintf("chat name %q matches %d chats: %s", e.Query, len(e.Candidates), strings.Join(titles, ", "))
}

func (e *ChatResolutionAmbiguousError) Is(target error) bool {
	return target == ErrChatResolutionAmbiguous
}

// TopicNotFoundError is returned when a topic name part matched nothing in a
// chat that has topics.
type TopicNotFoundError struct {
	ChatID int64
	Query  string
}

func (e *TopicNotFoundError) Error() string {
	return fmt.Sprintf("topic %q not found in chat %d", e.Query, e.ChatID)
}

func (e *TopicNotFoundError) Is(target error) bool {
	return target == ErrTopicNotFound
}

// RemoteFetchError wraps a failed call to the Telegram backend.
type RemoteFetchError struct {
	ChatID int64
	Op     string
	Err    error
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("%s for chat %d: %v", e.Op, e.ChatID, e.Err)
}

func (e *RemoteFetchError) Is(target error) bool {
	return target == ErrRemoteFetch
}

func (e *RemoteFetchError) Unwrap() error {
	return e.Err
}
