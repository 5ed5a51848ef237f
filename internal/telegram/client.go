// Package telegram defines the remote backend the collector reads chat history
// from and a client for a TDLib JSON gateway.
package telegram

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned for TDLib 404 errors.
var ErrNotFound = errors.New("telegram: not found")

// Client is the set of TDLib functions the collector calls.
// All methods block until TDLib answers or ctx is done.
type Client interface {
	GetMe(ctx context.Context) (*User, error)
	GetChat(ctx context.Context, chatID int64) (*Chat, error)
	SearchPublicChat(ctx context.Context, username string) (*Chat, error)
	GetChats(ctx context.Context, list ChatList, limit int32) ([]int64, error)
	GetSupergroup(ctx context.Context, supergroupID int64) (*Supergroup, error)
	GetForumTopics(ctx context.Context, chatID int64, query string, limit int32) ([]ForumTopic, error)
	GetForumTopic(ctx context.Context, chatID, messageThreadID int64) (*ForumTopic, error)
	GetChatHistory(ctx context.Context, chatID, fromMessageID int64, offset, limit int32, onlyLocal bool) (*Messages, error)
	GetMessageThreadHistory(ctx context.Context, chatID, messageID, fromMessageID int64, offset, limit int32) (*Messages, error)
	GetMessage(ctx context.Context, chatID, messageID int64) (*Message, error)
	OpenChat(ctx context.Context, chatID int64) error
	CloseChat(ctx context.Context, chatID int64) error
}

// Error is a TDLib error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("telegram error %d: %s", e.Code, e.Message)
}

// Is makes TDLib 404 errors match ErrNotFound.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Code == 404
}
