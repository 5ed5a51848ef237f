package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/telegram"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// BaseTime is the default date of fixture messages.
var BaseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// MessageOptions allows customizing raw message fixture creation
type MessageOptions struct {
	ID             int64
	Date           time.Time
	Sender         telegram.Sender
	Content        telegram.Content
	ReplyTo        telegram.ReplyTo
	IsTopicMessage bool
}

// NewTelegramMessage creates a raw text message with sensible defaults
func NewTelegramMessage(opts ...func(*MessageOptions)) *telegram.Message {
	id := idCounter.Add(1)
	o := &MessageOptions{
		ID:      id,
		Date:    BaseTime,
		Sender:  telegram.SenderUser{UserID: 100},
		Content: telegram.Text{Text: fmt.Sprintf("message %d", id)},
	}

	for _, opt := range opts {
		opt(o)
	}

	return &telegram.Message{
		ID:             o.ID,
		SenderID:       o.Sender,
		Date:           int32(o.Date.Unix()),
		Content:        o.Content,
		ReplyTo:        o.ReplyTo,
		IsTopicMessage: o.IsTopicMessage,
	}
}

// WithID sets the message ID
func WithID(id int64) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.ID = id
	}
}

// WithDate sets the message date
func WithDate(t time.Time) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.Date = t
	}
}

// WithText sets text content
func WithText(text string) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.Content = telegram.Text{Text: text}
	}
}

// WithContent sets arbitrary content
func WithContent(content telegram.Content) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.Content = content
	}
}

// WithSender sets the sender
func WithSender(sender telegram.Sender) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.Sender = sender
	}
}

// WithReplyTo makes the message a reply to messageID in the same chat
func WithReplyTo(messageID int64) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.ReplyTo = telegram.ReplyToMessage{MessageID: messageID}
	}
}

// InTopic flags the message as belonging to a named thread
func InTopic() func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.IsTopicMessage = true
	}
}

// TextMessages creates count text messages with ids firstID, firstID+1, ...
// dated start, start+step, ... so higher ids are newer.
func TextMessages(count int, firstID int64, start time.Time, step time.Duration) []*telegram.Message {
	messages := make([]*telegram.Message, 0, count)
	for i := 0; i < count; i++ {
		id := firstID + int64(i)
		messages = append(messages, NewTelegramMessage(
			WithID(id),
			WithDate(start.Add(time.Duration(i)*step)),
			WithText(fmt.Sprintf("message %d", id)),
		))
	}
	return messages
}

// NewChat creates a raw chat of the given type
func NewChat(id int64, title string, chatType telegram.ChatType) *telegram.Chat {
	return &telegram.Chat{ID: id, Title: title, Type: chatType}
}

// DomainMessageOptions allows customizing normalized message fixture creation
type DomainMessageOptions struct {
	ExternalID  int64
	SenderID    *int64
	Timestamp   time.Time
	Text        string
	ReplyToText *string
	ReplyToID   *int64
}

// NewDomainMessage creates a normalized message with sensible defaults
func NewDomainMessage(opts ...func(*DomainMessageOptions)) domain.Message {
	id := idCounter.Add(1)
	sender := int64(100)
	o := &DomainMessageOptions{
		ExternalID: id,
		SenderID:   &sender,
		Timestamp:  BaseTime,
		Text:       fmt.Sprintf("message %d", id),
	}

	for _, opt := range opts {
		opt(o)
	}

	return domain.Message{
		ExternalID:       o.ExternalID,
		SenderID:         o.SenderID,
		Timestamp:        o.Timestamp,
		Type:             domain.MessageTypeText,
		Text:             o.Text,
		ReplyToText:      o.ReplyToText,
		ReplyToMessageID: o.ReplyToID,
	}
}

// WithExternalID sets the external message ID
func WithExternalID(id int64) func(*DomainMessageOptions) {
	return func(o *DomainMessageOptions) {
		o.ExternalID = id
	}
}

// WithTimestamp sets the normalized timestamp
func WithTimestamp(t time.Time) func(*DomainMessageOptions) {
	return func(o *DomainMessageOptions) {
		o.Timestamp = t
	}
}

// WithMessageText sets the normalized text
func WithMessageText(text string) func(*DomainMessageOptions) {
	return func(o *DomainMessageOptions) {
		o.Text = text
	}
}

// WithReply sets the reply preview
func WithReply(id int64, text string) func(*DomainMessageOptions) {
	return func(o *DomainMessageOptions) {
		o.ReplyToID = &id
		o.ReplyToText = &text
	}
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
