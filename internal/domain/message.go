package domain

import (
	"context"
	"time"
)

// MessageType is the content kind of a normalized message.
type MessageType string

const (
	MessageTypeText      MessageType = "TEXT"
	MessageTypePhoto     MessageType = "PHOTO"
	MessageTypeVideo     MessageType = "VIDEO"
	MessageTypeAudio     MessageType = "AUDIO"
	MessageTypeDocument  MessageType = "DOCUMENT"
	MessageTypeVoiceNote MessageType = "VOICE_NOTE"
	MessageTypeVideoNote MessageType = "VIDEO_NOTE"
	MessageTypeSticker   MessageType = "STICKER"
	MessageTypeAnimation MessageType = "ANIMATION"
	MessageTypeUnknown   MessageType = "UNKNOWN"
)

// Message is a normalized chat message.
type Message struct {
	ExternalID       int64       `json:"message_id"`
	SenderID         *int64      `json:"sender_id"`
	Timestamp        time.Time   `json:"date_time"`
	Type             MessageType `json:"type"`
	Text             string      `json:"text"`
	ReplyToText      *string     `json:"reply_to_text"`
	ReplyToMessageID *int64      `json:"reply_to_message_id"`
}

// StoredMessage is a message persisted for a chat and topic.
type StoredMessage struct {
	ID        string    `json:"id"`
	ChatID    int64     `json:"chat_id"`
	TopicID   int64     `json:"topic_id"`
	Message   Message   `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageRepository stores normalized messages keyed by
// (chat id, topic id, external id). Topic id 0 means chat wide.
type MessageRepository interface {
	// Save inserts the message unless one with the same key exists.
	// It reports whether a row was inserted.
	Save(ctx context.Context, chatID, topicID int64, message *Message) (bool, error)
	SaveAll(ctx context.Context, chatID, topicID int64, messages []Message) (int, error)
	FindEarliest(ctx context.Context, chatID, topicID int64) (*StoredMessage, error)
	FindLatest(ctx context.Context, chatID, topicID int64) (*StoredMessage, error)
	DeleteFrom(ctx context.Context, chatID, topicID int64, from time.Time) (int64, error)
	FindFrom(ctx context.Context, chatID, topicID int64, from time.Time) ([]*StoredMessage, error)
}
