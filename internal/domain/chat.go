package domain

import "context"

// ChatType is the display kind of a chat.
type ChatType string

const (
	ChatTypePrivate    ChatType = "private"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
	ChatTypeSecret     ChatType = "secret"
	ChatTypeUndefined  ChatType = "undefined"
)

// ChatInfo is a resolved chat.
type ChatInfo struct {
	ID         int64    `json:"id"`
	PublicName string   `json:"public_name,omitempty"`
	Type       ChatType `json:"type"`
	Title      string   `json:"title"`
}

// TopicInfo is a resolved forum topic. The general topic stands for messages
// not anchored to any named thread.
type TopicInfo struct {
	IsGeneral     bool   `json:"is_general"`
	TopicID       int64  `json:"topic_id"`
	Title         string `json:"title"`
	LastMessageID int64  `json:"last_message_id"`
}

// ID returns the topic id, or 0 for a nil topic (chat wide).
func (t *TopicInfo) ID() int64 {
	if t == nil {
		return 0
	}
	return t.TopicID
}

// ChatSummary is one entry of the last chats list.
type ChatSummary struct {
	ChatID int64    `json:"chat_id"`
	Type   ChatType `json:"type"`
	Title  string   `json:"title"`
}

// ChatReference identifies a chat by exactly one of its id, public name or
// a part of its private title. The first non-empty field in that order wins.
type ChatReference struct {
	ID                  int64
	PublicName          string
	PrivateChatNamePart string
}

// IsEmpty reports whether no identification path is set.
func (r ChatReference) IsEmpty() bool {
	return r.ID == 0 && r.PublicName == "" && r.PrivateChatNamePart == ""
}

// TopicReference identifies a topic by id or by a part of its name.
type TopicReference struct {
	ID       int64
	NamePart string
}

// IsEmpty reports whether no topic was requested.
func (r TopicReference) IsEmpty() bool {
	return r.ID == 0 && r.NamePart == ""
}

// ChatMatch is a chat found by a search, with the topics that matched the
// optional topic name part.
type ChatMatch struct {
	Chat   ChatInfo    `json:"chat"`
	Topics []TopicInfo `json:"topics"`
}

// ChatCache keeps resolved chats between requests. GetChat returns nil and
// no error on a miss.
type ChatCache interface {
	GetChat(ctx context.Context, key string) (*ChatInfo, error)
	SetChat(ctx context.Context, key string, chat *ChatInfo) error
}
