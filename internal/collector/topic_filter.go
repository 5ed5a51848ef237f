package collector

import (
	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/telegram"
)

// BelongsToScope reports whether msg is in the requested topic scope.
// A nil topic is chat wide. The general topic excludes thread messages.
// A specific topic always passes: the fetcher already asked for that thread.
func BelongsToScope(msg *telegram.Message, topic *domain.TopicInfo) bool {
	if topic == nil {
		return true
	}
	if topic.IsGeneral {
		return !msg.IsTopicMessage
	}
	return true
}

// isThreadScoped reports whether history must be read from a topic thread
// instead of the chat.
func isThreadScoped(topic *domain.TopicInfo) bool {
	return topic != nil && !topic.IsGeneral
}
