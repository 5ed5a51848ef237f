package domain

import "time"

// CollectJob asks a worker to run a chat history collection and publish the
// resulting batches.
type CollectJob struct {
	ID                  string     `json:"id"`
	PublicChatName      string     `json:"public_chat_name,omitempty"`
	PrivateChatNamePart string     `json:"private_chat_name_part,omitempty"`
	TopicNamePart       string     `json:"topic_name_part,omitempty"`
	Limit               int        `json:"limit,omitempty"`
	DateFrom            *time.Time `json:"date_from,omitempty"`
	DateTo              *time.Time `json:"date_to,omitempty"`
	RequestedAt         time.Time  `json:"requested_at"`
}

// Chat returns the chat reference of the job.
func (j *CollectJob) Chat() ChatReference {
	return ChatReference{PublicName: j.PublicChatName, PrivateChatNamePart: j.PrivateChatNamePart}
}
