package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tg-chats-collector/internal/collector"
	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
)

// SearchHistoryRequest selects the messages of one chat, optionally one
// topic, sent since DateFrom.
type SearchHistoryRequest struct {
	ChatID   int64
	TopicID  int64
	DateFrom time.Time
}

// SearchHistoryResult is the outcome of SearchHistory.
type SearchHistoryResult struct {
	ChatID         int64            `json:"chat_id"`
	ChatTitle      string           `json:"chat_title"`
	ChatPublicName string           `json:"chat_public_name,omitempty"`
	TopicID        *int64           `json:"topic_id"`
	TopicName      *string          `json:"topic_name"`
	TotalCount     int              `json:"total_count"`
	Messages       []domain.Message `json:"messages"`
}

// ChatHistoryRequest selects a chat by name and a window of its history.
type ChatHistoryRequest struct {
	PublicChatName      string
	PrivateChatNamePart string
	TopicNamePart       string
	// Limit is used when DateFrom is nil; 0 uses the configured default.
	Limit    int
	DateFrom *time.Time
	DateTo   *time.Time
}

// ChatHistoryResult is the outcome of ChatHistory.
type ChatHistoryResult struct {
	ChatID               int64             `json:"chat_id"`
	ChatTitle            string            `json:"chat_title"`
	ChatPublicName       string            `json:"chat_public_name,omitempty"`
	TopicID              *int64            `json:"topic_id"`
	TopicName            *string           `json:"topic_name"`
	FirstMessageDateTime *time.Time        `json:"first_message_date_time"`
	LastMessageDateTime  *time.Time        `json:"last_message_date_time"`
	TotalCount           int               `json:"total_count"`
	MessageBatches       []collector.Batch `json:"message_batches"`
}

// BatchPublisher hands collected batches to downstream consumers.
type BatchPublisher interface {
	PublishBatches(ctx context.Context, jobID string, result *ChatHistoryResult) error
}

// HistoryService runs the history use cases on top of the collection engine.
type HistoryService struct {
	resolver  *ChatResolver
	engine    *collector.Engine
	packer    *collector.Packer
	cfg       collector.Config
	store     domain.MessageRepository
	publisher BatchPublisher
}

// HistoryOption configures optional collaborators of a HistoryService.
type HistoryOption func(*HistoryService)

// WithStore persists collected messages to repo.
func WithStore(repo domain.MessageRepository) HistoryOption {
	return func(s *HistoryService) { s.store = repo }
}

// WithPublisher publishes chat history batches through p.
func WithPublisher(p BatchPublisher) HistoryOption {
	return func(s *HistoryService) { s.publisher = p }
}

func NewHistoryService(resolver *ChatResolver, engine *collector.Engine, cfg collector.Config, opts ...HistoryOption) *HistoryService {
	s := &HistoryService{
		resolver: resolver,
		engine:   engine,
		packer:   collector.NewPacker(),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchHistory collects every message sent since DateFrom in descriptive
// mode. The messages are persisted when a store is configured; a failed
// save is logged and does not fail the search.
func (s *HistoryService) SearchHistory(ctx context.Context, req SearchHistoryRequest) (*SearchHistoryResult, error) {
	if req.ChatID == 0 {
		return nil, domain.ErrChatNotIdentified
	}
	if req.DateFrom.IsZero() {
		return nil, fmt.Errorf("%w: date from is required", domain.ErrInvalidInput)
	}

	ctx = observability.WithChatID(ctx, req.ChatID)
	log := observability.FromContext(ctx)

	chat, err := s.resolver.ByID(ctx, req.ChatID)
	if err != nil {
		return nil, err
	}

	var topic *domain.TopicInfo
	if req.TopicID != 0 {
		topic, err = s.resolver.TopicByID(ctx, chat.ID, req.TopicID)
		if err != nil {
			return nil, err
		}
	}

	from := req.DateFrom.UTC()
	messages, err := s.engine.Collect(ctx, collector.Request{
		ChatID:   chat.ID,
		Topic:    topic,
		DateFrom: &from,
		Mode:     collector.ModeDescriptive,
	})
	if err != nil {
		return nil, err
	}

	if s.store != nil && len(messages) > 0 {
		saved, err := s.store.SaveAll(ctx, chat.ID, topic.ID(), messages)
		if err != nil {
			log.Error("failed to persist messages", slog.String("error", err.Error()))
		} else {
			log.Info("persisted messages", slog.Int("saved", saved), slog.Int("collected", len(messages)))
		}
	}

	result := &SearchHistoryResult{
		ChatID:         chat.ID,
		ChatTitle:      chat.Title,
		ChatPublicName: chat.PublicName,
		TotalCount:     len(messages),
		Messages:       messages,
	}
	result.TopicID, result.TopicName = topicFields(topic)
	return result, nil
}

// ChatHistory collects a chat in strict mode, drops messages without text
// and packs the rest into size-bounded batches.
func (s *HistoryService) ChatHistory(ctx context.Context, req ChatHistoryRequest) (*ChatHistoryResult, error) {
	return s.chatHistory(ctx, "", req)
}

func (s *HistoryService) chatHistory(ctx context.Context, jobID string, req ChatHistoryRequest) (*ChatHistoryResult, error) {
	if req.PublicChatName == "" && req.PrivateChatNamePart == "" && req.TopicNamePart == "" {
		return nil, fmt.Errorf("%w: public chat name, private chat name part and topic name part are all empty", domain.ErrChatNotIdentified)
	}
	if req.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidInput)
	}
	if req.DateFrom != nil && req.DateTo != nil && req.DateTo.Before(*req.DateFrom) {
		return nil, fmt.Errorf("%w: date to is before date from", domain.ErrInvalidInput)
	}

	chat, err := s.resolver.Resolve(ctx, domain.ChatReference{
		PublicName:          req.PublicChatName,
		PrivateChatNamePart: req.PrivateChatNamePart,
	})
	if err != nil {
		return nil, err
	}

	ctx = observability.WithChatID(ctx, chat.ID)

	var topic *domain.TopicInfo
	if req.TopicNamePart != "" {
		topic, err = s.resolver.TopicByName(ctx, chat.ID, req.TopicNamePart)
		if err != nil {
			return nil, err
		}
	}

	messages, err := s.engine.Collect(ctx, collector.Request{
		ChatID:   chat.ID,
		Topic:    topic,
		Limit:    req.Limit,
		DateFrom: utcPtr(req.DateFrom),
		DateTo:   utcPtr(req.DateTo),
		Mode:     collector.ModeStrict,
	})
	if err != nil {
		return nil, err
	}
	messages = collector.DropEmpty(messages)

	batches := s.packer.Pack(ctx, messages, s.cfg.MaxBatchBytes)

	result := &ChatHistoryResult{
		ChatID:         chat.ID,
		ChatTitle:      chat.Title,
		ChatPublicName: chat.PublicName,
		TotalCount:     collector.TotalCount(batches),
		MessageBatches: batches,
	}
	result.TopicID, result.TopicName = topicFields(topic)
	if len(messages) > 0 {
		first, last := messages[0].Timestamp, messages[len(messages)-1].Timestamp
		result.FirstMessageDateTime, result.LastMessageDateTime = &first, &last
	}

	if s.publisher != nil && len(batches) > 0 {
		if err := s.publisher.PublishBatches(ctx, jobID, result); err != nil {
			observability.FromContext(ctx).Error("failed to publish batches",
				slog.Int("batches", len(batches)),
				slog.String("error", err.Error()))
		}
	}

	return result, nil
}

// StoredHistory reads persisted messages sent since from, oldest first, with
// timestamps in the display zone.
func (s *HistoryService) StoredHistory(ctx context.Context, chatID, topicID int64, from time.Time) ([]*domain.StoredMessage, error) {
	if s.store == nil {
		return nil, domain.ErrStoreUnavailable
	}
	if chatID == 0 {
		return nil, domain.ErrChatNotIdentified
	}

	messages, err := s.store.FindFrom(ctx, chatID, topicID, from.UTC())
	if err != nil {
		return nil, err
	}

	zone := s.cfg.DisplayZone()
	for _, m := range messages {
		m.Message.Timestamp = m.Message.Timestamp.In(zone)
	}
	return messages, nil
}

func topicFields(topic *domain.TopicInfo) (*int64, *string) {
	if topic == nil {
		return nil, nil
	}
	id, title := topic.TopicID, topic.Title
	return &id, &title
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
