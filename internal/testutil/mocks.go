// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the collector.
package testutil

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"tg-chats-collector/internal/domain"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
)

type messageKey struct {
	chatID, topicID, externalID int64
}

// MockMessageRepository implements domain.MessageRepository in memory
type MockMessageRepository struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	SaveFunc         func(ctx context.Context, chatID, topicID int64, message *domain.Message) (bool, error)
	SaveAllFunc      func(ctx context.Context, chatID, topicID int64, messages []domain.Message) (int, error)
	FindEarliestFunc func(ctx context.Context, chatID, topicID int64) (*domain.StoredMessage, error)
	FindLatestFunc   func(ctx context.Context, chatID, topicID int64) (*domain.StoredMessage, error)
	DeleteFromFunc   func(ctx context.Context, chatID, topicID int64, from time.Time) (int64, error)
	FindFromFunc     func(ctx context.Context, chatID, topicID int64, from time.Time) ([]*domain.StoredMessage, error)

	// In-memory storage
	Messages map[messageKey]*domain.StoredMessage
	seq      int
}

// NewMockMessageRepository creates a new MockMessageRepository with initialized maps
func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		Messages: make(map[messageKey]*domain.StoredMessage),
	}
}

func (m *MockMessageRepository) Save(ctx context.Context, chatID, topicID int64, message *domain.Message) (bool, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, chatID, topicID, message)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(chatID, topicID, *message), nil
}

func (m *MockMessageRepository) SaveAll(ctx context.Context, chatID, topicID int64, messages []domain.Message) (int, error) {
	if m.SaveAllFunc != nil {
		return m.SaveAllFunc(ctx, chatID, topicID, messages)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, msg := range messages {
		if m.insert(chatID, topicID, msg) {
			inserted++
		}
	}
	return inserted, nil
}

func (m *MockMessageRepository) insert(chatID, topicID int64, msg domain.Message) bool {
	key := messageKey{chatID, topicID, msg.ExternalID}
	if _, ok := m.Messages[key]; ok {
		return false
	}
	m.seq++
	m.Messages[key] = &domain.StoredMessage{
		ID:        fmt.Sprintf("stored-%d", m.seq),
		ChatID:    chatID,
		TopicID:   topicID,
		Message:   msg,
		CreatedAt: time.Now(),
	}
	return true
}

// sorted returns copies of the stored messages of a chat and topic, oldest first
func (m *MockMessageRepository) sorted(chatID, topicID int64) []*domain.StoredMessage {
	out := make([]*domain.StoredMessage, 0)
	for key, msg := range m.Messages {
		if key.chatID == chatID && key.topicID == topicID {
			copied := *msg
			out = append(out, &copied)
		}
	}
	slices.SortFunc(out, func(a, b *domain.StoredMessage) int {
		if c := a.Message.Timestamp.Compare(b.Message.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Message.ExternalID, b.Message.ExternalID)
	})
	return out
}

func (m *MockMessageRepository) FindEarliest(ctx context.Context, chatID, topicID int64) (*domain.StoredMessage, error) {
	if m.FindEarliestFunc != nil {
		return m.FindEarliestFunc(ctx, chatID, topicID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sorted(chatID, topicID)
	if len(all) == 0 {
		return nil, domain.ErrMessageNotFound
	}
	return all[0], nil
}

func (m *MockMessageRepository) FindLatest(ctx context.Context, chatID, topicID int64) (*domain.StoredMessage, error) {
	if m.FindLatestFunc != nil {
		return m.FindLatestFunc(ctx, chatID, topicID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sorted(chatID, topicID)
	if len(all) == 0 {
		return nil, domain.ErrMessageNotFound
	}
	return all[len(all)-1], nil
}

func (m *MockMessageRepository) DeleteFrom(ctx context.Context, chatID, topicID int64, from time.Time) (int64, error) {
	if m.DeleteFromFunc != nil {
		return m.DeleteFromFunc(ctx, chatID, topicID, from)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for key, msg := range m.Messages {
		if key.chatID == chatID && key.topicID == topicID && !msg.Message.Timestamp.Before(from) {
			delete(m.Messages, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockMessageRepository) FindFrom(ctx context.Context, chatID, topicID int64, from time.Time) ([]*domain.StoredMessage, error) {
	if m.FindFromFunc != nil {
		return m.FindFromFunc(ctx, chatID, topicID, from)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.StoredMessage, 0)
	for _, msg := range m.sorted(chatID, topicID) {
		if !msg.Message.Timestamp.Before(from) {
			out = append(out, msg)
		}
	}
	return out, nil
}

// Count returns the number of stored messages
func (m *MockMessageRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Messages)
}

// MockChatCache implements domain.ChatCache in memory
type MockChatCache struct {
	mu sync.RWMutex

	GetChatFunc func(ctx context.Context, key string) (*domain.ChatInfo, error)
	SetChatFunc func(ctx context.Context, key string, chat *domain.ChatInfo) error

	Entries map[string]domain.ChatInfo
}

// NewMockChatCache creates an empty MockChatCache
func NewMockChatCache() *MockChatCache {
	return &MockChatCache{Entries: make(map[string]domain.ChatInfo)}
}

func (m *MockChatCache) GetChat(ctx context.Context, key string) (*domain.ChatInfo, error) {
	if m.GetChatFunc != nil {
		return m.GetChatFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	chat, ok := m.Entries[key]
	if !ok {
		return nil, nil
	}
	return &chat, nil
}

func (m *MockChatCache) SetChat(ctx context.Context, key string, chat *domain.ChatInfo) error {
	if m.SetChatFunc != nil {
		return m.SetChatFunc(ctx, key, chat)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries[key] = *chat
	return nil
}

// MockJobQueue records enqueued collect jobs
type MockJobQueue struct {
	mu sync.RWMutex

	EnqueueFunc func(ctx context.Context, job *domain.CollectJob) error

	Jobs []*domain.CollectJob
}

func (m *MockJobQueue) EnqueueCollectJob(ctx context.Context, job *domain.CollectJob) error {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs = append(m.Jobs, job)
	return nil
}

// GetJobs returns a copy of the enqueued jobs
func (m *MockJobQueue) GetJobs() []*domain.CollectJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.CollectJob{}, m.Jobs...)
}
