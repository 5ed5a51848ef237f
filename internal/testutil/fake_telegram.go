package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tg-chats-collector/internal/telegram"
)

// FakeTelegramClient implements telegram.Client over in-memory chats.
//
// History pages follow TDLib: from_message_id 0 starts at the newest
// message, otherwise the page starts at from_message_id itself (inclusive)
// and walks older. Consecutive pages therefore overlap by one message.
type FakeTelegramClient struct {
	mu sync.Mutex

	// Function overrides - set these to customize behavior
	GetMeFunc                   func(ctx context.Context) (*telegram.User, error)
	GetChatFunc                 func(ctx context.Context, chatID int64) (*telegram.Chat, error)
	SearchPublicChatFunc        func(ctx context.Context, username string) (*telegram.Chat, error)
	GetChatsFunc                func(ctx context.Context, list telegram.ChatList, limit int32) ([]int64, error)
	GetSupergroupFunc           func(ctx context.Context, supergroupID int64) (*telegram.Supergroup, error)
	GetForumTopicsFunc          func(ctx context.Context, chatID int64, query string, limit int32) ([]telegram.ForumTopic, error)
	GetForumTopicFunc           func(ctx context.Context, chatID, messageThreadID int64) (*telegram.ForumTopic, error)
	GetChatHistoryFunc          func(ctx context.Context, chatID, fromMessageID int64, offset, limit int32, onlyLocal bool) (*telegram.Messages, error)
	GetMessageThreadHistoryFunc func(ctx context.Context, chatID, messageID, fromMessageID int64, offset, limit int32) (*telegram.Messages, error)
	GetMessageFunc              func(ctx context.Context, chatID, messageID int64) (*telegram.Message, error)
	OpenChatFunc                func(ctx context.Context, chatID int64) error
	CloseChatFunc               func(ctx context.Context, chatID int64) error

	// In-memory state
	Chats       map[int64]*telegram.Chat
	Usernames   map[string]int64
	Supergroups map[int64]*telegram.Supergroup
	ChatLists   map[telegram.ChatList][]int64
	Topics      map[int64][]telegram.ForumTopic
	// History holds the messages of each chat; order does not matter.
	History map[int64][]*telegram.Message
	// Threads holds topic thread messages keyed by chat id, then by the
	// topic's last message id.
	Threads map[int64]map[int64][]*telegram.Message

	// Call tracking
	Calls         map[string]int
	OpenedChats   []int64
	ClosedChats   []int64
	HistoryCursor []int64
}

// NewFakeTelegramClient creates a FakeTelegramClient with initialized maps
func NewFakeTelegramClient() *FakeTelegramClient {
	return &FakeTelegramClient{
		Chats:       make(map[int64]*telegram.Chat),
		Usernames:   make(map[string]int64),
		Supergroups: make(map[int64]*telegram.Supergroup),
		ChatLists:   make(map[telegram.ChatList][]int64),
		Topics:      make(map[int64][]telegram.ForumTopic),
		History:     make(map[int64][]*telegram.Message),
		Threads:     make(map[int64]map[int64][]*telegram.Message),
		Calls:       make(map[string]int),
	}
}

// AddChat registers a chat, optionally reachable by public username.
// Usernames match case-insensitively, as in Telegram.
func (f *FakeTelegramClient) AddChat(chat *telegram.Chat, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Chats[chat.ID] = chat
	if username != "" {
		f.Usernames[strings.ToLower(trimAt(username))] = chat.ID
	}
}

// AddMessages appends messages to the chat history, setting their chat id.
func (f *FakeTelegramClient) AddMessages(chatID int64, messages ...*telegram.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range messages {
		m.ChatID = chatID
	}
	f.History[chatID] = append(f.History[chatID], messages...)
}

// AddThreadMessages appends messages to a topic thread. They are also part
// of the chat history.
func (f *FakeTelegramClient) AddThreadMessages(chatID, topicLastMessageID int64, messages ...*telegram.Message) {
	f.mu.Lock()
	if f.Threads[chatID] == nil {
		f.Threads[chatID] = make(map[int64][]*telegram.Message)
	}
	for _, m := range messages {
		m.ChatID = chatID
		m.IsTopicMessage = true
	}
	f.Threads[chatID][topicLastMessageID] = append(f.Threads[chatID][topicLastMessageID], messages...)
	f.mu.Unlock()

	f.AddMessages(chatID, messages...)
}

// CallCount returns how many times method was called
func (f *FakeTelegramClient) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

func (f *FakeTelegramClient) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[method]++
}

func (f *FakeTelegramClient) GetMe(ctx context.Context) (*telegram.User, error) {
	f.record("getMe")
	if f.GetMeFunc != nil {
		return f.GetMeFunc(ctx)
	}
	return &telegram.User{ID: 1, FirstName: "Collector"}, nil
}

func (f *FakeTelegramClient) GetChat(ctx context.Context, chatID int64) (*telegram.Chat, error) {
	f.record("getChat")
	if f.GetChatFunc != nil {
		return f.GetChatFunc(ctx, chatID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if chat, ok := f.Chats[chatID]; ok {
		return chat, nil
	}
	return nil, notFound("Chat not found")
}

func (f *FakeTelegramClient) SearchPublicChat(ctx context.Context, username string) (*telegram.Chat, error) {
	f.record("searchPublicChat")
	if f.SearchPublicChatFunc != nil {
		return f.SearchPublicChatFunc(ctx, username)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if id, ok := f.Usernames[strings.ToLower(trimAt(username))]; ok {
		return f.Chats[id], nil
	}
	return nil, notFound("Chat not found")
}

func (f *FakeTelegramClient) GetChats(ctx context.Context, list telegram.ChatList, limit int32) ([]int64, error) {
	f.record("getChats")
	if f.GetChatsFunc != nil {
		return f.GetChatsFunc(ctx, list, limit)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := f.ChatLists[list]
	if limit > 0 && int(limit) < len(ids) {
		ids = ids[:limit]
	}
	return append([]int64{}, ids...), nil
}

func (f *FakeTelegramClient) GetSupergroup(ctx context.Context, supergroupID int64) (*telegram.Supergroup, error) {
	f.record("getSupergroup")
	if f.GetSupergroupFunc != nil {
		return f.GetSupergroupFunc(ctx, supergroupID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if sg, ok := f.Supergroups[supergroupID]; ok {
		return sg, nil
	}
	return &telegram.Supergroup{ID: supergroupID}, nil
}

func (f *FakeTelegramClient) GetForumTopics(ctx context.Context, chatID int64, query string, limit int32) ([]telegram.ForumTopic, error) {
	f.record("getForumTopics")
	if f.GetForumTopicsFunc != nil {
		return f.GetForumTopicsFunc(ctx, chatID, query, limit)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]telegram.ForumTopic{}, f.Topics[chatID]...), nil
}

func (f *FakeTelegramClient) GetForumTopic(ctx context.Context, chatID, messageThreadID int64) (*telegram.ForumTopic, error) {
	f.record("getForumTopic")
	if f.GetForumTopicFunc != nil {
		return f.GetForumTopicFunc(ctx, chatID, messageThreadID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, topic := range f.Topics[chatID] {
		if topic.MessageThreadID == messageThreadID {
			return &topic, nil
		}
	}
	return nil, notFound("Topic not found")
}

func (f *FakeTelegramClient) GetChatHistory(ctx context.Context, chatID, fromMessageID int64, offset, limit int32, onlyLocal bool) (*telegram.Messages, error) {
	f.record("getChatHistory")
	f.mu.Lock()
	f.HistoryCursor = append(f.HistoryCursor, fromMessageID)
	f.mu.Unlock()

	if f.GetChatHistoryFunc != nil {
		return f.GetChatHistoryFunc(ctx, chatID, fromMessageID, offset, limit, onlyLocal)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return page(f.History[chatID], fromMessageID, limit), nil
}

func (f *FakeTelegramClient) GetMessageThreadHistory(ctx context.Context, chatID, messageID, fromMessageID int64, offset, limit int32) (*telegram.Messages, error) {
	f.record("getMessageThreadHistory")
	f.mu.Lock()
	f.HistoryCursor = append(f.HistoryCursor, fromMessageID)
	f.mu.Unlock()

	if f.GetMessageThreadHistoryFunc != nil {
		return f.GetMessageThreadHistoryFunc(ctx, chatID, messageID, fromMessageID, offset, limit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return page(f.Threads[chatID][messageID], fromMessageID, limit), nil
}

func (f *FakeTelegramClient) GetMessage(ctx context.Context, chatID, messageID int64) (*telegram.Message, error) {
	f.record("getMessage")
	if f.GetMessageFunc != nil {
		return f.GetMessageFunc(ctx, chatID, messageID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, m := range f.History[chatID] {
		if m.ID == messageID {
			return m, nil
		}
	}
	return nil, notFound("Message not found")
}

func (f *FakeTelegramClient) OpenChat(ctx context.Context, chatID int64) error {
	f.record("openChat")
	if f.OpenChatFunc != nil {
		return f.OpenChatFunc(ctx, chatID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OpenedChats = append(f.OpenedChats, chatID)
	return nil
}

func (f *FakeTelegramClient) CloseChat(ctx context.Context, chatID int64) error {
	f.record("closeChat")
	if f.CloseChatFunc != nil {
		return f.CloseChatFunc(ctx, chatID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ClosedChats = append(f.ClosedChats, chatID)
	return nil
}

// page returns up to limit messages with id <= from (any id when from is 0),
// newest first.
func page(messages []*telegram.Message, from int64, limit int32) *telegram.Messages {
	sorted := append([]*telegram.Message{}, messages...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })

	out := &telegram.Messages{TotalCount: int32(len(sorted)), Messages: make([]*telegram.Message, 0, limit)}
	for _, m := range sorted {
		if from != 0 && m.ID > from {
			continue
		}
		if int32(len(out.Messages)) >= limit {
			break
		}
		out.Messages = append(out.Messages, m)
	}
	return out
}

func notFound(message string) error {
	return &telegram.Error{Code: 404, Message: message}
}

func trimAt(username string) string {
	if len(username) > 0 && username[0] == '@' {
		return username[1:]
	}
	return username
}
