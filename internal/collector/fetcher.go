package collector

import (
	"context"
	"log/slog"
	"time"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
	"tg-chats-collector/internal/telegram"
)

const closeChatTimeout = 10 * time.Second

// Page is one history response, newest first.
type Page struct {
	Messages []*telegram.Message
}

// Empty reports whether the backend returned no messages.
func (p Page) Empty() bool {
	return len(p.Messages) == 0
}

// Oldest returns the last message of the page. It is nil for an empty page.
func (p Page) Oldest() *telegram.Message {
	if p.Empty() {
		return nil
	}
	return p.Messages[len(p.Messages)-1]
}

// PageFetcher reads one page of history per call.
type PageFetcher struct {
	client   telegram.Client
	pageSize int32
	timeout  time.Duration
}

// NewPageFetcher creates a PageFetcher using cfg's page size and call timeout.
func NewPageFetcher(client telegram.Client, cfg Config) *PageFetcher {
	cfg = cfg.withDefaults()
	return &PageFetcher{
		client:   client,
		pageSize: cfg.PageSize,
		timeout:  cfg.RemoteCallTimeout,
	}
}

// FetchPage returns the page of messages at and before beforeMessageID
// (0 reads from the newest message). A specific topic reads its thread,
// anchored at the topic's last message.
func (f *PageFetcher) FetchPage(ctx context.Context, chatID int64, topic *domain.TopicInfo, beforeMessageID int64) (Page, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var (
		op       string
		messages *telegram.Messages
		err      error
	)

	start := time.Now()
	if isThreadScoped(topic) {
		op = "getMessageThreadHistory"
		messages, err = f.client.GetMessageThreadHistory(callCtx, chatID, topic.LastMessageID, beforeMessageID, 0, f.pageSize)
	} else {
		op = "getChatHistory"
		messages, err = f.client.GetChatHistory(callCtx, chatID, beforeMessageID, 0, f.pageSize, false)
	}
	observeRemoteCall(op, start, err)

	if err != nil {
		return Page{}, &domain.RemoteFetchError{ChatID: chatID, Op: op, Err: err}
	}
	if messages == nil {
		return Page{}, nil
	}

	page := Page{Messages: make([]*telegram.Message, 0, len(messages.Messages))}
	for _, m := range messages.Messages {
		if m != nil {
			page.Messages = append(page.Messages, m)
		}
	}
	return page, nil
}

// OpenChat tells the backend the chat is open so it syncs the latest
// messages. The returned release closes it again; it ignores cancellation
// of ctx and must be called exactly once.
func (f *PageFetcher) OpenChat(ctx context.Context, chatID int64) (func(), error) {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	err := f.client.OpenChat(callCtx, chatID)
	observeRemoteCall("openChat", start, err)
	if err != nil {
		return nil, &domain.RemoteFetchError{ChatID: chatID, Op: "openChat", Err: err}
	}

	release := func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeChatTimeout)
		defer cancel()

		start := time.Now()
		err := f.client.CloseChat(closeCtx, chatID)
		observeRemoteCall("closeChat", start, err)
		if err != nil {
			observability.FromContext(ctx).Warn("failed to close chat",
				slog.Int64("chat_id", chatID),
				slog.String("error", err.Error()),
			)
		}
	}
	return release, nil
}

func observeRemoteCall(method string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RemoteCallDuration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
}
