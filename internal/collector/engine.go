// Package collector walks a chat's history backward page by page and turns
// it into normalized messages and size-bounded batches.
package collector

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
	"tg-chats-collector/internal/telegram"
)

// Request describes one collection run.
type Request struct {
	ChatID int64
	// Topic scopes the run; nil is chat wide.
	Topic *domain.TopicInfo
	// Limit caps the result in limit mode; 0 uses the configured default.
	// Ignored when DateFrom is set.
	Limit int
	// DateFrom switches the run to date-range mode.
	DateFrom *time.Time
	// DateTo is an inclusive upper bound, honored in both modes.
	DateTo *time.Time
	Mode   Mode
}

func (r Request) runMode() string {
	if r.DateFrom != nil {
		return "date_range"
	}
	return "limit"
}

// Engine drives the pagination of one run at a time per call. It holds no
// per-run state and is safe for concurrent use.
type Engine struct {
	fetcher      *PageFetcher
	normalizer   *Normalizer
	defaultLimit int
}

// NewEngine creates an Engine backed by client.
func NewEngine(client telegram.Client, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		fetcher:      NewPageFetcher(client, cfg),
		normalizer:   NewNormalizer(client, cfg),
		defaultLimit: cfg.DefaultLimit,
	}
}

// Normalizer returns the engine's normalizer.
func (e *Engine) Normalizer() *Normalizer {
	return e.normalizer
}

// Collect pages backward through the chat from the newest message.
//
// In limit mode it stops once Limit messages are collected. In date-range
// mode it keeps messages with DateFrom <= t <= DateTo and stops after the
// page whose oldest message is older than DateFrom. Both modes also stop on
// an empty page or when the cursor does not advance.
//
// DateTo filters limit mode too: newer messages are skipped and do not
// count toward Limit.
//
// The result is sorted ascending by timestamp, ties by message id, in both
// modes. A run cancelled between pages returns what it collected so far
// with a nil error; a failed or cancelled page fetch returns a
// *domain.RemoteFetchError.
func (e *Engine) Collect(ctx context.Context, req Request) ([]domain.Message, error) {
	ctx = observability.WithChatID(ctx, req.ChatID)
	log := observability.FromContext(ctx).With(slog.String("mode", req.runMode()))

	if ctx.Err() != nil {
		log.Info("collection cancelled before start")
		return []domain.Message{}, nil
	}

	release, err := e.fetcher.OpenChat(ctx, req.ChatID)
	if err != nil {
		return nil, err
	}
	defer release()

	limit := req.Limit
	if limit <= 0 {
		limit = e.defaultLimit
	}

	run := &run{
		engine: e,
		req:    req,
		limit:  limit,
		seen:   make(map[int64]struct{}),
		result: make([]domain.Message, 0),
	}

	reason, err := run.loop(ctx, log)
	if err != nil {
		log.Error("collection failed",
			slog.Int("pages", run.pages),
			slog.Int("collected", len(run.result)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	slices.SortStableFunc(run.result, func(a, b domain.Message) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ExternalID, b.ExternalID)
	})

	observability.MessagesCollected.WithLabelValues(req.runMode()).Add(float64(len(run.result)))
	log.Info("collection finished",
		slog.String("reason", reason),
		slog.Int("pages", run.pages),
		slog.Int("collected", len(run.result)),
	)
	return run.result, nil
}

const (
	stopLimitReached = "limit_reached"
	stopEndOfHistory = "end_of_history"
	stopCursorStall  = "cursor_stalled"
	stopDateFloor    = "date_floor_reached"
	stopCancelled    = "cancelled"
)

// run is the state of one Collect call.
type run struct {
	engine *Engine
	req    Request
	limit  int
	seen   map[int64]struct{}
	result []domain.Message
	pages  int
}

func (r *run) loop(ctx context.Context, log *slog.Logger) (string, error) {
	var cursor int64
	for {
		if ctx.Err() != nil {
			return stopCancelled, nil
		}

		page, err := r.engine.fetcher.FetchPage(ctx, r.req.ChatID, r.req.Topic, cursor)
		if err != nil {
			return "", err
		}
		r.pages++
		observability.PagesFetched.WithLabelValues(r.req.runMode()).Inc()

		if page.Empty() {
			return stopEndOfHistory, nil
		}

		before := len(r.result)
		if r.collectPage(ctx, page) {
			return stopLimitReached, nil
		}

		oldest := page.Oldest()
		log.Debug("page processed",
			slog.Int64("cursor", cursor),
			slog.Int64("oldest_id", oldest.ID),
			slog.Int("page_size", len(page.Messages)),
			slog.Int("accepted", len(r.result)-before),
		)

		if r.req.DateFrom != nil && r.engine.normalizer.Timestamp(oldest.Date).Before(*r.req.DateFrom) {
			return stopDateFloor, nil
		}
		if oldest.ID == cursor {
			return stopCursorStall, nil
		}
		cursor = oldest.ID
	}
}

// collectPage appends the page's accepted messages and reports whether the
// limit was reached.
func (r *run) collectPage(ctx context.Context, page Page) bool {
	for _, msg := range page.Messages {
		if _, ok := r.seen[msg.ID]; ok {
			continue
		}
		r.seen[msg.ID] = struct{}{}

		if !BelongsToScope(msg, r.req.Topic) {
			continue
		}
		if !r.inWindow(msg) {
			continue
		}

		normalized := r.engine.normalizer.Normalize(ctx, msg, r.req.Mode)
		if r.req.Mode == ModeDescriptive && normalized.Text == "" {
			continue
		}
		r.result = append(r.result, normalized)

		if r.req.DateFrom == nil && len(r.result) >= r.limit {
			return true
		}
	}
	return false
}

func (r *run) inWindow(msg *telegram.Message) bool {
	t := r.engine.normalizer.Timestamp(msg.Date)
	if r.req.DateFrom != nil && t.Before(*r.req.DateFrom) {
		return false
	}
	if r.req.DateTo != nil && t.After(*r.req.DateTo) {
		return false
	}
	return true
}
