package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tg-chats-collector/internal/collector"
	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
)

// SyncResult reports one chat of an incremental sync.
type SyncResult struct {
	ChatID    int64
	From      time.Time
	Collected int
	Saved     int
}

// SyncService keeps the message store of a fixed set of chats up to date.
type SyncService struct {
	engine   *collector.Engine
	store    domain.MessageRepository
	chatIDs  []int64
	lookback time.Duration
	now      func() time.Time
}

func NewSyncService(engine *collector.Engine, store domain.MessageRepository, chatIDs []int64, lookback time.Duration) *SyncService {
	return &SyncService{
		engine:   engine,
		store:    store,
		chatIDs:  chatIDs,
		lookback: lookback,
		now:      time.Now,
	}
}

// SyncAll syncs every configured chat one after the other. A failing chat
// does not stop the others; all failures are returned joined.
func (s *SyncService) SyncAll(ctx context.Context) error {
	var errs []error
	for _, chatID := range s.chatIDs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := s.SyncChat(ctx, chatID); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// SyncChat collects the chat wide history from the newest stored message,
// or from the lookback floor when nothing is stored, and stores it.
func (s *SyncService) SyncChat(ctx context.Context, chatID int64) (*SyncResult, error) {
	ctx = observability.WithChatID(ctx, chatID)
	log := observability.FromContext(ctx)

	from := s.now().Add(-s.lookback).UTC()
	latest, err := s.store.FindLatest(ctx, chatID, 0)
	switch {
	case err == nil:
		from = latest.Message.Timestamp.UTC()
	case errors.Is(err, domain.ErrMessageNotFound):
	default:
		return nil, err
	}

	messages, err := s.engine.Collect(ctx, collector.Request{
		ChatID:   chatID,
		DateFrom: &from,
		Mode:     collector.ModeDescriptive,
	})
	if err != nil {
		log.Error("sync collection failed", slog.String("error", err.Error()))
		return nil, err
	}

	saved, err := s.store.SaveAll(ctx, chatID, 0, messages)
	if err != nil {
		log.Error("sync persistence failed", slog.String("error", err.Error()))
		return nil, err
	}

	result := &SyncResult{ChatID: chatID, From: from, Collected: len(messages), Saved: saved}
	log.Info("chat synced",
		slog.Time("from", from),
		slog.Int("collected", result.Collected),
		slog.Int("saved", result.Saved))
	return result, nil
}
