// Package scheduler runs the incremental message sync on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"tg-chats-collector/internal/observability"
)

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSpec validates a schedule. Specs take five or six fields (leading
// seconds optional) or a descriptor such as @hourly or @every 15m.
func ParseSpec(spec string) (cron.Schedule, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Syncer performs one sync pass.
type Syncer interface {
	SyncAll(ctx context.Context) error
}

// Scheduler triggers a Syncer on a schedule. A run still in progress when
// the next one is due makes that next run skip.
type Scheduler struct {
	cron    *cron.Cron
	syncer  Syncer
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// New registers syncer under spec. Each run is bounded by timeout.
func New(spec string, syncer Syncer, timeout time.Duration) (*Scheduler, error) {
	if _, err := ParseSpec(spec); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		syncer:  syncer,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}

	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to register sync job: %w", err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("sync scheduler started", slog.Time("next_run", s.Next()))
}

// Next returns the time of the next scheduled run, zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce performs one bounded sync pass and records its outcome.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.syncer.SyncAll(ctx); err != nil {
		observability.SyncRuns.WithLabelValues("error").Inc()
		slog.Error("scheduled sync failed",
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return
	}
	observability.SyncRuns.WithLabelValues("ok").Inc()
	slog.Info("scheduled sync finished", slog.Duration("duration", time.Since(start)))
}

// Stop cancels a running sync and waits for it to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
