package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
)

// JobQueue accepts collection jobs for asynchronous processing.
type JobQueue interface {
	EnqueueCollectJob(ctx context.Context, job *domain.CollectJob) error
}

// JobService enqueues chat history collections and runs them on a worker.
type JobService struct {
	queue   JobQueue
	history *HistoryService
	now     func() time.Time
}

// NewJobService creates a JobService. queue may be nil on a worker that only
// runs jobs; history may be nil on an API that only enqueues them.
func NewJobService(queue JobQueue, history *HistoryService) *JobService {
	return &JobService{queue: queue, history: history, now: time.Now}
}

// Enqueue validates req and queues it as a new job.
func (s *JobService) Enqueue(ctx context.Context, req ChatHistoryRequest) (*domain.CollectJob, error) {
	if s.queue == nil {
		return nil, domain.ErrQueueUnavailable
	}
	if req.PublicChatName == "" && req.PrivateChatNamePart == "" {
		return nil, fmt.Errorf("%w: public chat name or private chat name part is required", domain.ErrChatNotIdentified)
	}
	if req.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidInput)
	}

	job := &domain.CollectJob{
		ID:                  uuid.NewString(),
		PublicChatName:      req.PublicChatName,
		PrivateChatNamePart: req.PrivateChatNamePart,
		TopicNamePart:       req.TopicNamePart,
		Limit:               req.Limit,
		DateFrom:            utcPtr(req.DateFrom),
		DateTo:              utcPtr(req.DateTo),
		RequestedAt:         s.now().UTC(),
	}

	if err := s.queue.EnqueueCollectJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	observability.FromContext(ctx).Info("collect job enqueued", slog.String("job_id", job.ID))
	return job, nil
}

// Run executes a job as a chat history collection. Its batches go to the
// history service's publisher tagged with the job id.
func (s *JobService) Run(ctx context.Context, job *domain.CollectJob) (*ChatHistoryResult, error) {
	ctx = observability.WithJobID(ctx, job.ID)
	log := observability.FromContext(ctx)

	start := s.now()
	result, err := s.history.chatHistory(ctx, job.ID, ChatHistoryRequest{
		PublicChatName:      job.PublicChatName,
		PrivateChatNamePart: job.PrivateChatNamePart,
		TopicNamePart:       job.TopicNamePart,
		Limit:               job.Limit,
		DateFrom:            job.DateFrom,
		DateTo:              job.DateTo,
	})
	if err != nil {
		log.Error("collect job failed", slog.String("error", err.Error()))
		return nil, err
	}

	log.Info("collect job finished",
		slog.Int64("chat_id", result.ChatID),
		slog.Int("total_count", result.TotalCount),
		slog.Int("batches", len(result.MessageBatches)),
		slog.Duration("duration", s.now().Sub(start)))
	return result, nil
}
