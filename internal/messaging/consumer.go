package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
	"tg-chats-collector/internal/service"
)

// JobRunner executes a collect job.
type JobRunner interface {
	Run(ctx context.Context, job *domain.CollectJob) (*service.ChatHistoryResult, error)
}

// JobConsumer feeds deliveries from the jobs queue to a JobRunner.
type JobConsumer struct {
	runner  JobRunner
	timeout time.Duration
}

func NewJobConsumer(runner JobRunner, timeout time.Duration) *JobConsumer {
	return &JobConsumer{runner: runner, timeout: timeout}
}

// Run handles deliveries one at a time until ctx ends or msgs is closed.
func (c *JobConsumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping job consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				slog.Warn("job consumer channel closed")
				return
			}
			c.Handle(ctx, msg)
		}
	}
}

// Handle runs one delivery and settles it. Malformed jobs and failed runs
// are rejected; a run that failed against the backend is requeued once.
func (c *JobConsumer) Handle(ctx context.Context, msg amqp.Delivery) {
	var job domain.CollectJob
	if err := json.Unmarshal(msg.Body, &job); err != nil || job.ID == "" {
		slog.Error("discarding malformed collect job",
			slog.Int("body_size", len(msg.Body)))
		observability.JobsProcessed.WithLabelValues("invalid").Inc()
		settle(msg.Nack(false, false))
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.runner.Run(jobCtx, &job)
	switch {
	case err == nil:
		observability.JobsProcessed.WithLabelValues("ok").Inc()
		settle(msg.Ack(false))
	case errors.Is(err, domain.ErrRemoteFetch) && !msg.Redelivered:
		observability.JobsProcessed.WithLabelValues("requeued").Inc()
		settle(msg.Nack(false, true))
	default:
		observability.JobsProcessed.WithLabelValues("failed").Inc()
		settle(msg.Nack(false, false))
	}
}

func settle(err error) {
	if err != nil {
		slog.Error("failed to settle delivery", slog.String("error", err.Error()))
	}
}
