package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tg-chats-collector/internal/collector"
	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
	"tg-chats-collector/internal/service"
)

const (
	CommandsExchange = "collector.commands"
	ResultsExchange  = "collector.results"
	JobsQueue        = "collector.jobs"
	CollectRouting   = "collect.request"
)

const (
	retryInitialDelay = time.Second
	retryMaxDelay     = 10 * time.Second
)

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// publishing on a channel is not safe for concurrent use
	mu sync.Mutex
}

// ResultEnvelope carries one batch of a finished chat history collection.
type ResultEnvelope struct {
	JobID          string          `json:"job_id,omitempty"`
	ChatID         int64           `json:"chat_id"`
	ChatTitle      string          `json:"chat_title"`
	ChatPublicName string          `json:"chat_public_name,omitempty"`
	TopicID        *int64          `json:"topic_id"`
	TopicName      *string         `json:"topic_name"`
	BatchIndex     int             `json:"batch_index"`
	BatchCount     int             `json:"batch_count"`
	Batch          collector.Batch `json:"batch"`
	PublishedAt    time.Time       `json:"published_at"`
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:    conn,
		channel: ch,
	}

	if err := rmq.Setup(); err != nil {
		rmq.Close()
		return nil, err
	}

	return rmq, nil
}

// NewRabbitMQWithRetry dials until it succeeds or ctx ends, doubling the
// delay between attempts up to retryMaxDelay.
func NewRabbitMQWithRetry(ctx context.Context, url string) (*RabbitMQ, error) {
	delay := retryInitialDelay
	for attempt := 1; ; attempt++ {
		rmq, err := NewRabbitMQ(url)
		if err == nil {
			return rmq, nil
		}

		slog.Warn("rabbitmq not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, retryMaxDelay)
	}
}

func (r *RabbitMQ) Setup() error {
	if err := r.channel.ExchangeDeclare(
		CommandsExchange, // name
		"topic",          // type
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	); err != nil {
		return fmt.Errorf("failed to declare commands exchange: %w", err)
	}

	if err := r.channel.ExchangeDeclare(
		ResultsExchange, // name
		"fanout",        // type
		true,            // durable
		false,           // auto-deleted
		false,           // internal
		false,           // no-wait
		nil,             // arguments
	); err != nil {
		return fmt.Errorf("failed to declare results exchange: %w", err)
	}

	if _, err := r.channel.QueueDeclare(
		JobsQueue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	); err != nil {
		return fmt.Errorf("failed to declare %s queue: %w", JobsQueue, err)
	}

	if err := r.channel.QueueBind(
		JobsQueue,        // queue name
		CollectRouting,   // routing key
		CommandsExchange, // exchange
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind %s queue: %w", JobsQueue, err)
	}

	slog.Info("rabbitmq setup completed successfully")
	return nil
}

func (r *RabbitMQ) publishJSON(ctx context.Context, exchange, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.channel.PublishWithContext(
		ctx,
		exchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

// EnqueueCollectJob publishes job to the jobs queue.
func (r *RabbitMQ) EnqueueCollectJob(ctx context.Context, job *domain.CollectJob) error {
	if err := r.publishJSON(ctx, CommandsExchange, CollectRouting, job); err != nil {
		return fmt.Errorf("failed to publish collect job: %w", err)
	}

	observability.FromContext(ctx).Info("published collect job", slog.String("job_id", job.ID))
	return nil
}

// PublishBatches publishes one envelope per batch of result to the results
// exchange, in batch order. It stops at the first failed publish.
func (r *RabbitMQ) PublishBatches(ctx context.Context, jobID string, result *service.ChatHistoryResult) error {
	envelopes := Envelopes(jobID, result, time.Now().UTC())
	for _, env := range envelopes {
		if err := r.publishJSON(ctx, ResultsExchange, "", env); err != nil {
			return fmt.Errorf("failed to publish batch %d of %d: %w", env.BatchIndex+1, env.BatchCount, err)
		}
	}

	observability.FromContext(ctx).Info("published result batches",
		slog.Int64("chat_id", result.ChatID),
		slog.Int("batches", len(envelopes)),
		slog.Int("total_count", result.TotalCount))
	return nil
}

// Envelopes splits result into one envelope per batch.
func Envelopes(jobID string, result *service.ChatHistoryResult, publishedAt time.Time) []ResultEnvelope {
	out := make([]ResultEnvelope, 0, len(result.MessageBatches))
	for i, batch := range result.MessageBatches {
		out = append(out, ResultEnvelope{
			JobID:          jobID,
			ChatID:         result.ChatID,
			ChatTitle:      result.ChatTitle,
			ChatPublicName: result.ChatPublicName,
			TopicID:        result.TopicID,
			TopicName:      result.TopicName,
			BatchIndex:     i,
			BatchCount:     len(result.MessageBatches),
			Batch:          batch,
			PublishedAt:    publishedAt,
		})
	}
	return out
}

// ConsumeCollectJobs starts a manual-ack consumer on the jobs queue that
// receives one unacknowledged job at a time.
func (r *RabbitMQ) ConsumeCollectJobs() (<-chan amqp.Delivery, error) {
	if err := r.channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := r.channel.Consume(
		JobsQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("started consuming collect jobs", slog.String("queue", JobsQueue))
	return msgs, nil
}

// SubscribeResults binds a private auto-deleted queue to the results
// exchange and consumes it with auto-ack.
func (r *RabbitMQ) SubscribeResults() (<-chan amqp.Delivery, error) {
	queue, err := r.channel.QueueDeclare(
		"",    // auto-generated name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare results queue: %w", err)
	}

	if err := r.channel.QueueBind(queue.Name, "", ResultsExchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind results queue: %w", err)
	}

	msgs, err := r.channel.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register results consumer: %w", err)
	}

	slog.Info("subscribed to collection results",
		slog.String("queue", queue.Name),
		slog.String("exchange", ResultsExchange))
	return msgs, nil
}

func (r *RabbitMQ) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

var (
	_ service.JobQueue       = (*RabbitMQ)(nil)
	_ service.BatchPublisher = (*RabbitMQ)(nil)
)
