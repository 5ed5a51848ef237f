package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
)

// BatchMessage is the wire form of a message inside a batch.
type BatchMessage struct {
	ID          int64   `json:"id"`
	SenderID    *int64  `json:"sender_id"`
	ReplyToText *string `json:"reply_to_text"`
	Text        string  `json:"text"`
}

// Batch is a group of messages whose summed wire size fits the budget,
// unless it holds a single oversized message.
type Batch struct {
	Count    int            `json:"count"`
	Messages []BatchMessage `json:"messages"`
}

// SerializationSkipError reports a message the packer could not encode.
type SerializationSkipError struct {
	MessageID int64
	Err       error
}

func (e *SerializationSkipError) Error() string {
	return fmt.Sprintf("message %d skipped: %v", e.MessageID, e.Err)
}

func (e *SerializationSkipError) Unwrap() error {
	return e.Err
}

// Packer groups messages into batches.
type Packer struct {
	marshal func(any) ([]byte, error)
}

// NewPacker creates a Packer that measures messages as JSON.
func NewPacker() *Packer {
	return &Packer{marshal: json.Marshal}
}

// ToBatchMessage converts m to its wire form.
func ToBatchMessage(m domain.Message) BatchMessage {
	return BatchMessage{
		ID:          m.ExternalID,
		SenderID:    m.SenderID,
		ReplyToText: m.ReplyToText,
		Text:        m.Text,
	}
}

// Pack splits messages greedily, keeping their order. A message that would
// push a non-empty batch over maxBatchBytes starts the next batch. Messages
// that fail to encode are logged and skipped. Empty input yields no batches.
// maxBatchBytes <= 0 uses DefaultMaxBatchBytes.
func (p *Packer) Pack(ctx context.Context, messages []domain.Message, maxBatchBytes int) []Batch {
	if maxBatchBytes <= 0 {
		maxBatchBytes = DefaultMaxBatchBytes
	}

	batches := make([]Batch, 0)
	current := make([]BatchMessage, 0)
	currentBytes := 0

	for _, m := range messages {
		wire := ToBatchMessage(m)
		data, err := p.marshal(wire)
		if err != nil {
			skip := &SerializationSkipError{MessageID: m.ExternalID, Err: err}
			observability.SerializationSkipped.Inc()
			observability.FromContext(ctx).Error("failed to serialize message", slog.String("error", skip.Error()))
			continue
		}

		size := len(data)
		if currentBytes+size > maxBatchBytes && len(current) > 0 {
			batches = append(batches, Batch{Count: len(current), Messages: current})
			current = make([]BatchMessage, 0)
			currentBytes = 0
		}
		current = append(current, wire)
		currentBytes += size
	}

	if len(current) > 0 {
		batches = append(batches, Batch{Count: len(current), Messages: current})
	}

	observability.BatchesPacked.Add(float64(len(batches)))
	return batches
}

// TotalCount sums the message counts of batches.
func TotalCount(batches []Batch) int {
	total := 0
	for _, b := range batches {
		total += b.Count
	}
	return total
}
