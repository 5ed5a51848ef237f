package collector

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/testutil"
)

const kb = 1024

func sizedMessage(id int64, textBytes int) domain.Message {
	return testutil.NewDomainMessage(
		testutil.WithExternalID(id),
		testutil.WithMessageText(strings.Repeat("a", textBytes)),
	)
}

func batchIDs(batches []Batch) [][]int64 {
	out := make([][]int64, 0, len(batches))
	for _, b := range batches {
		ids := make([]int64, 0, len(b.Messages))
		for _, m := range b.Messages {
			ids = append(ids, m.ID)
		}
		out = append(out, ids)
	}
	return out
}

func TestPack_ThreeMessagesOf80KB(t *testing.T) {
	messages := []domain.Message{
		sizedMessage(1, 80*kb),
		sizedMessage(2, 80*kb),
		sizedMessage(3, 80*kb),
	}

	batches := NewPacker().Pack(context.Background(), messages, 190*kb)

	require.Len(t, batches, 2)
	assert.Equal(t, [][]int64{{1, 2}, {3}}, batchIDs(batches))
	assert.Equal(t, 2, batches[0].Count)
	assert.Equal(t, 1, batches[1].Count)
	assert.Equal(t, 3, TotalCount(batches))
}

func TestPack_EmptyInput(t *testing.T) {
	batches := NewPacker().Pack(context.Background(), nil, 190*kb)

	assert.NotNil(t, batches)
	assert.Empty(t, batches)
	assert.Equal(t, 0, TotalCount(batches))
}

func TestPack_OversizedMessageGetsOwnBatch(t *testing.T) {
	messages := []domain.Message{
		sizedMessage(1, 10),
		sizedMessage(2, 300*kb),
		sizedMessage(3, 10),
	}

	batches := NewPacker().Pack(context.Background(), messages, 190*kb)

	assert.Equal(t, [][]int64{{1}, {2}, {3}}, batchIDs(batches))
}

func TestPack_BatchesStayWithinBudget(t *testing.T) {
	messages := make([]domain.Message, 0, 200)
	for i := int64(1); i <= 200; i++ {
		messages = append(messages, sizedMessage(i, int(i%7)*kb+int(i)))
	}
	budget := 16 * kb

	batches := NewPacker().Pack(context.Background(), messages, budget)

	var seen []int64
	for _, b := range batches {
		require.NotZero(t, b.Count)
		assert.Equal(t, len(b.Messages), b.Count)

		size := 0
		for _, m := range b.Messages {
			data, err := json.Marshal(m)
			require.NoError(t, err)
			size += len(data)
			seen = append(seen, m.ID)
		}
		if b.Count > 1 {
			assert.LessOrEqual(t, size, budget)
		}
	}

	require.Len(t, seen, 200)
	for i, id := range seen {
		assert.Equal(t, int64(i+1), id, "order must be preserved")
	}
}

func TestPack_Idempotent(t *testing.T) {
	messages := make([]domain.Message, 0, 50)
	for i := int64(1); i <= 50; i++ {
		messages = append(messages, sizedMessage(i, int(i)*300))
	}
	packer := NewPacker()

	first := packer.Pack(context.Background(), messages, 20*kb)
	second := packer.Pack(context.Background(), messages, 20*kb)

	assert.Equal(t, batchIDs(first), batchIDs(second))
}

func TestPack_DefaultBudget(t *testing.T) {
	messages := []domain.Message{
		sizedMessage(1, 100*kb),
		sizedMessage(2, 100*kb),
	}

	batches := NewPacker().Pack(context.Background(), messages, 0)

	assert.Equal(t, [][]int64{{1}, {2}}, batchIDs(batches))
}

func TestPack_SkipsMessagesThatFailToSerialize(t *testing.T) {
	packer := NewPacker()
	packer.marshal = func(v any) ([]byte, error) {
		if m, ok := v.(BatchMessage); ok && m.ID == 2 {
			return nil, errors.New("unsupported value")
		}
		return json.Marshal(v)
	}

	batches := packer.Pack(context.Background(), []domain.Message{
		sizedMessage(1, 10),
		sizedMessage(2, 10),
		sizedMessage(3, 10),
	}, 190*kb)

	assert.Equal(t, [][]int64{{1, 3}}, batchIDs(batches))
	assert.Equal(t, 2, batches[0].Count)
}

func TestBatchMessage_WireForm(t *testing.T) {
	sender := int64(42)
	reply := "question"
	msg := testutil.NewDomainMessage(
		testutil.WithExternalID(7),
		testutil.WithMessageText("answer"),
		testutil.WithReply(6, reply),
	)
	msg.SenderID = &sender

	data, err := json.Marshal(ToBatchMessage(msg))

	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"sender_id":42,"reply_to_text":"question","text":"answer"}`, string(data))
}

func TestSerializationSkipError(t *testing.T) {
	cause := errors.New("boom")
	err := &SerializationSkipError{MessageID: 9, Err: cause}

	assert.Equal(t, "message 9 skipped: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}
