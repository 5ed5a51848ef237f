package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-chats-collector/internal/domain"
)

var storedColumns = []string{
	"id", "chat_id", "topic_id", "external_id", "sender_id", "sent_at",
	"message_type", "text", "reply_to_message_id", "reply_to_text", "created_at",
}

func newRepo(t *testing.T) (*MessageRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMessageRepository(db), mock
}

func sampleMessage(id int64) domain.Message {
	sender := int64(100)
	return domain.Message{
		ExternalID: id,
		SenderID:   &sender,
		Timestamp:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.FixedZone("UTC+03", 3*3600)),
		Type:       domain.MessageTypeText,
		Text:       "hello",
	}
}

func TestMessageRepository_Save(t *testing.T) {
	t.Run("inserts_new_message", func(t *testing.T) {
		repo, mock := newRepo(t)
		msg := sampleMessage(10)

		mock.ExpectQuery(regexp.QuoteMeta(existsMessageQuery)).
			WithArgs(int64(-100), int64(0), int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(regexp.QuoteMeta(insertMessageQuery)).
			WithArgs(int64(-100), int64(0), int64(10), int64(100), msg.Timestamp.UTC(), "TEXT", "hello", nil, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("0b7c0e5e-6d9a-4c53-9d0e-2d7b0c1f9a11"))

		inserted, err := repo.Save(context.Background(), -100, 0, &msg)

		require.NoError(t, err)
		assert.True(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing_message_short_circuits", func(t *testing.T) {
		repo, mock := newRepo(t)
		msg := sampleMessage(10)

		mock.ExpectQuery(regexp.QuoteMeta(existsMessageQuery)).
			WithArgs(int64(-100), int64(5), int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		inserted, err := repo.Save(context.Background(), -100, 5, &msg)

		require.NoError(t, err)
		assert.False(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent_duplicate_is_not_an_error", func(t *testing.T) {
		repo, mock := newRepo(t)
		msg := sampleMessage(10)

		mock.ExpectQuery(regexp.QuoteMeta(existsMessageQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(regexp.QuoteMeta(insertMessageQuery)).
			WillReturnError(&pq.Error{Code: "23505", Constraint: messageKeyConstraint})

		inserted, err := repo.Save(context.Background(), -100, 0, &msg)

		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("database_error", func(t *testing.T) {
		repo, mock := newRepo(t)
		msg := sampleMessage(10)

		mock.ExpectQuery(regexp.QuoteMeta(existsMessageQuery)).
			WillReturnError(errors.New("database error"))

		_, err := repo.Save(context.Background(), -100, 0, &msg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to check message")
	})
}

func TestMessageRepository_SaveAll(t *testing.T) {
	t.Run("counts_inserted_rows", func(t *testing.T) {
		repo, mock := newRepo(t)
		messages := []domain.Message{sampleMessage(1), sampleMessage(2), sampleMessage(3)}

		mock.ExpectBegin()
		prep := mock.ExpectPrepare(regexp.QuoteMeta(insertMessageIgnoreQuery))
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		inserted, err := repo.SaveAll(context.Background(), -100, 0, messages)

		require.NoError(t, err)
		assert.Equal(t, 2, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls_back_on_failure", func(t *testing.T) {
		repo, mock := newRepo(t)
		messages := []domain.Message{sampleMessage(1), sampleMessage(2)}

		mock.ExpectBegin()
		prep := mock.ExpectPrepare(regexp.QuoteMeta(insertMessageIgnoreQuery))
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		inserted, err := repo.SaveAll(context.Background(), -100, 0, messages)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save message 2")
		assert.Zero(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty_input_skips_transaction", func(t *testing.T) {
		repo, mock := newRepo(t)

		inserted, err := repo.SaveAll(context.Background(), -100, 0, nil)

		require.NoError(t, err)
		assert.Zero(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMessageRepository_FindLatest(t *testing.T) {
	t.Run("maps_nullable_columns", func(t *testing.T) {
		repo, mock := newRepo(t)
		sentAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
		createdAt := sentAt.Add(time.Minute)

		mock.ExpectQuery(regexp.QuoteMeta(findLatestQuery)).
			WithArgs(int64(-100), int64(0)).
			WillReturnRows(sqlmock.NewRows(storedColumns).
				AddRow("row-1", int64(-100), int64(0), int64(77), nil, sentAt, "PHOTO", "<photo attached>", int64(70), "question", createdAt))

		msg, err := repo.FindLatest(context.Background(), -100, 0)

		require.NoError(t, err)
		assert.Equal(t, "row-1", msg.ID)
		assert.Equal(t, int64(77), msg.Message.ExternalID)
		assert.Nil(t, msg.Message.SenderID)
		assert.Equal(t, domain.MessageTypePhoto, msg.Message.Type)
		require.NotNil(t, msg.Message.ReplyToMessageID)
		assert.Equal(t, int64(70), *msg.Message.ReplyToMessageID)
		require.NotNil(t, msg.Message.ReplyToText)
		assert.Equal(t, "question", *msg.Message.ReplyToText)
		assert.Equal(t, createdAt, msg.CreatedAt)
	})

	t.Run("not_found", func(t *testing.T) {
		repo, mock := newRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(findLatestQuery)).
			WillReturnRows(sqlmock.NewRows(storedColumns))

		msg, err := repo.FindLatest(context.Background(), -100, 0)

		assert.Nil(t, msg)
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})
}

func TestMessageRepository_FindEarliest(t *testing.T) {
	repo, mock := newRepo(t)
	sentAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(findEarliestQuery)).
		WithArgs(int64(-100), int64(9)).
		WillReturnRows(sqlmock.NewRows(storedColumns).
			AddRow("row-1", int64(-100), int64(9), int64(1), int64(5), sentAt, "TEXT", "first", nil, nil, sentAt))

	msg, err := repo.FindEarliest(context.Background(), -100, 9)

	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.Message.ExternalID)
	assert.Equal(t, int64(9), msg.TopicID)
	require.NotNil(t, msg.Message.SenderID)
	assert.Equal(t, int64(5), *msg.Message.SenderID)
	assert.Nil(t, msg.Message.ReplyToText)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_FindFrom(t *testing.T) {
	t.Run("returns_rows_in_order", func(t *testing.T) {
		repo, mock := newRepo(t)
		from := time.Date(2025, 3, 1, 3, 0, 0, 0, time.FixedZone("UTC+03", 3*3600))

		mock.ExpectQuery(regexp.QuoteMeta(findFromQuery)).
			WithArgs(int64(-100), int64(0), from.UTC()).
			WillReturnRows(sqlmock.NewRows(storedColumns).
				AddRow("row-1", int64(-100), int64(0), int64(1), nil, from, "TEXT", "a", nil, nil, from).
				AddRow("row-2", int64(-100), int64(0), int64(2), nil, from.Add(time.Hour), "TEXT", "b", nil, nil, from))

		messages, err := repo.FindFrom(context.Background(), -100, 0, from)

		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "a", messages[0].Message.Text)
		assert.Equal(t, "b", messages[1].Message.Text)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty_result_is_not_nil", func(t *testing.T) {
		repo, mock := newRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(findFromQuery)).
			WillReturnRows(sqlmock.NewRows(storedColumns))

		messages, err := repo.FindFrom(context.Background(), -100, 0, time.Now())

		require.NoError(t, err)
		assert.NotNil(t, messages)
		assert.Empty(t, messages)
	})

	t.Run("query_error", func(t *testing.T) {
		repo, mock := newRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(findFromQuery)).
			WillReturnError(errors.New("timeout"))

		_, err := repo.FindFrom(context.Background(), -100, 0, time.Now())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query messages")
	})
}

func TestMessageRepository_DeleteFrom(t *testing.T) {
	repo, mock := newRepo(t)
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(deleteFromQuery)).
		WithArgs(int64(-100), int64(0), from).
		WillReturnResult(sqlmock.NewResult(0, 4))

	deleted, err := repo.DeleteFrom(context.Background(), -100, 0, from)

	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS tg_messages")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
