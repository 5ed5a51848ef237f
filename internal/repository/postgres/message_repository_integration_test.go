//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/repository/postgres"
)

// setupPostgres starts a PostgreSQL container and returns a migrated connection
func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err, "failed to connect to PostgreSQL")

	require.Eventually(t, func() bool { return db.PingContext(ctx) == nil }, 30*time.Second, 500*time.Millisecond)
	require.NoError(t, postgres.EnsureSchema(ctx, db), "failed to apply schema")

	t.Cleanup(func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return db
}

func message(id int64, at time.Time, text string) domain.Message {
	return domain.Message{ExternalID: id, Timestamp: at, Type: domain.MessageTypeText, Text: text}
}

func TestMessageRepository_Integration(t *testing.T) {
	db := setupPostgres(t)
	repo := postgres.NewMessageRepository(db)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	const chatID = int64(-1001)

	t.Run("Save_is_idempotent", func(t *testing.T) {
		msg := message(1, base, "first")
		reply := "question"
		replyID := int64(0)
		msg.ReplyToText, msg.ReplyToMessageID = &reply, &replyID

		inserted, err := repo.Save(ctx, chatID, 0, &msg)
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = repo.Save(ctx, chatID, 0, &msg)
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("same_id_in_another_topic_is_distinct", func(t *testing.T) {
		msg := message(1, base, "topic copy")

		inserted, err := repo.Save(ctx, chatID, 42, &msg)
		require.NoError(t, err)
		assert.True(t, inserted)
	})

	t.Run("SaveAll_skips_duplicates", func(t *testing.T) {
		inserted, err := repo.SaveAll(ctx, chatID, 0, []domain.Message{
			message(1, base, "first"),
			message(2, base.Add(time.Minute), "second"),
			message(3, base.Add(2*time.Minute), "third"),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, inserted)
	})

	t.Run("FindEarliest_and_FindLatest", func(t *testing.T) {
		earliest, err := repo.FindEarliest(ctx, chatID, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), earliest.Message.ExternalID)
		require.NotNil(t, earliest.Message.ReplyToText)
		assert.Equal(t, "question", *earliest.Message.ReplyToText)

		latest, err := repo.FindLatest(ctx, chatID, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), latest.Message.ExternalID)
		assert.True(t, latest.Message.Timestamp.Equal(base.Add(2*time.Minute)))
	})

	t.Run("FindFrom", func(t *testing.T) {
		messages, err := repo.FindFrom(ctx, chatID, 0, base.Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "second", messages[0].Message.Text)
		assert.Equal(t, "third", messages[1].Message.Text)
	})

	t.Run("DeleteFrom", func(t *testing.T) {
		deleted, err := repo.DeleteFrom(ctx, chatID, 0, base.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		latest, err := repo.FindLatest(ctx, chatID, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), latest.Message.ExternalID)
	})

	t.Run("unknown_chat_not_found", func(t *testing.T) {
		_, err := repo.FindLatest(ctx, 999, 0)
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})
}
