package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
)

//go:embed schema.sql
var schema string

const messagesTable = "tg_messages"

const messageColumns = `id, chat_id, topic_id, external_id, sender_id, sent_at, message_type, text, reply_to_message_id, reply_to_text, created_at`

const (
	existsMessageQuery = `
		SELECT EXISTS (
			SELECT 1 FROM tg_messages
			WHERE chat_id = $1 AND topic_id = $2 AND external_id = $3
		)
	`

	insertMessageQuery = `
		INSERT INTO tg_messages (chat_id, topic_id, external_id, sender_id, sent_at, message_type, text, reply_to_message_id, reply_to_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	insertMessageIgnoreQuery = `
		INSERT INTO tg_messages (chat_id, topic_id, external_id, sender_id, sent_at, message_type, text, reply_to_message_id, reply_to_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT ON CONSTRAINT tg_messages_chat_topic_external_key DO NOTHING
	`

	findEarliestQuery = `
		SELECT ` + messageColumns + `
		FROM tg_messages
		WHERE chat_id = $1 AND topic_id = $2
		ORDER BY sent_at ASC, external_id ASC
		LIMIT 1
	`

	findLatestQuery = `
		SELECT ` + messageColumns + `
		FROM tg_messages
		WHERE chat_id = $1 AND topic_id = $2
		ORDER BY sent_at DESC, external_id DESC
		LIMIT 1
	`

	findFromQuery = `
		SELECT ` + messageColumns + `
		FROM tg_messages
		WHERE chat_id = $1 AND topic_id = $2 AND sent_at >= $3
		ORDER BY sent_at ASC, external_id ASC
	`

	deleteFromQuery = `
		DELETE FROM tg_messages
		WHERE chat_id = $1 AND topic_id = $2 AND sent_at >= $3
	`
)

// EnsureSchema creates the message table and its indexes if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// MessageRepository implements domain.MessageRepository for PostgreSQL
type MessageRepository struct {
	db  *sql.DB
	txm *TxManager
}

// NewMessageRepository creates a new PostgreSQL message repository
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db, txm: NewTxManager(db)}
}

// Save inserts message unless the chat and topic already hold its external id.
func (r *MessageRepository) Save(ctx context.Context, chatID, topicID int64, message *domain.Message) (bool, error) {
	defer observeQuery("save", time.Now())

	var exists bool
	if err := r.db.QueryRowContext(ctx, existsMessageQuery, chatID, topicID, message.ExternalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check message: %w", err)
	}
	if exists {
		return false, nil
	}

	var id string
	err := r.db.QueryRowContext(ctx, insertMessageQuery, insertArgs(chatID, topicID, message)...).Scan(&id)
	if err != nil {
		// Lost a race with a concurrent writer of the same message.
		if IsUniqueViolation(err, messageKeyConstraint) {
			return false, nil
		}
		return false, fmt.Errorf("failed to save message: %w", err)
	}
	return true, nil
}

// SaveAll stores messages in one transaction, skipping those already stored.
// It returns the number of inserted rows.
func (r *MessageRepository) SaveAll(ctx context.Context, chatID, topicID int64, messages []domain.Message) (int, error) {
	defer observeQuery("save_all", time.Now())

	if len(messages) == 0 {
		return 0, nil
	}

	inserted := 0
	err := r.txm.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertMessageIgnoreQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare insert statement: %w", err)
		}
		defer stmt.Close()

		for i := range messages {
			res, err := stmt.ExecContext(ctx, insertArgs(chatID, topicID, &messages[i])...)
			if err != nil {
				return fmt.Errorf("failed to save message %d: %w", messages[i].ExternalID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read affected rows: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// FindEarliest returns the oldest stored message of a chat and topic.
func (r *MessageRepository) FindEarliest(ctx context.Context, chatID, topicID int64) (*domain.StoredMessage, error) {
	return r.findOne(ctx, findEarliestQuery, chatID, topicID)
}

// FindLatest returns the newest stored message of a chat and topic.
func (r *MessageRepository) FindLatest(ctx context.Context, chatID, topicID int64) (*domain.StoredMessage, error) {
	return r.findOne(ctx, findLatestQuery, chatID, topicID)
}

func (r *MessageRepository) findOne(ctx context.Context, query string, chatID, topicID int64) (*domain.StoredMessage, error) {
	defer observeQuery("find_one", time.Now())

	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, chatID, topicID))
	if err != nil {
		return nil, wrapQueryError("find message", err)
	}
	return msg, nil
}

// DeleteFrom removes the messages sent at or after from.
func (r *MessageRepository) DeleteFrom(ctx context.Context, chatID, topicID int64, from time.Time) (int64, error) {
	defer observeQuery("delete_from", time.Now())

	res, err := r.db.ExecContext(ctx, deleteFromQuery, chatID, topicID, from.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	return res.RowsAffected()
}

// FindFrom returns the messages sent at or after from, oldest first.
func (r *MessageRepository) FindFrom(ctx context.Context, chatID, topicID int64, from time.Time) ([]*domain.StoredMessage, error) {
	defer observeQuery("find_from", time.Now())

	rows, err := r.db.QueryContext(ctx, findFromQuery, chatID, topicID, from.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*domain.StoredMessage, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func observeQuery(operation string, start time.Time) {
	observability.DBQueryDuration.WithLabelValues(operation, messagesTable).Observe(time.Since(start).Seconds())
}

func insertArgs(chatID, topicID int64, m *domain.Message) []any {
	return []any{
		chatID,
		topicID,
		m.ExternalID,
		nullInt64(m.SenderID),
		m.Timestamp.UTC(),
		string(m.Type),
		m.Text,
		nullInt64(m.ReplyToMessageID),
		nullString(m.ReplyToText),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*domain.StoredMessage, error) {
	var (
		msg         domain.StoredMessage
		msgType     string
		senderID    sql.NullInt64
		replyToID   sql.NullInt64
		replyToText sql.NullString
	)
	err := row.Scan(
		&msg.ID,
		&msg.ChatID,
		&msg.TopicID,
		&msg.Message.ExternalID,
		&senderID,
		&msg.Message.Timestamp,
		&msgType,
		&msg.Message.Text,
		&replyToID,
		&replyToText,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.Message.Type = domain.MessageType(msgType)
	if senderID.Valid {
		msg.Message.SenderID = &senderID.Int64
	}
	if replyToID.Valid {
		msg.Message.ReplyToMessageID = &replyToID.Int64
	}
	if replyToText.Valid {
		msg.Message.ReplyToText = &replyToText.String
	}
	return &msg, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

var _ domain.MessageRepository = (*MessageRepository)(nil)
