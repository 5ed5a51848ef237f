package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"tg-chats-collector/internal/domain"
)

const (
	pqUniqueViolation = "23505"

	messageKeyConstraint = "tg_messages_chat_topic_external_key"
)

// IsUniqueViolation checks if an error is a PostgreSQL unique constraint violation
// If constraint is empty, it returns true for any unique violation
// If constraint is specified, it only returns true for that specific constraint
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	if string(pqErr.Code) != pqUniqueViolation {
		return false
	}

	if constraint == "" {
		return true
	}

	return pqErr.Constraint == constraint
}

// wrapQueryError maps sql.ErrNoRows to domain.ErrMessageNotFound and wraps
// everything else with the failed operation.
func wrapQueryError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrMessageNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
