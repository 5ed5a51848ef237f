package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"tg-chats-collector/internal/domain"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{
			name:       "matching_constraint",
			err:        &pq.Error{Code: "23505", Constraint: messageKeyConstraint},
			constraint: messageKeyConstraint,
			want:       true,
		},
		{
			name:       "any_constraint",
			err:        &pq.Error{Code: "23505", Constraint: "other_key"},
			constraint: "",
			want:       true,
		},
		{
			name:       "different_constraint",
			err:        &pq.Error{Code: "23505", Constraint: "other_key"},
			constraint: messageKeyConstraint,
			want:       false,
		},
		{
			name:       "check_violation",
			err:        &pq.Error{Code: "23514", Constraint: messageKeyConstraint},
			constraint: messageKeyConstraint,
			want:       false,
		},
		{
			name:       "wrapped_with_w",
			err:        fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: messageKeyConstraint}),
			constraint: messageKeyConstraint,
			want:       true,
		},
		{
			name:       "string_concatenated",
			err:        errors.New("insert: " + (&pq.Error{Code: "23505"}).Error()),
			constraint: "",
			want:       false,
		},
		{
			name:       "case_sensitive_name",
			err:        &pq.Error{Code: "23505", Constraint: messageKeyConstraint},
			constraint: "TG_MESSAGES_CHAT_TOPIC_EXTERNAL_KEY",
			want:       false,
		},
		{
			name: "nil_error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err, tt.constraint))
		})
	}
}

func TestWrapQueryError(t *testing.T) {
	assert.ErrorIs(t, wrapQueryError("find message", sql.ErrNoRows), domain.ErrMessageNotFound)

	cause := errors.New("connection refused")
	err := wrapQueryError("find message", cause)
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "failed to find message: connection refused")
}
