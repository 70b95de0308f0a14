package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DefaultLimit bounds how many past messages are sent to the model.
const DefaultLimit = 20

// ErrInvalidRole is returned by Append for roles other than user and assistant.
var ErrInvalidRole = errors.New("history: invalid role")

// Store is the durable per-user message log backed by the messages table.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database whose schema has been initialised.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one message for userID. The statement runs in autocommit
// mode, so the row is durable once Append returns nil.
func (s *Store) Append(ctx context.Context, userID int64, role, content string) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (user_id, chat_id, role, message) VALUES (?, '0', ?, ?)",
		userID, role, content,
	)
	if err != nil {
		return fmt.Errorf("append %s message for user %d: %w", role, userID, err)
	}
	return nil
}

// Recent returns the most recent `limit` messages for userID, ordered
// chronologically (oldest first). A non-positive limit means DefaultLimit.
func (s *Store) Recent(ctx context.Context, userID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, message FROM messages WHERE user_id = ? ORDER BY rowid DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history for user %d: %w", userID, err)
	}
	defer rows.Close()

	results := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history for user %d: %w", userID, err)
	}

	// Reverse to chronological order.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}
