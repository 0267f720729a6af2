package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PutSessionValue writes value under (sessionID, key). Last write wins.
func (s *Store) PutSessionValue(ctx context.Context, sessionID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_kv (session_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value
	`, sessionID, key, value)
	if err != nil {
		return fmt.Errorf("put session value: %w", err)
	}
	return nil
}

// GetSessionValue reads the value under (sessionID, key).
// The bool is false when no value has been written.
func (s *Store) GetSessionValue(ctx context.Context, sessionID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM session_kv WHERE session_id = ? AND key = ?
	`, sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session value: %w", err)
	}
	return value, true, nil
}

// DeleteSession removes every value stored for sessionID.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_kv WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
