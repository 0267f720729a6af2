package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/exprstate/internal/contentstore"
	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/opt"
)

// WriteExpression inserts an expression under its hash.
//
// Uses ON CONFLICT(hash) DO NOTHING for idempotency: rewriting equal content
// is a no-op. Rewriting different content returns *contentstore.ConflictError
// and leaves the stored row untouched.
func (s *Store) WriteExpression(ctx context.Context, hash ir.ExprHash, data ir.ExpressionData) error {
	if hash == "" {
		return fmt.Errorf("write expression: empty hash")
	}
	payload, err := encodeExpression(data)
	if err != nil {
		return fmt.Errorf("write expression: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO expressions (hash, payload)
		VALUES (?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, string(hash), payload)
	if err != nil {
		return fmt.Errorf("write expression: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write expression: rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	existing, ok, err := s.readExpression(ctx, hash)
	if err != nil {
		return fmt.Errorf("write expression: read existing: %w", err)
	}
	if ok && !existing.Equal(data) {
		return &contentstore.ConflictError{Hash: hash, Existing: existing, Incoming: data}
	}
	return nil
}

// ReadExpression returns the expression stored under hash.
// A missing row is None; a corrupt payload is an error.
func (s *Store) ReadExpression(ctx context.Context, hash ir.ExprHash) (opt.Option[ir.ExpressionData], error) {
	data, ok, err := s.readExpression(ctx, hash)
	if err != nil {
		return opt.None[ir.ExpressionData](), err
	}
	if !ok {
		return opt.None[ir.ExpressionData](), nil
	}
	return opt.Some(data), nil
}

func (s *Store) readExpression(ctx context.Context, hash ir.ExprHash) (ir.ExpressionData, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM expressions WHERE hash = ?`, string(hash),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ExpressionData{}, false, nil
	}
	if err != nil {
		return ir.ExpressionData{}, false, fmt.Errorf("query expression: %w", err)
	}
	data, err := decodeExpression(payload)
	if err != nil {
		return ir.ExpressionData{}, false, err
	}
	return data, true, nil
}

// ReadExpressions returns the stored expressions for the given hashes.
// Hashes with no row are absent from the result; the map is never nil.
func (s *Store) ReadExpressions(ctx context.Context, hashes []ir.ExprHash) (map[ir.ExprHash]ir.ExpressionData, error) {
	out := make(map[ir.ExprHash]ir.ExpressionData, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(hashes))
	args := make([]any, len(hashes))
	for i, h := range hashes {
		placeholders[i] = "?"
		args[i] = string(h)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT hash, payload FROM expressions
		WHERE hash IN (%s)
		ORDER BY hash COLLATE BINARY ASC
	`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("query expressions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			hash    string
			payload []byte
		)
		if err := rows.Scan(&hash, &payload); err != nil {
			return nil, fmt.Errorf("scan expression: %w", err)
		}
		data, err := decodeExpression(payload)
		if err != nil {
			return nil, fmt.Errorf("expression %s: %w", hash, err)
		}
		out[ir.ExprHash(hash)] = data
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expressions: %w", err)
	}

	return out, nil
}

// CountExpressions returns the number of stored expressions.
func (s *Store) CountExpressions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expressions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expressions: %w", err)
	}
	return n, nil
}
