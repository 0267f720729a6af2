package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/opt"
)

// ProjectRecord is a stored project snapshot.
type ProjectRecord struct {
	Data   ir.ProjectData
	Parent ir.ExprHash
	Seq    int64
}

// WriteProject stores a project snapshot and returns its seq.
// Uses ON CONFLICT(hash) DO NOTHING: a project hash already stored keeps its
// original seq, which is returned.
func (s *Store) WriteProject(ctx context.Context, data ir.ProjectData, parent ir.ExprHash) (int64, error) {
	if data.Hash == "" {
		return 0, fmt.Errorf("write project: empty hash")
	}
	bindingsJSON, err := marshalBindings(data.Bindings)
	if err != nil {
		return 0, fmt.Errorf("write project: %w", err)
	}
	typeBindingsJSON, err := marshalBindings(data.TypeBindings)
	if err != nil {
		return 0, fmt.Errorf("write project: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write project: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM projects`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write project: next seq: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projects (hash, parent, bindings, type_bindings, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, string(data.Hash), string(parent), bindingsJSON, typeBindingsJSON, seq); err != nil {
		return 0, fmt.Errorf("write project: insert: %w", err)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT seq FROM projects WHERE hash = ?`, string(data.Hash),
	).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write project: select seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write project: commit: %w", err)
	}
	return seq, nil
}

// ReadProject returns the project stored under hash.
func (s *Store) ReadProject(ctx context.Context, hash ir.ExprHash) (opt.Option[ProjectRecord], error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, parent, bindings, type_bindings, seq
		FROM projects WHERE hash = ?
	`, string(hash))
	return scanProject(row)
}

// LatestProject returns the most recently written project.
func (s *Store) LatestProject(ctx context.Context) (opt.Option[ProjectRecord], error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, parent, bindings, type_bindings, seq
		FROM projects
		ORDER BY seq DESC, hash COLLATE BINARY ASC
		LIMIT 1
	`)
	return scanProject(row)
}

func scanProject(row *sql.Row) (opt.Option[ProjectRecord], error) {
	var (
		hash, parent           string
		bindings, typeBindings string
		seq                    int64
	)
	err := row.Scan(&hash, &parent, &bindings, &typeBindings, &seq)
	if errors.Is(err, sql.ErrNoRows) {
		return opt.None[ProjectRecord](), nil
	}
	if err != nil {
		return opt.None[ProjectRecord](), fmt.Errorf("scan project: %w", err)
	}

	b, err := unmarshalBindings(bindings)
	if err != nil {
		return opt.None[ProjectRecord](), fmt.Errorf("project %s: %w", hash, err)
	}
	tb, err := unmarshalBindings(typeBindings)
	if err != nil {
		return opt.None[ProjectRecord](), fmt.Errorf("project %s: %w", hash, err)
	}

	return opt.Some(ProjectRecord{
		Data: ir.ProjectData{
			Hash:         ir.ExprHash(hash),
			Bindings:     b,
			TypeBindings: tb,
		},
		Parent: ir.ExprHash(parent),
		Seq:    seq,
	}), nil
}
