package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/exprstate/internal/ir"
)

// createTestStore opens a file-backed store that is closed on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testExpression builds an expression and its content hash.
func testExpression(t *testing.T, source, typ string) (ir.ExprHash, ir.ExpressionData) {
	t.Helper()
	data := ir.ExpressionData{Source: source, Type: typ}
	hash, err := ir.ContentHash(data)
	require.NoError(t, err)
	return hash, data
}
