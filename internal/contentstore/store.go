// Package contentstore implements the immutable content-addressed expression
// cache.
//
// A Store maps ExprHash to ExpressionData. It only grows: Put returns a new
// Store and never mutates the receiver, so older snapshots stay valid. Since
// a hash always names the same content, there is no eviction.
//
// Each Put copies the whole map, so filling a store one hash at a time costs
// O(n^2). Use PutAll to add a batch with a single copy.
package contentstore

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/opt"
)

// Store is an immutable mapping from content hash to expression data.
// The zero Store is empty and ready to use.
type Store struct {
	entries map[ir.ExprHash]ir.ExpressionData
}

// New returns an empty store.
func New() Store {
	return Store{}
}

// FromMap builds a store from existing entries. The map is copied.
func FromMap(entries map[ir.ExprHash]ir.ExpressionData) Store {
	if len(entries) == 0 {
		return Store{}
	}
	cp := make(map[ir.ExprHash]ir.ExpressionData, len(entries))
	for h, d := range entries {
		cp[h] = d
	}
	return Store{entries: cp}
}

// Get returns the expression stored under hash.
func (s Store) Get(hash ir.ExprHash) opt.Option[ir.ExpressionData] {
	return opt.FromMap(s.entries, hash)
}

// Has reports whether hash is present.
func (s Store) Has(hash ir.ExprHash) bool {
	_, ok := s.entries[hash]
	return ok
}

// Len returns the number of stored expressions.
func (s Store) Len() int {
	return len(s.entries)
}

// Put returns a store that additionally maps hash to data.
//
// Inserting equal data under an existing hash is a no-op and returns the
// receiver. Inserting different data under an existing hash returns a
// *ConflictError and the receiver unchanged.
func (s Store) Put(hash ir.ExprHash, data ir.ExpressionData) (Store, error) {
	if existing, ok := s.entries[hash]; ok {
		if existing.Equal(data) {
			return s, nil
		}
		return s, &ConflictError{Hash: hash, Existing: existing, Incoming: data}
	}

	next := make(map[ir.ExprHash]ir.ExpressionData, len(s.entries)+1)
	for h, d := range s.entries {
		next[h] = d
	}
	next[hash] = data
	return Store{entries: next}, nil
}

// PutAll returns a store that additionally holds every entry of batch, with
// one map copy for the whole batch.
//
// Entries equal to stored content are skipped. If any entry conflicts with
// stored content, PutAll returns a *ConflictError for the lowest conflicting
// hash and the receiver unchanged.
func (s Store) PutAll(batch map[ir.ExprHash]ir.ExpressionData) (Store, error) {
	var added []ir.ExprHash
	for _, h := range slices.Sorted(maps.Keys(batch)) {
		existing, ok := s.entries[h]
		if !ok {
			added = append(added, h)
			continue
		}
		if !existing.Equal(batch[h]) {
			return s, &ConflictError{Hash: h, Existing: existing, Incoming: batch[h]}
		}
	}
	if len(added) == 0 {
		return s, nil
	}

	next := make(map[ir.ExprHash]ir.ExpressionData, len(s.entries)+len(added))
	for h, d := range s.entries {
		next[h] = d
	}
	for _, h := range added {
		next[h] = batch[h]
	}
	return Store{entries: next}, nil
}

// Hashes returns all stored hashes in byte order.
func (s Store) Hashes() []ir.ExprHash {
	out := make([]ir.ExprHash, 0, len(s.entries))
	for h := range s.entries {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

// Missing returns the hashes not yet present in the store, deduplicated and
// in first-seen order. Empty hashes are skipped.
func (s Store) Missing(hashes []ir.ExprHash) []ir.ExprHash {
	seen := make(map[ir.ExprHash]bool, len(hashes))
	var out []ir.ExprHash
	for _, h := range hashes {
		if h == "" || seen[h] || s.Has(h) {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}

// Equal reports whether two stores hold the same entries.
func (s Store) Equal(other Store) bool {
	if s.Len() != other.Len() {
		return false
	}
	for h, d := range s.entries {
		o, ok := other.entries[h]
		if !ok || !d.Equal(o) {
			return false
		}
	}
	return true
}

// ErrCodeConflict identifies a content-addressing invariant violation.
const ErrCodeConflict = "CONTENT_CONFLICT"

// ConflictError reports an attempt to store different content under a hash
// that is already present. It indicates a content-addressing bug upstream.
type ConflictError struct {
	Hash     ir.ExprHash
	Existing ir.ExpressionData
	Incoming ir.ExpressionData
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: hash %s already holds different content", ErrCodeConflict, e.Hash)
}

// IsConflict returns true if err is or wraps a *ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
