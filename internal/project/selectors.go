package project

import (
	"strings"

	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/opt"
)

// FindExpressionForBinding resolves a value binding name to its expression.
// Returns None when the name is unbound or its hash is not yet in the store.
func FindExpressionForBinding(name string, s State) opt.Option[ir.ExpressionData] {
	return opt.Chain(opt.FromMap(s.Bindings, name), s.Store.Get)
}

// FindExpressionForTypeBinding resolves a type binding name to its expression.
func FindExpressionForTypeBinding(name string, s State) opt.Option[ir.ExpressionData] {
	return opt.Chain(opt.FromMap(s.TypeBindings, name), s.Store.Get)
}

// FindExpressionForAnyBinding tries the value bindings first, then the type
// bindings.
func FindExpressionForAnyBinding(name string, s State) opt.Option[ir.ExpressionData] {
	return opt.Alt(FindExpressionForBinding(name, s), func() opt.Option[ir.ExpressionData] {
		return FindExpressionForTypeBinding(name, s)
	})
}

// FindExpression looks a hash up directly in the store.
func FindExpression(hash ir.ExprHash, s State) opt.Option[ir.ExpressionData] {
	return s.Store.Get(hash)
}

// FindHashForAnyBinding returns the hash bound to name, value bindings first.
func FindHashForAnyBinding(name string, s State) opt.Option[ir.ExprHash] {
	return opt.Alt(opt.FromMap(s.Bindings, name), func() opt.Option[ir.ExprHash] {
		return opt.FromMap(s.TypeBindings, name)
	})
}

// ProjectHash returns the current project hash.
func ProjectHash(s State) ir.ExprHash {
	return s.ProjectHash
}

// MissingHashes returns the hashes referenced by the bindings that are not
// yet in the store, value bindings first, each ordered by name.
func MissingHashes(s State) []ir.ExprHash {
	return s.Store.Missing(s.ProjectData().Hashes())
}

// FilterBindings keeps the entries whose name contains every character of
// filter, ignoring case. An empty filter keeps everything. The input map is
// never modified.
func FilterBindings(filter string, bindings map[string]ir.ExprHash) map[string]ir.ExprHash {
	if filter == "" {
		return ir.CloneBindings(bindings)
	}
	want := strings.ToLower(filter)
	out := make(map[string]ir.ExprHash)
	for name, hash := range bindings {
		lower := strings.ToLower(name)
		keep := true
		for _, r := range want {
			if !strings.ContainsRune(lower, r) {
				keep = false
				break
			}
		}
		if keep {
			out[name] = hash
		}
	}
	return out
}
