package ir

import (
	"bytes"
	"slices"
)

// ExprHash is an opaque, content-derived identifier for an expression.
// Two expressions with the same ExprHash are semantically identical.
type ExprHash string

// ExpressionData is the resolved representation of one expression.
type ExpressionData struct {
	Source    string     `json:"source"`
	Type      string     `json:"type"`
	Pretty    string     `json:"pretty,omitempty"`
	UnitTests []UnitTest `json:"unitTests,omitempty"`
}

// UnitTest is a test outcome attached to an expression.
type UnitTest struct {
	Name       string   `json:"utdTestName"`
	Success    bool     `json:"utdTestSuccess"`
	Expression ExprHash `json:"utdExprHash,omitempty"`
}

// ProjectData is the snapshot the backend returns after a project mutation.
type ProjectData struct {
	Hash         ExprHash            `json:"pdHash"`
	Bindings     map[string]ExprHash `json:"pdBindings"`
	TypeBindings map[string]ExprHash `json:"pdTypeBindings"`
}

// Project is the persisted subset of project state needed to resume a session.
type Project struct {
	Hash ExprHash `json:"hash"`
}

// Equal reports whether two expressions have the same canonical encoding.
func (d ExpressionData) Equal(other ExpressionData) bool {
	a, errA := d.Canonical()
	b, errB := other.Canonical()
	if errA != nil || errB != nil {
		return d.Source == other.Source &&
			d.Type == other.Type &&
			d.Pretty == other.Pretty &&
			slices.Equal(d.UnitTests, other.UnitTests)
	}
	return bytes.Equal(a, b)
}

// Canonical returns the RFC 8785 encoding of the expression.
func (d ExpressionData) Canonical() ([]byte, error) {
	obj := map[string]any{
		"source": d.Source,
		"type":   d.Type,
		"pretty": d.Pretty,
	}
	if len(d.UnitTests) > 0 {
		tests := make([]any, len(d.UnitTests))
		for i, ut := range d.UnitTests {
			tests[i] = map[string]any{
				"name":       ut.Name,
				"success":    ut.Success,
				"expression": string(ut.Expression),
			}
		}
		obj["unit_tests"] = tests
	}
	return MarshalCanonical(obj)
}

// Hashes returns every hash referenced by the project, value bindings first,
// each group ordered by binding name. Duplicates are kept.
func (p ProjectData) Hashes() []ExprHash {
	out := make([]ExprHash, 0, len(p.Bindings)+len(p.TypeBindings))
	for _, name := range SortedNames(p.Bindings) {
		out = append(out, p.Bindings[name])
	}
	for _, name := range SortedNames(p.TypeBindings) {
		out = append(out, p.TypeBindings[name])
	}
	return out
}

// SortedNames returns the keys of a binding map in byte order.
func SortedNames(bindings map[string]ExprHash) []string {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CloneBindings returns a copy of a binding map. A nil map yields an empty one.
func CloneBindings(bindings map[string]ExprHash) map[string]ExprHash {
	out := make(map[string]ExprHash, len(bindings))
	for k, v := range bindings {
		out[k] = v
	}
	return out
}
