package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashDeterminism(t *testing.T) {
	data := ExpressionData{Source: "\\a -> a", Type: "a -> a", Pretty: "\\a -> a"}

	h1, err := ContentHash(data)
	require.NoError(t, err)
	h2, err := ContentHash(data)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "ContentHash must be deterministic")
	assert.Len(t, string(h1), 64, "SHA-256 hex is 64 characters")
}

func TestContentHashChangesWithContent(t *testing.T) {
	h1 := MustContentHash(ExpressionData{Source: "1+1", Type: "Int"})
	h2 := MustContentHash(ExpressionData{Source: "1+2", Type: "Int"})
	h3 := MustContentHash(ExpressionData{Source: "1+1", Type: "Nat"})

	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t,
		hashWithDomain(DomainExpression, data),
		hashWithDomain(DomainProject, data),
	)
}

func TestProjectHash(t *testing.T) {
	b := map[string]ExprHash{"x": "H1"}

	h1, err := ProjectHash("", b, nil)
	require.NoError(t, err)
	h2, err := ProjectHash("", map[string]ExprHash{"x": "H1"}, map[string]ExprHash{})
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "nil and empty type bindings hash the same")

	h3, err := ProjectHash(h1, b, nil)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3, "parent is part of project identity")
}

func TestProjectDataHashes(t *testing.T) {
	pd := ProjectData{
		Hash:         "Hp",
		Bindings:     map[string]ExprHash{"b": "H2", "a": "H1"},
		TypeBindings: map[string]ExprHash{"Maybe": "T1"},
	}
	assert.Equal(t, []ExprHash{"H1", "H2", "T1"}, pd.Hashes())
}
