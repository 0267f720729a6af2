package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exprstate/internal/contentstore"
	"github.com/roach88/exprstate/internal/ir"
)

var (
	valueExpr = ir.ExpressionData{Source: "\\a -> a", Type: "a -> a"}
	typeExpr  = ir.ExpressionData{Source: "type Maybe a = Just a | Nothing", Type: "Maybe"}
)

func selectorState(t *testing.T) State {
	t.Helper()
	store, err := contentstore.New().Put("Hid", valueExpr)
	require.NoError(t, err)
	store, err = store.Put("Hmaybe", typeExpr)
	require.NoError(t, err)

	return NewState().
		WithProjectHash("Hp").
		WithBindings(
			map[string]ir.ExprHash{"id": "Hid", "pending": "Hpending", "Maybe": "Hid"},
			map[string]ir.ExprHash{"Maybe": "Hmaybe", "Either": "Heither"},
		).
		WithStore(store)
}

func TestFindExpressionForBinding(t *testing.T) {
	s := selectorState(t)

	got, ok := FindExpressionForBinding("id", s).Get()
	require.True(t, ok)
	assert.Equal(t, valueExpr, got)

	assert.True(t, FindExpressionForBinding("missing", s).IsNone(), "unbound name")
	assert.True(t, FindExpressionForBinding("pending", s).IsNone(), "bound but not fetched")
}

func TestFindExpressionForTypeBinding(t *testing.T) {
	s := selectorState(t)

	got, ok := FindExpressionForTypeBinding("Maybe", s).Get()
	require.True(t, ok)
	assert.Equal(t, typeExpr, got)

	assert.True(t, FindExpressionForTypeBinding("id", s).IsNone())
	assert.True(t, FindExpressionForTypeBinding("Either", s).IsNone())
}

func TestFindExpressionForAnyBinding(t *testing.T) {
	s := selectorState(t)

	got, ok := FindExpressionForAnyBinding("Maybe", s).Get()
	require.True(t, ok)
	assert.Equal(t, valueExpr, got, "value binding wins over type binding")

	s.Bindings = map[string]ir.ExprHash{}
	got, ok = FindExpressionForAnyBinding("Maybe", s).Get()
	require.True(t, ok)
	assert.Equal(t, typeExpr, got)

	assert.True(t, FindExpressionForAnyBinding("nothing", s).IsNone())
}

func TestFindExpression(t *testing.T) {
	s := selectorState(t)

	assert.True(t, FindExpression("Hid", s).IsSome())
	assert.True(t, FindExpression("Hnope", s).IsNone())
}

func TestSelectorsAreTotal(t *testing.T) {
	states := []State{
		{},
		NewState(),
		selectorState(t),
	}
	names := []string{"", "id", "Maybe", "pending", "\x00"}

	for _, s := range states {
		for _, name := range names {
			assert.NotPanics(t, func() {
				FindExpressionForBinding(name, s)
				FindExpressionForTypeBinding(name, s)
				FindExpressionForAnyBinding(name, s)
				FindExpression(ir.ExprHash(name), s)
				FindHashForAnyBinding(name, s)
				MissingHashes(s)
			})
		}
	}
}

func TestFindHashForAnyBinding(t *testing.T) {
	s := selectorState(t)

	h, ok := FindHashForAnyBinding("Either", s).Get()
	require.True(t, ok)
	assert.Equal(t, ir.ExprHash("Heither"), h)
	assert.True(t, FindHashForAnyBinding("zzz", s).IsNone())
}

func TestMissingHashes(t *testing.T) {
	s := selectorState(t)
	assert.Equal(t, []ir.ExprHash{"Hpending", "Heither"}, MissingHashes(s))
	assert.Empty(t, MissingHashes(NewState()))
}

func TestProjectHash(t *testing.T) {
	assert.Equal(t, ir.ExprHash("Hp"), ProjectHash(selectorState(t)))
}

func TestFilterBindings(t *testing.T) {
	bindings := map[string]ir.ExprHash{
		"compose":  "H1",
		"identity": "H2",
		"const":    "H3",
		"fmap":     "H4",
	}

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{"empty keeps all", "", []string{"compose", "identity", "const", "fmap"}},
		{"characters in any order", "oc", []string{"compose", "const"}},
		{"case insensitive", "ID", []string{"identity"}},
		{"no match", "zz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterBindings(tt.filter, bindings)
			var names []string
			for name := range got {
				names = append(names, name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}

	assert.Len(t, bindings, 4, "input is not modified")
}
