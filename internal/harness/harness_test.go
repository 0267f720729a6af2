package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exprstate/internal/contentstore"
	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_RecordsConflictAndContinues(t *testing.T) {
	s := &Scenario{
		Name: "conflict",
		Initial: Initial{
			Store: map[ir.ExprHash]ExpressionDoc{"h": {Source: "1", Type: "Int"}},
		},
		Steps: []Step{
			{Action: project.ActionFetchExpressionSuccess, Hash: "h", Expression: &ExpressionDoc{Source: "2", Type: "Int"}},
			{Action: project.ActionStoreProjectHash, Hash: "p"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, contentstore.ErrCodeConflict, result.Trace[0].Error)
	assert.Empty(t, result.Trace[1].Error)
	assert.Equal(t, 1, result.RejectedSteps())
	assert.Equal(t, ir.ExprHash("p"), result.Final.ProjectHash)

	got, ok := result.Final.Store.Get("h").Get()
	require.True(t, ok)
	assert.Equal(t, "1", got.Source)
}

func TestRun_ExpectationFailuresReported(t *testing.T) {
	wrongHash := ir.ExprHash("other")
	size := 3
	s := &Scenario{
		Name:  "failing",
		Steps: []Step{{Action: project.ActionStoreProjectHash, Hash: "p"}},
		Expect: Expect{
			ProjectHash: &wrongHash,
			Resolved:    []string{"nope"},
			StoreSize:   &size,
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 3)
}

func TestRun_SeqStartsAtOne(t *testing.T) {
	s := &Scenario{
		Name: "seq",
		Steps: []Step{
			{Action: project.ActionInitialise},
			{Action: project.ActionCreateProject},
		},
	}
	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, int64(2), result.Trace[1].Seq)
}

func TestRun_RejectsMalformedScenario(t *testing.T) {
	_, err := Run(&Scenario{Name: "empty"})
	assert.Error(t, err)

	_, err = Run(&Scenario{Name: "bad", Steps: []Step{{Action: "Explode"}}})
	assert.Error(t, err)

	_, err = Run(&Scenario{Name: "bad", Steps: []Step{{Action: project.ActionStoreProjectData}}})
	assert.Error(t, err)
}

func TestParseScenario_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"missing steps", "name: x\n"},
		{"empty steps", "name: x\nsteps: []\n"},
		{"unknown action", "name: x\nsteps:\n  - action: Explode\n"},
		{"unknown field", "name: x\nsteps:\n  - action: Initialise\n    hash: h\n"},
		{"missing expression", "name: x\nsteps:\n  - action: FetchExpressionSuccess\n    hash: h\n"},
		{"bad name", "name: \"has space\"\nsteps:\n  - action: Initialise\n"},
		{"negative store size", "name: x\nsteps:\n  - action: Initialise\nexpect:\n  store_size: -1\n"},
		{"not yaml", "name: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseScenario_Valid(t *testing.T) {
	src := `
name: minimal
steps:
  - action: StoreProjectData
    project:
      hash: P
      bindings: { x: H }
    extra_hashes: [E]
  - action: FetchExpressionsForHashes
    hashes: [H]
expect:
  missing: [H]
`
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, []ir.ExprHash{"E"}, s.Steps[0].ExtraHashes)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []project.Event{
		project.FetchExpressions{Hashes: []ir.ExprHash{"H", "E"}, ProjectHash: "P"},
		project.SaveToSessionStorage{Hash: "P"},
	}, result.Trace[0].Events)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: disk\nsteps:\n  - action: CreateProject\n"), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "disk", s.Name)
}
