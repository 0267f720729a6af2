package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
)

// Scenario is a scripted sequence of reducer actions and the expected
// final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description,omitempty"`

	// Initial seeds the state before the first step.
	Initial Initial `yaml:"initial,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Expect is checked against the final state. Unset fields are skipped.
	Expect Expect `yaml:"expect,omitempty"`
}

// Initial is the seed state.
type Initial struct {
	ProjectHash  ir.ExprHash                   `yaml:"project_hash,omitempty"`
	Bindings     map[string]ir.ExprHash        `yaml:"bindings,omitempty"`
	TypeBindings map[string]ir.ExprHash        `yaml:"type_bindings,omitempty"`
	Store        map[ir.ExprHash]ExpressionDoc `yaml:"store,omitempty"`
}

// Step is one action. Which fields apply depends on Action.
type Step struct {
	Action      string         `yaml:"action"`
	Hash        ir.ExprHash    `yaml:"hash,omitempty"`
	Hashes      []ir.ExprHash  `yaml:"hashes,omitempty"`
	ExtraHashes []ir.ExprHash  `yaml:"extra_hashes,omitempty"`
	ProjectHash ir.ExprHash    `yaml:"project_hash,omitempty"`
	Project     *ProjectDoc    `yaml:"project,omitempty"`
	Expression  *ExpressionDoc `yaml:"expression,omitempty"`
}

// ProjectDoc is a project snapshot in scenario files.
type ProjectDoc struct {
	Hash         ir.ExprHash            `yaml:"hash"`
	Bindings     map[string]ir.ExprHash `yaml:"bindings,omitempty"`
	TypeBindings map[string]ir.ExprHash `yaml:"type_bindings,omitempty"`
}

// ExpressionDoc is an expression in scenario files.
type ExpressionDoc struct {
	Source    string        `yaml:"source"`
	Type      string        `yaml:"type"`
	Pretty    string        `yaml:"pretty,omitempty"`
	UnitTests []UnitTestDoc `yaml:"unit_tests,omitempty"`
}

// UnitTestDoc is a unit test outcome in scenario files.
type UnitTestDoc struct {
	Name       string      `yaml:"name"`
	Success    bool        `yaml:"success"`
	Expression ir.ExprHash `yaml:"expression,omitempty"`
}

// Expect lists checks on the final state.
type Expect struct {
	ProjectHash  *ir.ExprHash           `yaml:"project_hash,omitempty"`
	Bindings     map[string]ir.ExprHash `yaml:"bindings,omitempty"`
	TypeBindings map[string]ir.ExprHash `yaml:"type_bindings,omitempty"`

	// Resolved names must resolve through FindExpressionForAnyBinding;
	// Unresolved names must not.
	Resolved   []string `yaml:"resolved,omitempty"`
	Unresolved []string `yaml:"unresolved,omitempty"`

	// Missing is the exact MissingHashes result, sorted.
	Missing []ir.ExprHash `yaml:"missing,omitempty"`

	StoreSize *int `yaml:"store_size,omitempty"`

	// Errors is the number of steps the reducer rejected.
	Errors *int `yaml:"errors,omitempty"`
}

// LoadScenario reads, schema-checks and decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario schema-checks and decodes scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario repeats the checks the schema makes, for scenarios
// built in Go rather than loaded from YAML.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if _, err := step.toAction(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return nil
}

// toAction converts a step to a reducer action.
func (s Step) toAction() (project.Action, error) {
	switch s.Action {
	case project.ActionInitialise:
		return project.Initialise{}, nil
	case project.ActionCreateProject:
		return project.CreateProject{}, nil
	case project.ActionStoreProjectData:
		if s.Project == nil {
			return nil, fmt.Errorf("%s: project is required", s.Action)
		}
		return project.NewStoreProjectData(s.Project.data(), s.ExtraHashes...), nil
	case project.ActionFetchExpressionsForHashes:
		return project.NewFetchExpressionsForHashes(s.Hashes...), nil
	case project.ActionStoreProjectHash:
		return project.StoreProjectHash{Hash: s.Hash}, nil
	case project.ActionFetchExpressionSuccess:
		if s.Hash == "" {
			return nil, fmt.Errorf("%s: hash is required", s.Action)
		}
		if s.Expression == nil {
			return nil, fmt.Errorf("%s: expression is required", s.Action)
		}
		return project.FetchExpressionSuccess{
			Hash:        s.Hash,
			Data:        s.Expression.data(),
			ProjectHash: s.ProjectHash,
		}, nil
	case "":
		return nil, fmt.Errorf("action is required")
	default:
		return nil, fmt.Errorf("unknown action %q", s.Action)
	}
}

func (p ProjectDoc) data() ir.ProjectData {
	return ir.ProjectData{
		Hash:         p.Hash,
		Bindings:     ir.CloneBindings(p.Bindings),
		TypeBindings: ir.CloneBindings(p.TypeBindings),
	}
}

func (e ExpressionDoc) data() ir.ExpressionData {
	d := ir.ExpressionData{Source: e.Source, Type: e.Type, Pretty: e.Pretty}
	for _, ut := range e.UnitTests {
		d.UnitTests = append(d.UnitTests, ir.UnitTest{
			Name:       ut.Name,
			Success:    ut.Success,
			Expression: ut.Expression,
		})
	}
	return d
}
