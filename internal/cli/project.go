package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/exprstate/internal/engine"
	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
)

// ProjectSummary is the output of init and new.
type ProjectSummary struct {
	Project      ir.ExprHash   `json:"project"`
	Resumed      bool          `json:"resumed"`
	Bindings     int           `json:"bindings"`
	TypeBindings int           `json:"type_bindings"`
	Missing      []ir.ExprHash `json:"missing"`
}

func (s ProjectSummary) WriteText(w io.Writer) error {
	how := "created"
	if s.Resumed {
		how = "resumed"
	}
	fmt.Fprintf(w, "project  %s (%s)\n", s.Project, how)
	fmt.Fprintf(w, "bindings %d values, %d types\n", s.Bindings, s.TypeBindings)
	if len(s.Missing) > 0 {
		fmt.Fprintf(w, "missing  %d expressions\n", len(s.Missing))
	}
	return nil
}

func summarise(state project.State, resumed bool) ProjectSummary {
	missing := project.MissingHashes(state)
	if missing == nil {
		missing = []ir.ExprHash{}
	}
	return ProjectSummary{
		Project:      project.ProjectHash(state),
		Resumed:      resumed,
		Bindings:     len(state.Bindings),
		TypeBindings: len(state.TypeBindings),
		Missing:      missing,
	}
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Resume the session's project, or create one",
		Long: `Resume the project saved for this session and load its bindings and
expressions. A session with no saved project gets a new, empty one.

Examples:
  exprstate init --local
  exprstate init --backend https://editor.example.com --session work`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				resumed, err := a.load(ctx)
				if err != nil {
					return reportError(f, CodeBackend, err, nil)
				}
				return f.Success(summarise(a.engine.State(), resumed))
			})
		},
	}
}

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new empty project for this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				a.engine.Dispatch(project.CreateProject{})
				if err := a.settle(ctx); err != nil {
					return err
				}
				if err := a.requestError(engine.RequestCreateProject); err != nil {
					return reportError(f, CodeBackend, err, nil)
				}
				return f.Success(summarise(a.engine.State(), false))
			})
		},
	}
}
