package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
	"github.com/roach88/exprstate/internal/session"
	"github.com/roach88/exprstate/internal/view"
)

// ExpressionView is the output of the show command.
type ExpressionView struct {
	Name    string        `json:"name"`
	Hash    ir.ExprHash   `json:"hash"`
	Source  string        `json:"source"`
	Type    string        `json:"type"`
	Pretty  string        `json:"pretty,omitempty"`
	Tests   []ir.UnitTest `json:"tests"`
	Summary string        `json:"summary,omitempty"`
}

func (v ExpressionView) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "%s : %s\n", v.Name, v.Type)
	body := v.Pretty
	if body == "" {
		body = v.Source
	}
	fmt.Fprintln(w, body)
	if v.Summary == "" {
		return nil
	}
	fmt.Fprintf(w, "\n%s\n", v.Summary)
	for _, ut := range v.Tests {
		status := "ok  "
		if !ut.Success {
			status = "FAIL"
		}
		fmt.Fprintf(w, "  %s %s\n", status, ut.Name)
	}
	return nil
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the expression bound to a name",
		Long: `Show the expression bound to <name>, looking in value bindings first
and then type bindings. The expression is fetched if it is not loaded yet.

Showing a binding opens it in the session's editor screen stack (see
"exprstate screen").

Examples:
  exprstate show id --local
  exprstate show Maybe --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return rootOpts.run(cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				if _, err := a.load(ctx); err != nil {
					return reportError(f, CodeBackend, err, nil)
				}

				hash, ok := project.FindHashForAnyBinding(name, a.engine.State()).Get()
				if !ok {
					return reportError(f, CodeNotFound,
						NewExitError(ExitFailure, fmt.Sprintf("no binding named %q", name)), nil)
				}

				expr, ok := project.FindExpressionForAnyBinding(name, a.engine.State()).Get()
				if !ok {
					f.VerboseLog("fetching %s", hash)
					a.engine.Dispatch(project.NewFetchExpressionsForHashes(hash))
					if err := a.settle(ctx); err != nil {
						return err
					}
					expr, ok = project.FindExpressionForAnyBinding(name, a.engine.State()).Get()
				}
				if !ok {
					status := a.fetchStatus(hash)
					return reportError(f, CodeFetch,
						NewExitError(ExitFailure, fmt.Sprintf("expression %s for %q not available: %s", hash, name, status)),
						map[string]string{"hash": string(hash), "status": status.String()})
				}

				if err := openEditScreen(ctx, a, name); err != nil {
					a.logger.Warn("could not record screen", "binding", name, "error", err)
				}

				tests := project.FailingFirst(expr.UnitTests)
				return f.Success(ExpressionView{
					Name:    name,
					Hash:    hash,
					Source:  expr.Source,
					Type:    expr.Type,
					Pretty:  expr.Pretty,
					Tests:   tests,
					Summary: project.SummariseTests(tests),
				})
			})
		},
	}
}

// openEditScreen pushes an edit screen for name unless it is already the
// current screen.
func openEditScreen(ctx context.Context, a *app, name string) error {
	screens := session.ScreensGet(ctx, a.kv)
	edit := view.Screen{Kind: view.Edit, BindingName: name}
	if view.CurrentScreen(screens) == edit {
		return nil
	}
	return session.ScreensSet(ctx, a.kv, view.Reduce(screens, view.PushScreen{Screen: edit}))
}
