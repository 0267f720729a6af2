package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
)

// BindingRow is one binding and whether its expression is loaded.
type BindingRow struct {
	Name     string      `json:"name"`
	Hash     ir.ExprHash `json:"hash"`
	Resolved bool        `json:"resolved"`
}

// BindingList is the output of the bindings command.
type BindingList struct {
	Project      ir.ExprHash  `json:"project"`
	Bindings     []BindingRow `json:"bindings"`
	TypeBindings []BindingRow `json:"type_bindings"`
}

func (l BindingList) WriteText(w io.Writer) error {
	if len(l.Bindings)+len(l.TypeBindings) == 0 {
		_, err := fmt.Fprintln(w, "No bindings.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range l.Bindings {
		writeBindingRow(tw, "value", row)
	}
	for _, row := range l.TypeBindings {
		writeBindingRow(tw, "type", row)
	}
	return tw.Flush()
}

func writeBindingRow(w io.Writer, kind string, row BindingRow) {
	mark := ""
	if !row.Resolved {
		mark = "(missing)"
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kind, row.Name, row.Hash, mark)
}

func bindingRows(bindings map[string]ir.ExprHash, state project.State) []BindingRow {
	rows := make([]BindingRow, 0, len(bindings))
	for _, name := range ir.SortedNames(bindings) {
		hash := bindings[name]
		rows = append(rows, BindingRow{
			Name:     name,
			Hash:     hash,
			Resolved: project.FindExpression(hash, state).IsSome(),
		})
	}
	return rows
}

// NewBindingsCommand creates the bindings command.
func NewBindingsCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "bindings",
		Short: "List the project's bindings",
		Long: `List the value and type bindings of the session's project.

--filter keeps names containing every character of the filter, in any
order, ignoring case.

Examples:
  exprstate bindings --local
  exprstate bindings --filter map --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				if _, err := a.load(ctx); err != nil {
					return reportError(f, CodeBackend, err, nil)
				}
				state := a.engine.State()
				f.VerboseLog("project %s: %d bindings, %d types", state.ProjectHash, len(state.Bindings), len(state.TypeBindings))

				return f.Success(BindingList{
					Project:      state.ProjectHash,
					Bindings:     bindingRows(project.FilterBindings(filter, state.Bindings), state),
					TypeBindings: bindingRows(project.FilterBindings(filter, state.TypeBindings), state),
				})
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only names containing these characters")
	return cmd
}
