package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
	"github.com/roach88/exprstate/internal/remote"
)

// FetchRow is the outcome for one requested hash.
type FetchRow struct {
	Hash    ir.ExprHash `json:"hash"`
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
}

// FetchReport is the output of the fetch command.
type FetchReport struct {
	Results []FetchRow `json:"results"`
	Stored  int        `json:"stored"`
}

func (r FetchReport) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range r.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Hash, row.Status, row.Message)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d expressions loaded\n", r.Stored)
	return err
}

func (r FetchReport) failed() int {
	n := 0
	for _, row := range r.Results {
		if row.Status != remote.Success.String() {
			n++
		}
	}
	return n
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <hash>...",
		Short: "Fetch expressions by hash",
		Long: `Fetch expressions by hash in the context of the session's project.
Hashes that are already loaded are not requested again.

Exit codes:
  0 - Every hash was fetched
  1 - At least one hash could not be fetched
  2 - Command error (config, database, project)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashes := make([]ir.ExprHash, len(args))
			for i, arg := range args {
				hashes[i] = ir.ExprHash(arg)
			}

			return rootOpts.run(cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				if _, err := a.load(ctx); err != nil {
					return reportError(f, CodeBackend, err, nil)
				}

				a.engine.Dispatch(project.NewFetchExpressionsForHashes(hashes...))
				if err := a.settle(ctx); err != nil {
					return err
				}

				report := FetchReport{Stored: a.engine.State().Store.Len()}
				for _, h := range hashes {
					s := a.fetchStatus(h)
					report.Results = append(report.Results, FetchRow{
						Hash:    h,
						Status:  s.Kind.String(),
						Message: s.Message,
					})
				}

				if err := f.Success(report); err != nil {
					return err
				}
				if n := report.failed(); n > 0 {
					return NewExitError(ExitFailure, fmt.Sprintf("%d of %d hashes not fetched", n, len(hashes)))
				}
				return nil
			})
		},
	}
}
