package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/exprstate/internal/ir"
	"github.com/roach88/exprstate/internal/project"
)

// BindOptions holds flags for the bind command.
type BindOptions struct {
	*RootOptions
	Source      string
	Type        string
	Pretty      string
	TypeBinding bool
}

// BindResult is the output of the bind command.
type BindResult struct {
	Name    string      `json:"name"`
	Hash    ir.ExprHash `json:"hash"`
	Parent  ir.ExprHash `json:"parent"`
	Project ir.ExprHash `json:"project"`
}

func (r BindResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "bound %s to %s\nproject %s (from %s)\n", r.Name, r.Hash, r.Project, r.Parent)
	return err
}

// NewBindCommand creates the bind command.
func NewBindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bind <name>",
		Short: "Bind a name to a new expression (local backend only)",
		Long: `Store an expression and bind it to <name>, producing a new project that
replaces the session's current one. Requires --local.

Examples:
  exprstate bind id --local --source '\x -> x' --type 'a -> a'
  exprstate bind Maybe --local --type-binding --source 'type Maybe a = Just a | Nothing' --type 'Type'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBind(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "expression source (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "expression type (required)")
	cmd.Flags().StringVar(&opts.Pretty, "pretty", "", "pretty-printed source")
	cmd.Flags().BoolVar(&opts.TypeBinding, "type-binding", false, "bind in the type namespace")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runBind(cmd *cobra.Command, opts *BindOptions, name string) error {
	if !opts.Config.Local {
		return NewExitError(ExitCommandError, "bind requires --local")
	}

	return opts.run(cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
		if _, err := a.load(ctx); err != nil {
			return reportError(f, CodeBackend, err, nil)
		}

		parent := a.engine.State().ProjectHash
		data := ir.ExpressionData{Source: opts.Source, Type: opts.Type, Pretty: opts.Pretty}
		hash, err := ir.ContentHash(data)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to hash expression", err)
		}

		bind := a.local.AddBinding
		if opts.TypeBinding {
			bind = a.local.AddTypeBinding
		}
		next, err := bind(ctx, parent, name, data)
		if err != nil {
			return reportError(f, CodeBackend, WrapExitError(ExitCommandError, "failed to bind "+name, err), nil)
		}
		f.VerboseLog("project %s -> %s", parent, next.Hash)

		a.engine.Dispatch(project.NewStoreProjectData(next))
		if err := a.settle(ctx); err != nil {
			return err
		}

		return f.Success(BindResult{
			Name:    name,
			Hash:    hash,
			Parent:  parent,
			Project: next.Hash,
		})
	})
}
