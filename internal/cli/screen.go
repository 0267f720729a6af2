package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/exprstate/internal/session"
	"github.com/roach88/exprstate/internal/view"
)

// ScreenStack is the output of the screen commands, current screen first.
type ScreenStack struct {
	Screens []view.Screen `json:"screens"`
}

func (s ScreenStack) WriteText(w io.Writer) error {
	for i, sc := range s.Screens {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s", marker, sc.Kind)
		if sc.BindingName != "" {
			line += " " + sc.BindingName
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// NewScreenCommand creates the screen command and its subcommands.
func NewScreenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Show the session's editor screen stack",
		Long: `Show or change the editor screen stack saved for the session. The
first entry is the current screen. The stack is never empty: popping the
last screen keeps it.

Screen kinds: scratch, edit, new-expression, new-test, typeSearch, new-type.
An edit screen names the binding being edited.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateScreens(cmd, rootOpts, nil)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "push <kind> [binding]",
		Short: "Open a screen on top of the current one",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := parseScreen(args)
			if err != nil {
				return err
			}
			return updateScreens(cmd, rootOpts, view.PushScreen{Screen: sc})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "replace <kind> [binding]",
		Short: "Replace the current screen",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := parseScreen(args)
			if err != nil {
				return err
			}
			return updateScreens(cmd, rootOpts, view.ReplaceScreen{Screen: sc})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "pop",
		Short: "Return to the previous screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateScreens(cmd, rootOpts, view.PopScreen{})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Clear the stack back to the scratch screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateScreens(cmd, rootOpts, view.SetScreen{Screen: view.Screen{Kind: view.Scratch}})
		},
	})

	return cmd
}

func parseScreen(args []string) (view.Screen, error) {
	kind, ok := view.ParseScreenKind(args[0])
	if !ok {
		return view.Screen{}, NewExitError(ExitCommandError, fmt.Sprintf("unknown screen kind %q", args[0]))
	}
	sc := view.Screen{Kind: kind}
	if len(args) == 2 {
		sc.BindingName = args[1]
	}
	if kind == view.Edit && sc.BindingName == "" {
		return view.Screen{}, NewExitError(ExitCommandError, "edit screen needs a binding name")
	}
	if kind != view.Edit && sc.BindingName != "" {
		return view.Screen{}, NewExitError(ExitCommandError, fmt.Sprintf("%s screen takes no binding name", kind))
	}
	return sc, nil
}

// updateScreens applies action, when non-nil, to the saved stack and
// prints the result.
func updateScreens(cmd *cobra.Command, opts *RootOptions, action any) error {
	ctx, cancel := commandContext(cmd, opts.Logger)
	defer cancel()

	st, kv, err := openSession(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	screens := session.ScreensGet(ctx, kv)
	if action != nil {
		screens = view.Reduce(screens, action)
		if err := session.ScreensSet(ctx, kv, screens); err != nil {
			return WrapExitError(ExitCommandError, "failed to save screens", err)
		}
	}

	f := opts.formatter(cmd)
	f.Session = kv.ID()
	return f.Success(ScreenStack{Screens: screens.Stack()})
}
