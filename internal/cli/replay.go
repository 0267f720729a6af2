package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/exprstate/internal/harness"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Snapshot bool
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	File     string   `json:"file"`
	Name     string   `json:"name,omitempty"`
	Pass     bool     `json:"pass"`
	Steps    int      `json:"steps"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
	Snapshot string   `json:"snapshot,omitempty"`
}

// ReplayReport is the output of the replay command.
type ReplayReport struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
}

func (r ReplayReport) WriteText(w io.Writer) error {
	for _, s := range r.Scenarios {
		status := "PASS"
		if !s.Pass {
			status = "FAIL"
		}
		name := s.Name
		if name == "" {
			name = s.File
		}
		fmt.Fprintf(w, "%s %s (%d steps, %d rejected)\n", status, name, s.Steps, s.Rejected)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		if s.Snapshot != "" {
			fmt.Fprintf(w, "%s\n", s.Snapshot)
		}
	}
	_, err := fmt.Fprintf(w, "\n%d passed, %d failed\n", r.Passed, r.Failed)
	return err
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>...",
		Short: "Replay action scenarios against the reducer",
		Long: `Replay YAML scenarios: each step is applied to the project reducer in
order and the final state is checked against the scenario's expectations.
No backend or database is used.

Exit codes:
  0 - All scenarios passed
  1 - At least one scenario failed
  2 - Command error (unreadable or invalid scenario)

Examples:
  exprstate replay testdata/scenarios/*.yaml
  exprstate replay resume.yaml --snapshot`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Snapshot, "snapshot", false, "include the canonical trace snapshot")
	return cmd
}

func runReplay(cmd *cobra.Command, opts *ReplayOptions, files []string) error {
	f := opts.formatter(cmd)

	var report ReplayReport
	for _, file := range files {
		f.VerboseLog("replaying %s", file)

		scenario, err := harness.LoadScenario(file)
		if err != nil {
			return reportError(f, CodeScenario,
				WrapExitError(ExitCommandError, "failed to load "+file, err), nil)
		}
		result, err := harness.Run(scenario)
		if err != nil {
			return reportError(f, CodeScenario,
				WrapExitError(ExitCommandError, "failed to run "+file, err), nil)
		}

		sr := ScenarioResult{
			File:     file,
			Name:     scenario.Name,
			Pass:     result.Pass,
			Steps:    len(result.Trace),
			Rejected: result.RejectedSteps(),
			Errors:   result.Errors,
		}
		if opts.Snapshot {
			snap, err := harness.Snapshot(scenario.Name, result)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to render snapshot", err)
			}
			sr.Snapshot = string(snap)
		}

		if sr.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Scenarios = append(report.Scenarios, sr)
	}

	if err := f.Success(report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", report.Failed, len(files)))
	}
	return nil
}
