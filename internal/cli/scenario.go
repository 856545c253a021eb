package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cubefield/internal/harness"
)

// ScenarioRun is the outcome of one scenario file.
type ScenarioRun struct {
	File   string               `json:"file"`
	Name   string               `json:"name"`
	Pass   bool                 `json:"pass"`
	Trace  []harness.TraceEvent `json:"trace"`
	Errors []string             `json:"errors,omitempty"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario <scenario-file>...",
		Short: "Run scripted scene scenarios against a scratch database",
		Long: `Run each scenario file in its own temporary database and report whether
its steps and assertions passed.

Exits with code 1 when any scenario fails.

Example:
  cubefield scenario internal/harness/testdata/scenarios/*.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runScenarios(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	runs := make([]ScenarioRun, 0, len(files))
	failed := 0
	for _, file := range files {
		s, err := harness.LoadScenario(file)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeArgument, "failed to load scenario "+file, err)
		}
		run, err := runScenario(file, s)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeScene, "failed to run scenario "+s.Name, err)
		}
		formatter.VerboseLog("%s: pass=%t steps=%d", s.Name, run.Pass, len(run.Trace))
		if !run.Pass {
			failed++
		}
		runs = append(runs, run)
	}

	if failed > 0 {
		_ = formatter.Error(ErrCodeScene, fmt.Sprintf("%d of %d scenario(s) failed", failed, len(runs)), runs)
		return NewExitError(ExitFailure, "scenarios failed")
	}
	return formatter.Success(runs, func(w io.Writer) {
		for _, r := range runs {
			fmt.Fprintf(w, "✓ %s (%d step(s))\n", r.Name, len(r.Trace))
		}
	})
}

func runScenario(file string, s *harness.Scenario) (ScenarioRun, error) {
	dir, err := os.MkdirTemp("", "cubefield-scenario-*")
	if err != nil {
		return ScenarioRun{}, err
	}
	defer os.RemoveAll(dir)

	result, err := harness.Run(s, dir)
	if err != nil {
		return ScenarioRun{}, err
	}
	return ScenarioRun{File: file, Name: s.Name, Pass: result.Pass, Trace: result.Trace, Errors: result.Errors}, nil
}
