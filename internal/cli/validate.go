package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cubefield/internal/config"
)

// ValidationResult holds config validation results.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a config file without running",
		Long: `Parse a YAML config file and check it against the configuration schema.

Every problem is reported, not only the first. Unknown fields are errors.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(path)
	if err != nil {
		var ve *config.ValidationError
		if !errors.As(err, &ve) {
			// unreadable or unparsable: a command error
			return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
		}
		return outputValidationProblems(formatter, ve.Problems)
	}

	formatter.VerboseLog("grid %s, %d window(s)", cfg.Grid, len(cfg.Windows))
	return formatter.Success(ValidationResult{Valid: true}, func(w io.Writer) {
		fmt.Fprintln(w, "✓ config valid")
	})
}

// outputValidationProblems reports schema violations. Exit code 1.
func outputValidationProblems(formatter *OutputFormatter, problems []string) error {
	result := ValidationResult{Valid: false, Problems: problems}
	msg := fmt.Sprintf("validation failed with %d problem(s)", len(problems))

	if formatter.Format == "json" {
		_ = formatter.Error(ErrCodeConfig, msg, result)
		return NewExitError(ExitFailure, msg)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, p := range problems {
		fmt.Fprintf(formatter.Writer, "  %s\n", p)
	}
	return NewExitError(ExitFailure, msg)
}
