package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cubefield/internal/window"
)

// PurgeOptions holds flags for the purge command.
type PurgeOptions struct {
	*RootOptions
	Database string
	Live     []string
}

// PurgeResult lists the windows whose data was removed.
type PurgeResult struct {
	Live   []string `json:"live"`
	Purged []string `json:"purged"`
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PurgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete stored data of windows that are gone",
		Long: `Delete every cube, subcube and vertex stored under a window id that is
not in the live set. With an empty --live every window is purged.

Example:
  cubefield purge --db cubefield.db --live a,b`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringSliceVar(&opts.Live, "live", nil, "comma-separated live window ids")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runPurge(opts *PurgeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	live := make([]string, 0, len(opts.Live))
	for _, id := range opts.Live {
		if id = strings.TrimSpace(id); id != "" {
			live = append(live, window.NormalizeID(id))
		}
	}

	st, err := openStore(opts.Database, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	purged, err := st.PurgeStale(cmd.Context(), live)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, "purge failed", err)
	}
	logger.Debug("purge finished", "live", live, "purged", purged)

	result := PurgeResult{Live: live, Purged: purged}
	return formatter.Success(result, func(w io.Writer) {
		if len(purged) == 0 {
			fmt.Fprintln(w, "nothing to purge")
			return
		}
		fmt.Fprintf(w, "purged %d window(s):\n", len(purged))
		for _, id := range purged {
			fmt.Fprintf(w, "  %s\n", id)
		}
	})
}
