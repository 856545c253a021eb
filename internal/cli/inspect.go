package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/store"
	"github.com/roach88/cubefield/internal/window"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
	Window   string
	Cube     string
	Since    int64
}

// CubeDump is the persisted hierarchy of one cube.
type CubeDump struct {
	ID       string        `json:"id"`
	Center   model.Vec3    `json:"center"`
	Color    string        `json:"color"`
	Symbols  []string      `json:"symbols"`
	SubCubes []SubCubeDump `json:"subcubes"`
}

// SubCubeDump is one persisted subcube with its vertex colors.
type SubCubeDump struct {
	Symbol   string   `json:"symbol"`
	Order    int      `json:"order"`
	Policy   string   `json:"policy,omitempty"`
	Legacy   bool     `json:"legacy,omitempty"`
	Vertices []string `json:"vertices"`
	Weight   float64  `json:"weight"`

	// UpdatedAt is the change marker of the row; pass it to --since.
	UpdatedAt int64 `json:"updated_at"`
}

// InspectResult is the output of inspect.
type InspectResult struct {
	Windows []string   `json:"windows"`
	Window  string     `json:"window,omitempty"`
	Cubes   []CubeDump `json:"cubes"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Dump the persisted cube hierarchy",
		Long: `Print the cubes, subcubes and vertex colors stored under a window.

Without --window only the stored window ids are listed. With --since only
subcubes written after the given change marker are dumped, and cubes with
no such subcube are left out.

Example:
  cubefield inspect --db cubefield.db
  cubefield inspect --db cubefield.db --window 0190a6f2-... --cube 0190a6f2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Window, "window", "", "window whose data to dump")
	cmd.Flags().StringVar(&opts.Cube, "cube", "", "only dump this cube")
	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only dump subcubes changed after this marker (unix nanoseconds)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := cmd.Context()

	st, err := openStore(opts.Database, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	ids, err := st.WindowIDs(ctx)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, "failed to list windows", err)
	}
	result := InspectResult{Windows: ids, Cubes: []CubeDump{}}

	if opts.Window != "" {
		result.Window = window.NormalizeID(opts.Window)
		cubes, err := st.CubesByWindow(ctx, result.Window)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeStore, "failed to read cubes", err)
		}
		var changed map[string][]model.SubCube
		if cmd.Flags().Changed("since") {
			changed, err = changedSince(cmd, st, result.Window, opts.Since)
			if err != nil {
				return formatter.Fail(ExitFailure, ErrCodeStore, "failed to read changed subcubes", err)
			}
		}
		for _, c := range cubes {
			if opts.Cube != "" && c.ID != window.NormalizeID(opts.Cube) {
				continue
			}
			subs, ok := changed[c.ID]
			if changed != nil && !ok {
				continue
			}
			if changed == nil {
				if subs, err = st.SubCubesByCube(ctx, c.WindowID, c.ID); err != nil {
					return formatter.Fail(ExitFailure, ErrCodeStore, "failed to read cube "+c.ID, err)
				}
			}
			dump, err := dumpCube(cmd, st, c, subs)
			if err != nil {
				return formatter.Fail(ExitFailure, ErrCodeStore, "failed to read cube "+c.ID, err)
			}
			result.Cubes = append(result.Cubes, dump)
		}
	}

	return formatter.Success(result, func(w io.Writer) { writeInspect(w, result) })
}

// changedSince groups the subcubes of windowID written after since by cube.
func changedSince(cmd *cobra.Command, st *store.Store, windowID string, since int64) (map[string][]model.SubCube, error) {
	subs, err := st.SubCubesChangedSince(cmd.Context(), windowID, since)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]model.SubCube)
	for _, sub := range subs {
		out[sub.CubeID] = append(out[sub.CubeID], sub)
	}
	return out, nil
}

func dumpCube(cmd *cobra.Command, st *store.Store, c model.Cube, subs []model.SubCube) (CubeDump, error) {
	ctx := cmd.Context()
	dump := CubeDump{ID: c.ID, Center: c.Center, Color: c.Color.Hex(), Symbols: c.SubIDs, SubCubes: []SubCubeDump{}}

	for _, sub := range subs {
		verts, err := st.VerticesBySubCube(ctx, c.WindowID, c.ID, sub.ID)
		if err != nil {
			return dump, err
		}
		sd := SubCubeDump{
			Symbol:   sub.ID,
			Order:    sub.Order,
			Policy:   sub.Policy,
			Legacy:   sub.Center == nil,
			Vertices: make([]string, len(verts)),

			UpdatedAt: sub.UpdatedAt,
		}
		for i, v := range verts {
			sd.Vertices[i] = v.Color.Hex()
			sd.Weight = v.Weight
		}
		dump.SubCubes = append(dump.SubCubes, sd)
	}
	return dump, nil
}

func writeInspect(w io.Writer, r InspectResult) {
	fmt.Fprintf(w, "windows: %d\n", len(r.Windows))
	for _, id := range r.Windows {
		fmt.Fprintf(w, "  %s\n", id)
	}
	if r.Window == "" {
		return
	}
	fmt.Fprintf(w, "\nwindow %s: %d cube(s)\n", r.Window, len(r.Cubes))
	for _, c := range r.Cubes {
		fmt.Fprintf(w, "cube %s center=(%.1f, %.1f, %.1f) color=%s\n", c.ID, c.Center[0], c.Center[1], c.Center[2], c.Color)
		for _, s := range c.SubCubes {
			tag := ""
			if s.Legacy {
				tag = " (legacy)"
			}
			fmt.Fprintf(w, "  %-3s order=%d weight=%g%s %v\n", s.Symbol, s.Order, s.Weight, tag, s.Vertices)
		}
	}
}
