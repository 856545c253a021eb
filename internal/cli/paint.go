package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cubefield/internal/engine"
	"github.com/roach88/cubefield/internal/notify"
)

// PaintOptions holds flags for the paint command.
type PaintOptions struct {
	*RootOptions
	sceneFlags

	Row, Col, Layer float64
	Color           string
	Weight          float64
	Markers         string
}

// PaintResult describes the edited subcube after the edit.
type PaintResult struct {
	Window string              `json:"window"`
	Symbol string              `json:"symbol"`
	Cell   string              `json:"cell"`
	Color  string              `json:"color"`
	Weight float64             `json:"weight"`
	Matrix engine.VertexMatrix `json:"vertices"`
}

// NewPaintCommand creates the paint command.
func NewPaintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PaintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "paint",
		Short: "Set the color or weight of one subcube of this window's cube",
		Long: `Apply one edit to this window's cube and persist it.

The stored state of the window is restored first, so earlier edits survive.
Coordinates are centered on the middle of the grid: on a 2x2x2 grid -0.5 and
0.5 address the two cells of each axis. Out of range values are clamped.
With --markers the edit is announced to running instances.

Example:
  cubefield paint --self me --row -0.5 --col -0.5 --layer 0.5 --color "#00ff00"
  cubefield paint --config cubefield.yaml --row 0 --col 0 --layer 0 --weight 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPaint(opts, cmd)
		},
	}

	opts.sceneFlags.register(cmd)
	cmd.Flags().Float64Var(&opts.Row, "row", 0, "centered row coordinate")
	cmd.Flags().Float64Var(&opts.Col, "col", 0, "centered column coordinate")
	cmd.Flags().Float64Var(&opts.Layer, "layer", 0, "centered layer coordinate")
	cmd.Flags().StringVar(&opts.Color, "color", "", "new color (#rrggbb)")
	cmd.Flags().Float64Var(&opts.Weight, "weight", 1, "new blend weight")
	cmd.Flags().StringVar(&opts.Markers, "markers", "", "marker directory to announce the edit in (overrides config)")

	return cmd
}

func runPaint(opts *PaintOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := cmd.Context()

	setColor := cmd.Flags().Changed("color")
	setWeight := cmd.Flags().Changed("weight")
	if !setColor && !setWeight {
		return formatter.Fail(ExitCommandError, ErrCodeArgument, "nothing to paint: set --color or --weight", nil)
	}

	cfg, err := opts.load(cmd, false)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if cmd.Flags().Changed("markers") {
		cfg.Markers = opts.Markers
	}
	settings, err := sceneSettings(cfg, opts.Policy)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid scene settings", err)
	}

	st, err := openStore(cfg.DB, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	sceneOpts := []engine.Option{engine.WithLogger(logger)}
	if cfg.Markers != "" {
		pub, err := notify.NewMarkerDir(cfg.Markers, cfg.Self)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeArgument, "failed to open marker directory", err)
		}
		sceneOpts = append(sceneOpts, engine.WithPublisher(pub))
	}

	scene, err := engine.New(st, windowsFor(cfg), settings, sceneOpts...)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeScene, "failed to create scene", err)
	}
	defer scene.Close()

	if err := scene.Restore(ctx); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, "failed to restore window state", err)
	}
	if setColor {
		if err := scene.SetSubCubeColor(ctx, opts.Row, opts.Col, opts.Layer, opts.Color); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeScene, "failed to set color", err)
		}
	}
	if setWeight {
		if err := scene.SetSubCubeWeight(ctx, opts.Row, opts.Col, opts.Layer, opts.Weight); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeScene, "failed to set weight", err)
		}
	}
	if err := scene.Flush(ctx); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, "failed to persist edit", err)
	}

	result, err := paintResult(scene, opts)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeScene, "failed to read result", err)
	}
	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "window %s subcube %s (%s): color=%s weight=%g\n",
			result.Window, result.Symbol, result.Cell, result.Color, result.Weight)
	})
}

func paintResult(scene *engine.Scene, opts *PaintOptions) (PaintResult, error) {
	self := scene.ThisWindowID()
	cube, ok := scene.Cube(self)
	if !ok {
		return PaintResult{}, engine.ErrNoCube
	}
	m, err := scene.ExportMatrix(self)
	if err != nil {
		return PaintResult{}, err
	}
	cell := engine.CellAt(cube.Extents, opts.Row, opts.Col, opts.Layer)
	for _, sub := range cube.SubCubes {
		if sub.Cell != cell {
			continue
		}
		return PaintResult{
			Window: self,
			Symbol: sub.Symbol,
			Cell:   sub.Cell.String(),
			Color:  sub.Color.Hex(),
			Weight: sub.Weight,
			Matrix: m[sub.Cell.String()],
		}, nil
	}
	return PaintResult{}, fmt.Errorf("no subcube at %s", cell)
}
