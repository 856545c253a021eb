package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cubefield/internal/compute"
	"github.com/roach88/cubefield/internal/model"
)

// FieldOptions holds flags for the field command.
type FieldOptions struct {
	*RootOptions
	Width   int
	Height  int
	Steps   int
	Time    float64
	DT      float64
	Workers int
	Motion  bool
}

// FieldResult is the output of field.
type FieldResult struct {
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Generation uint64       `json:"generation"`
	Time       float64      `json:"time"`
	Colors     []string     `json:"colors"`
	Positions  []model.Vec3 `json:"positions,omitempty"`
	Velocities []model.Vec3 `json:"velocities,omitempty"`
}

// NewFieldCommand creates the field command.
func NewFieldCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FieldOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "field",
		Short: "Step the color field and print its cells",
		Long: `Run the color field on a width x height grid for a number of steps and
print every cell. Cell i colors the subcube at raster position i of a
field-driven cube. With --motion the position and velocity fields are
stepped alongside.

Example:
  cubefield field --width 3 --height 3 --steps 10 --time 4.5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runField(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Width, "width", 3, "field width in cells")
	cmd.Flags().IntVar(&opts.Height, "height", 3, "field height in cells")
	cmd.Flags().IntVar(&opts.Steps, "steps", 1, "number of steps to run")
	cmd.Flags().Float64Var(&opts.Time, "time", 0, "animation time of the first step in seconds")
	cmd.Flags().Float64Var(&opts.DT, "dt", 1.0/60, "time between steps in seconds")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "row bands evaluated concurrently (below 2 runs sequentially)")
	cmd.Flags().BoolVar(&opts.Motion, "motion", false, "also step the position and velocity fields")

	return cmd
}

func runField(opts *FieldOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Steps < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeArgument, fmt.Sprintf("invalid steps %d", opts.Steps), nil)
	}

	e, err := compute.New(opts.Width, opts.Height, compute.WithWorkers(opts.Workers), compute.WithLogger(logger))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeArgument, "invalid field", err)
	}
	color, err := compute.DeclareColorField(e)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to declare color field", err)
	}
	var pos, vel *compute.Variable
	if opts.Motion {
		pos, vel, err = compute.DeclareMotionFields(e)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to declare motion fields", err)
		}
	}
	if err := e.Initialize(); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to initialize field", err)
	}

	t := opts.Time
	for i := 0; i < opts.Steps; i++ {
		t = opts.Time + float64(i)*opts.DT
		e.SetUniform(color, compute.UniformTime, float32(t))
		e.Step()
	}

	result := FieldResult{
		Width:      e.Width(),
		Height:     e.Height(),
		Generation: e.Generation(),
		Time:       t,
	}
	for _, v := range e.Sample(color).Data() {
		result.Colors = append(result.Colors, model.RGB(float64(v[0]), float64(v[1]), float64(v[2])).Hex())
	}
	if opts.Motion {
		result.Positions = vec3s(e.Sample(pos))
		result.Velocities = vec3s(e.Sample(vel))
	}
	logger.Debug("field stepped", "width", result.Width, "height", result.Height, "generation", result.Generation)

	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "field %dx%d after %d step(s), t=%g\n", result.Width, result.Height, result.Generation, result.Time)
		for i, c := range result.Colors {
			if opts.Motion {
				p := result.Positions[i]
				fmt.Fprintf(w, "%4d  %s  (%.2f, %.2f, %.2f)\n", i, c, p[0], p[1], p[2])
				continue
			}
			fmt.Fprintf(w, "%4d  %s\n", i, c)
		}
	})
}

func vec3s(b *compute.Buffer) []model.Vec3 {
	out := make([]model.Vec3, b.Len())
	for i, v := range b.Data() {
		out[i] = model.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
	}
	return out
}
