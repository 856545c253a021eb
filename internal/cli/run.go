package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cubefield/internal/compute"
	"github.com/roach88/cubefield/internal/engine"
	"github.com/roach88/cubefield/internal/metrics"
	"github.com/roach88/cubefield/internal/notify"
	"github.com/roach88/cubefield/internal/persist"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	sceneFlags

	Frames      int
	FPS         int
	Markers     string
	MetricsAddr string

	// Clock overrides the frame clock (for testing). Defaults to the system clock.
	Clock engine.Clock
}

// RunResult summarizes a finished run.
type RunResult struct {
	Window  string   `json:"window"`
	Frames  int      `json:"frames"`
	Cubes   int      `json:"cubes"`
	Purged  []string `json:"purged"`
	Applied int      `json:"applied_changes"`
	Seconds float64  `json:"seconds"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the headless frame loop",
		Long: `Run the scene for this window without rendering.

Stale windows are purged from the store, one cube per configured window is
built, and frames are stepped at --fps until --frames have run or the process
is interrupted. With --markers, edits are announced to (and picked up from)
other instances through marker files in that directory. This window's data
is removed on exit.

Example:
  cubefield run --config cubefield.yaml --frames 600
  cubefield run --db /tmp/shared.db --markers /tmp/markers --metrics-addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScene(opts, cmd)
		},
	}

	opts.sceneFlags.register(cmd)
	cmd.Flags().IntVar(&opts.Frames, "frames", 0, "stop after this many frames (0 = until interrupted; overrides config)")
	cmd.Flags().IntVar(&opts.FPS, "fps", 0, "frames per second (overrides config)")
	cmd.Flags().StringVar(&opts.Markers, "markers", "", "marker directory shared with other instances (overrides config)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")

	return cmd
}

func runScene(opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := opts.load(cmd, true)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if cmd.Flags().Changed("frames") {
		cfg.Frames = opts.Frames
	}
	if cmd.Flags().Changed("fps") {
		cfg.FPS = opts.FPS
	}
	if cmd.Flags().Changed("markers") {
		cfg.Markers = opts.Markers
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	if cfg.FPS < 1 {
		return formatter.Fail(ExitCommandError, ErrCodeArgument, fmt.Sprintf("invalid fps %d", cfg.FPS), nil)
	}
	settings, err := sceneSettings(cfg, opts.Policy)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid scene settings", err)
	}

	logger = logger.With("window", cfg.Self)
	logger.Info("opening database", "path", cfg.DB)
	st, err := openStore(cfg.DB, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	m := metrics.New(nil)
	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, m.Handler(), logger)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeArgument, "failed to serve metrics", err)
		}
		defer stop()
	}

	sceneOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithWriterOptions(persist.WithShards(cfg.Shards), persist.WithObserver(m)),
		engine.WithFieldOptions(compute.WithWorkers(cfg.Workers), compute.WithObserver(m)),
		engine.WithStartTime(engine.SecondsSinceMidnight(time.Now())),
	}

	var changes <-chan notify.Notification
	if cfg.Markers != "" {
		pub, err := notify.NewMarkerDir(cfg.Markers, cfg.Self)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeArgument, "failed to open marker directory", err)
		}
		w, err := notify.NewWatcher(pub.Dir(), cfg.Self, logger)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeArgument, "failed to watch marker directory", err)
		}
		go w.Run(ctx)
		changes = w.C()
		sceneOpts = append(sceneOpts, engine.WithPublisher(pub))
	}

	scene, err := engine.New(st, windowsFor(cfg), settings, sceneOpts...)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeScene, "failed to create scene", err)
	}

	purged, err := scene.Start(ctx)
	if err != nil {
		scene.Shutdown(context.Background())
		return formatter.Fail(ExitFailure, ErrCodeScene, "failed to start scene", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}
	result := RunResult{Window: cfg.Self, Purged: purged}
	start := clock.Now()

	logger.Info("scene started", "windows", len(scene.Cubes()), "fps", cfg.FPS, "frames", cfg.Frames)
	loopErr := frameLoop(ctx, scene, engine.NewFrameTimer(clock), cfg.FPS, cfg.Frames, changes, &result, logger)

	result.Cubes = len(scene.Cubes())
	result.Seconds = clock.Now().Sub(start).Seconds()
	if err := scene.Shutdown(context.Background()); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	if loopErr != nil {
		return formatter.Fail(ExitFailure, ErrCodeScene, "frame loop failed", loopErr)
	}

	logger.Info("scene stopped", "frames", result.Frames)
	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "window %s: %d frame(s), %d cube(s), %d change(s) applied\n",
			result.Window, result.Frames, result.Cubes, result.Applied)
		if len(result.Purged) > 0 {
			fmt.Fprintf(w, "purged stale windows: %v\n", result.Purged)
		}
	})
}

// frameLoop steps the scene once per tick until frames have run (0 = no
// limit) or ctx is done. Peer changes are applied between frames.
func frameLoop(
	ctx context.Context,
	scene *engine.Scene,
	timer *engine.FrameTimer,
	fps, frames int,
	changes <-chan notify.Notification,
	result *RunResult,
	logger *slog.Logger,
) error {
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for frames == 0 || result.Frames < frames {
		select {
		case <-ctx.Done():
			return nil

		case n, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if err := scene.ApplyChange(ctx, n); err != nil {
				logger.Warn("apply change failed", "cube", n.CubeID, "subcube", n.SubCubeID, "error", err)
				continue
			}
			result.Applied++

		case <-ticker.C:
			if err := scene.Frame(ctx, timer.Tick()); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			result.Frames++
		}
	}
	return nil
}

// serveMetrics starts an HTTP server for h on addr and returns its stop func.
func serveMetrics(addr string, h http.Handler, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}
