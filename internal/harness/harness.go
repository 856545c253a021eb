package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/cubefield/internal/blend"
	"github.com/roach88/cubefield/internal/engine"
	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/notify"
	"github.com/roach88/cubefield/internal/store"
	"github.com/roach88/cubefield/internal/testutil"
	"github.com/roach88/cubefield/internal/window"
)

// observer is the bus origin the harness listens as.
const observer = "harness-observer"

// Harness drives one scenario.
type Harness struct {
	store    *store.Store
	scene    *engine.Scene
	windows  *window.Static
	settings engine.Settings
	bus      *notify.Bus
	sub      *notify.Subscription
	logger   *slog.Logger
}

// Run executes scenario in a fresh database under dir and evaluates its
// assertions. A step failing unexpectedly stops the run; the remaining
// steps are skipped and the result fails.
func Run(scenario *Scenario, dir string) (*Result, error) {
	st, err := store.Open(filepath.Join(dir, "scenario.db"),
		store.WithClock(testutil.NewStepClock(time.Microsecond).Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	settings := engine.DefaultSettings()
	if scenario.Grid != nil {
		settings.Grid = *scenario.Grid
	}
	if scenario.Policy != "" {
		if settings.Policy, err = blend.ParsePolicy(scenario.Policy); err != nil {
			return nil, err
		}
	}
	self := scenario.Self
	if self == "" {
		self = "me"
	}

	bus := notify.NewBus()
	h := &Harness{
		store:    st,
		windows:  window.NewStatic(self, scenario.Windows...),
		settings: settings,
		bus:      bus,
		sub:      bus.Subscribe(observer, 4096),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	defer h.sub.Close()

	if err := h.open(); err != nil {
		return nil, err
	}
	defer func() { h.scene.Close() }()

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		ev, ok := h.executeStep(ctx, i, step)
		result.AddTrace(ev)
		if !ok {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i, step.Op, ev.Error))
			return result, nil
		}
		h.logger.Info("step completed", "step", i, "op", step.Op, "cubes", ev.Cubes)
	}

	actx := &AssertionContext{Ctx: ctx, Store: st, Scene: h.scene, Self: self}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) open() error {
	scene, err := engine.New(h.store, h.windows, h.settings,
		engine.WithLogger(h.logger),
		engine.WithPublisher(h.bus),
	)
	if err != nil {
		return fmt.Errorf("failed to create scene: %w", err)
	}
	h.scene = scene
	return nil
}

// executeStep runs one step, flushes the writer and reports the trace event.
// ok is false when the step's outcome does not match its expectation.
func (h *Harness) executeStep(ctx context.Context, index int, step Step) (TraceEvent, bool) {
	err := h.apply(ctx, step)
	if err == nil {
		err = h.scene.Flush(ctx)
	}

	ev := TraceEvent{
		Step:      index,
		Op:        step.Op,
		Cubes:     len(h.scene.Cubes()),
		Published: h.drain(),
	}

	switch {
	case step.ExpectError != "" && err == nil:
		ev.Error = fmt.Sprintf("expected error containing %q, got none", step.ExpectError)
		return ev, false
	case step.ExpectError != "":
		ev.Error = err.Error()
		if !strings.Contains(err.Error(), step.ExpectError) {
			return ev, false
		}
		return ev, true
	case err != nil:
		ev.Error = err.Error()
		return ev, false
	}
	return ev, true
}

func (h *Harness) apply(ctx context.Context, step Step) error {
	switch step.Op {
	case OpSync:
		return h.scene.SyncWindows(ctx)
	case OpRestore:
		return h.scene.Restore(ctx)
	case OpPaint:
		return h.scene.SetSubCubeColor(ctx, step.Row, step.Col, step.Layer, step.Color)
	case OpWeight:
		return h.scene.SetSubCubeWeight(ctx, step.Row, step.Col, step.Layer, step.Weight)
	case OpApplyColors:
		colors := make([]model.Color, len(step.Colors))
		for i, hex := range step.Colors {
			c, err := model.ParseHex(hex)
			if err != nil {
				return err
			}
			colors[i] = c
		}
		return h.scene.ApplyColorData(ctx, colors)
	case OpFrame:
		n := max(step.Count, 1)
		for range n {
			if err := h.scene.Frame(ctx, step.DT); err != nil {
				return err
			}
		}
		return nil
	case OpRelayout:
		return h.scene.Relayout(ctx, *step.Grid)
	case OpSetWindows:
		h.windows.Set(step.Windows)
		return h.scene.SyncWindows(ctx)
	case OpReopen:
		h.scene.Close()
		if err := h.open(); err != nil {
			return err
		}
		return h.scene.Restore(ctx)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

// drain counts the notifications waiting on the observer subscription.
func (h *Harness) drain() int {
	n := 0
	for {
		select {
		case <-h.sub.C():
			n++
		default:
			return n
		}
	}
}
