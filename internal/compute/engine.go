package compute

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Platform describes what the execution backend supports.
type Platform struct {
	Name string

	// FloatBuffers is false on backends that cannot store float channels.
	FloatBuffers bool

	// VertexSamplers is the number of buffers the vertex stage can sample.
	// Zero means consumers cannot read fields without a readback.
	VertexSamplers int
}

// HostPlatform evaluates kernels on the CPU and supports everything.
var HostPlatform = Platform{Name: "host", FloatBuffers: true, VertexSamplers: 16}

// StepObserver receives timing for every completed step.
type StepObserver interface {
	ObserveStep(d time.Duration, generation uint64)
}

// Option configures an Engine.
type Option func(*Engine)

// WithPlatform sets the platform checked at Initialize.
func WithPlatform(p Platform) Option {
	return func(e *Engine) { e.platform = p }
}

// WithWorkers sets how many row bands are evaluated concurrently.
// Values below 2 evaluate sequentially.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver registers a step observer.
func WithObserver(o StepObserver) Option {
	return func(e *Engine) { e.observer = o }
}

type state int

const (
	stateDeclaring state = iota
	stateReady
	stateFailed
)

// Engine evaluates field variables on a fixed W×H grid.
//
// All methods are safe for concurrent use; Step, Sample and SetUniform
// serialize on one mutex so a sample never interleaves with a step.
type Engine struct {
	width  int
	height int

	platform Platform
	workers  int
	logger   *slog.Logger
	observer StepObserver

	mu      sync.Mutex
	state   state
	initErr error
	vars    []*Variable
	byName  map[string]*Variable
	gen     generation
}

// New creates an engine for a width×height grid.
func New(width, height int, opts ...Option) (*Engine, error) {
	if width < 1 || height < 1 {
		return nil, configErr("", "grid %dx%d must be at least 1x1", width, height)
	}
	e := &Engine{
		width:    width,
		height:   height,
		platform: HostPlatform,
		workers:  1,
		logger:   slog.Default(),
		byName:   make(map[string]*Variable),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Width returns the grid width.
func (e *Engine) Width() int { return e.width }

// Height returns the grid height.
func (e *Engine) Height() int { return e.height }

// Cells returns the number of grid cells.
func (e *Engine) Cells() int { return e.width * e.height }

// Generation returns the current generation (the number of completed steps).
func (e *Engine) Generation() uint64 { return e.gen.Current() }

// Declare registers a variable. initial may be nil for an all-zero field;
// otherwise it must hold exactly W×H values and is copied.
func (e *Engine) Declare(name string, kernel Kernel, initial []Vec4) (*Variable, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateDeclaring {
		return nil, configErr(name, "declare after initialize")
	}
	if name == "" {
		return nil, configErr("", "variable name must not be empty")
	}
	if kernel == nil {
		return nil, configErr(name, "kernel must not be nil")
	}
	if _, dup := e.byName[name]; dup {
		return nil, configErr(name, "variable already declared")
	}
	if initial != nil && len(initial) != e.Cells() {
		return nil, configErr(name, "initial values: need %d, got %d", e.Cells(), len(initial))
	}

	v := &Variable{
		engine:   e,
		name:     name,
		index:    len(e.vars),
		kernel:   kernel,
		uniforms: make(map[string]float32),
	}
	if initial != nil {
		v.initial = make([]Vec4, len(initial))
		copy(v.initial, initial)
	}
	e.vars = append(e.vars, v)
	e.byName[name] = v
	return v, nil
}

// SetDependencies replaces the dependency list of v. Dependencies are read at
// the same coordinate from the previous generation. Listing v itself is
// allowed and reads its own previous buffer. A handle from another engine is
// reported as an unresolved dependency at Initialize.
func (e *Engine) SetDependencies(v *Variable, deps ...*Variable) error {
	refs := make([]depRef, len(deps))
	for i, d := range deps {
		if d == nil {
			return configErr(nameOf(v), "dependency %d is nil", i)
		}
		refs[i] = depRef{name: d.name, handle: d}
	}
	return e.setDeps(v, refs)
}

// SetDependencyNames is SetDependencies by variable name. Names are resolved
// at Initialize.
func (e *Engine) SetDependencyNames(v *Variable, names ...string) error {
	refs := make([]depRef, len(names))
	for i, n := range names {
		refs[i] = depRef{name: n}
	}
	return e.setDeps(v, refs)
}

func (e *Engine) setDeps(v *Variable, refs []depRef) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v == nil || v.engine != e {
		return configErr(nameOf(v), "variable does not belong to this engine")
	}
	if e.state != stateDeclaring {
		return configErr(v.name, "set dependencies after initialize")
	}
	v.deps = refs
	return nil
}

// Initialize checks the platform, allocates and seeds both buffers of every
// variable, and resolves dependencies. It must succeed exactly once before
// the first Step. After an UNSUPPORTED_PLATFORM failure the engine is
// unusable and every later call returns the same error.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateReady:
		return configErr("", "initialize called twice")
	case stateFailed:
		return e.initErr
	}

	if err := e.checkPlatform(); err != nil {
		e.state = stateFailed
		e.initErr = err
		e.logger.Error("compute platform unsupported", "platform", e.platform.Name, "error", err)
		return err
	}

	for _, v := range e.vars {
		resolved := make([]*Variable, len(v.deps))
		for i, ref := range v.deps {
			dep, ok := e.byName[ref.name]
			if !ok || (ref.handle != nil && ref.handle != dep) {
				return NewUnresolvedDependency(v.name, ref.name)
			}
			resolved[i] = dep
		}
		v.resolved = resolved
		v.depIndex = make(map[string]int, len(v.deps))
		for i, ref := range v.deps {
			if _, seen := v.depIndex[ref.name]; !seen {
				v.depIndex[ref.name] = i
			}
		}
	}

	for _, v := range e.vars {
		v.pair = newPair(e.width, e.height, v.initial)
		v.initial = nil
	}

	for _, loop := range feedbackLoops(e.vars) {
		e.logger.Debug("compute feedback loop", "variables", loop)
	}

	e.state = stateReady
	e.logger.Debug("compute engine initialized",
		"width", e.width, "height", e.height, "variables", len(e.vars), "workers", e.workers)
	return nil
}

func (e *Engine) checkPlatform() error {
	if !e.platform.FloatBuffers {
		return NewUnsupportedPlatform(e.platform.Name, "no floating-point buffer support")
	}
	if e.platform.VertexSamplers == 0 {
		return NewUnsupportedPlatform(e.platform.Name, "no vertex-stage buffer sampling")
	}
	return nil
}

// Step evaluates every variable in declaration order over the whole grid,
// reading the current generation and writing the next, then swaps all
// variables with one generation increment.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mustBeReady("Step")

	start := time.Now()
	gen := e.gen.Current()
	for _, v := range e.vars {
		e.evaluate(v, gen)
	}
	next := e.gen.Advance()

	if e.observer != nil {
		e.observer.ObserveStep(time.Since(start), next)
	}
}

func (e *Engine) evaluate(v *Variable, gen uint64) {
	self := v.pair.current(gen)
	out := v.pair.next(gen)
	deps := make([]*Buffer, len(v.resolved))
	for i, d := range v.resolved {
		deps[i] = d.pair.current(gen)
	}

	band := func(y0, y1 int) {
		c := Cell{
			Width:    e.width,
			Height:   e.height,
			self:     self,
			deps:     deps,
			depIndex: v.depIndex,
			uniforms: v.uniforms,
		}
		for y := y0; y < y1; y++ {
			c.Y = y
			row := y * e.width
			for x := 0; x < e.width; x++ {
				c.X = x
				c.index = row + x
				out.data[c.index] = v.kernel(&c)
			}
		}
	}

	workers := min(e.workers, e.height)
	if workers < 2 {
		band(0, e.height)
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	rows := (e.height + workers - 1) / workers
	for y0 := 0; y0 < e.height; y0 += rows {
		y1 := min(y0+rows, e.height)
		g.Go(func() error {
			band(y0, y1)
			return nil
		})
	}
	_ = g.Wait()
}

// Sample copies the current buffer of v.
func (e *Engine) Sample(v *Variable) *Buffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mustOwn(v, "Sample")
	return v.pair.current(e.gen.Current()).Clone()
}

// CurrentBuffer returns the readable buffer of v without copying.
// It is overwritten two steps later.
func (e *Engine) CurrentBuffer(v *Variable) *Buffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mustOwn(v, "CurrentBuffer")
	return v.pair.current(e.gen.Current())
}

// PreviousBuffer returns the buffer that was current before the last step
// and is written by the next one.
func (e *Engine) PreviousBuffer(v *Variable) *Buffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mustOwn(v, "PreviousBuffer")
	return v.pair.next(e.gen.Current())
}

// SetUniform sets a named scalar visible to v's kernel from the next step.
func (e *Engine) SetUniform(v *Variable, name string, value float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v == nil || v.engine != e {
		panic(fmt.Sprintf("compute: SetUniform on variable %q of another engine", nameOf(v)))
	}
	v.uniforms[name] = value
}

// Variable returns the variable declared under name.
func (e *Engine) Variable(name string) (*Variable, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.byName[name]
	return v, ok
}

// Variables returns the variables in declaration order.
func (e *Engine) Variables() []*Variable {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Variable(nil), e.vars...)
}

func (e *Engine) mustBeReady(op string) {
	if e.state != stateReady {
		panic(fmt.Sprintf("compute: %s called before successful Initialize", op))
	}
}

func (e *Engine) mustOwn(v *Variable, op string) {
	e.mustBeReady(op)
	if v == nil || v.engine != e {
		panic(fmt.Sprintf("compute: %s on variable %q of another engine", op, nameOf(v)))
	}
}

func nameOf(v *Variable) string {
	if v == nil {
		return ""
	}
	return v.name
}
