package compute

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter adds one to channel 0 of its own previous value.
func counter(c *Cell) Vec4 {
	v := c.Self()
	v[0]++
	return v
}

// tenfold multiplies the first dependency's channel 0 by ten.
func tenfold(c *Cell) Vec4 {
	return Vec4{c.DepAt(0)[0] * 10}
}

func newTestEngine(t *testing.T, w, h int, opts ...Option) *Engine {
	t.Helper()
	e, err := New(w, h, opts...)
	require.NoError(t, err)
	return e
}

func TestNew_RejectsEmptyGrid(t *testing.T) {
	_, err := New(0, 4)
	assert.True(t, IsConfigurationError(err))
}

func TestDeclare_Errors(t *testing.T) {
	e := newTestEngine(t, 2, 2)

	_, err := e.Declare("a", counter, nil)
	require.NoError(t, err)

	_, err = e.Declare("a", counter, nil)
	assert.True(t, IsConfigurationError(err), "duplicate name")

	_, err = e.Declare("", counter, nil)
	assert.True(t, IsConfigurationError(err), "empty name")

	_, err = e.Declare("b", nil, nil)
	assert.True(t, IsConfigurationError(err), "nil kernel")

	_, err = e.Declare("c", counter, make([]Vec4, 3))
	assert.True(t, IsConfigurationError(err), "wrong initial size")
}

func TestDeclare_AfterInitialize(t *testing.T) {
	e := newTestEngine(t, 2, 2)
	a, err := e.Declare("a", counter, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	_, err = e.Declare("late", counter, nil)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	err = e.SetDependencies(a, a)
	assert.True(t, IsConfigurationError(err))

	err = e.Initialize()
	assert.True(t, IsConfigurationError(err), "initialize twice")
}

func TestSetDependencies_ForeignVariable(t *testing.T) {
	e1 := newTestEngine(t, 2, 2)
	e2 := newTestEngine(t, 2, 2)

	a, err := e1.Declare("a", counter, nil)
	require.NoError(t, err)
	other, err := e2.Declare("other", counter, nil)
	require.NoError(t, err)

	err = e2.SetDependencies(a)
	assert.True(t, IsConfigurationError(err), "variable of another engine")

	require.NoError(t, e1.SetDependencies(a, other))
	err = e1.Initialize()
	require.Error(t, err)
	assert.True(t, IsUnresolvedDependency(err))

	err = e1.SetDependencies(a, nil)
	assert.True(t, IsConfigurationError(err))
}

func TestInitialize_UnresolvedDependency(t *testing.T) {
	e := newTestEngine(t, 2, 2)
	a, err := e.Declare("a", counter, nil)
	require.NoError(t, err)
	require.NoError(t, e.SetDependencyNames(a, "missing"))

	err = e.Initialize()
	require.Error(t, err)
	assert.True(t, IsUnresolvedDependency(err))

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "a", ce.Variable)
	assert.Equal(t, "missing", ce.Dependency)
	assert.Contains(t, err.Error(), "dependency=missing")
}

func TestInitialize_AcyclicGraphSucceeds(t *testing.T) {
	e := newTestEngine(t, 3, 3)
	a, err := e.Declare("a", counter, nil)
	require.NoError(t, err)
	b, err := e.Declare("b", tenfold, nil)
	require.NoError(t, err)
	c, err := e.Declare("c", tenfold, nil)
	require.NoError(t, err)

	require.NoError(t, e.SetDependencies(b, a))
	require.NoError(t, e.SetDependencies(c, b))
	require.NoError(t, e.Initialize())
	assert.Equal(t, []string{"a"}, b.Dependencies())
}

func TestInitialize_UnsupportedPlatform(t *testing.T) {
	tests := []struct {
		name     string
		platform Platform
	}{
		{"no float buffers", Platform{Name: "gles2", FloatBuffers: false, VertexSamplers: 4}},
		{"no vertex samplers", Platform{Name: "mobile", FloatBuffers: true, VertexSamplers: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, 2, 2, WithPlatform(tt.platform))
			a, err := e.Declare("a", counter, nil)
			require.NoError(t, err)

			err = e.Initialize()
			require.Error(t, err)
			assert.True(t, IsUnsupportedPlatform(err))

			again := e.Initialize()
			assert.Equal(t, err, again, "reported once, engine stays unusable")

			assert.Panics(t, func() { e.Step() })
			assert.Panics(t, func() { e.Sample(a) })
		})
	}
}

func TestStep_BeforeInitializePanics(t *testing.T) {
	e := newTestEngine(t, 2, 2)
	a, err := e.Declare("a", counter, nil)
	require.NoError(t, err)

	assert.Panics(t, func() { e.Step() })
	assert.Panics(t, func() { e.CurrentBuffer(a) })
}

func TestInitialize_SeedsBothBuffers(t *testing.T) {
	e := newTestEngine(t, 2, 1)
	initial := []Vec4{{1, 2, 3, 4}, {5, 6, 7, 8}}
	a, err := e.Declare("a", counter, initial)
	require.NoError(t, err)
	initial[0] = Vec4{} // caller mutation must not leak in
	require.NoError(t, e.Initialize())

	want := []Vec4{{1, 2, 3, 4}, {5, 6, 7, 8}}
	assert.Equal(t, want, e.CurrentBuffer(a).Data())
	assert.Equal(t, want, e.PreviousBuffer(a).Data())
}

func TestStep_ReadsPreSwapGeneration(t *testing.T) {
	// b is declared before a so declaration order would expose a
	// same-tick read if one happened.
	e := newTestEngine(t, 2, 2)
	b, err := e.Declare("b", tenfold, nil)
	require.NoError(t, err)
	a, err := e.Declare("a", counter, nil)
	require.NoError(t, err)
	require.NoError(t, e.SetDependencies(b, a))
	require.NoError(t, e.Initialize())

	for step := 1; step <= 4; step++ {
		e.Step()
		av := e.Sample(a).At(1, 1)[0]
		bv := e.Sample(b).At(1, 1)[0]
		assert.Equal(t, float32(step), av)
		assert.Equal(t, float32(step-1)*10, bv, "b sees a from before step %d", step)
	}
}

func TestStep_OrderIndependent(t *testing.T) {
	run := func(bFirst bool) float32 {
		e := newTestEngine(t, 1, 1)
		var a, b *Variable
		var err error
		if bFirst {
			b, err = e.Declare("b", tenfold, nil)
			require.NoError(t, err)
			a, err = e.Declare("a", counter, nil)
		} else {
			a, err = e.Declare("a", counter, nil)
			require.NoError(t, err)
			b, err = e.Declare("b", tenfold, nil)
		}
		require.NoError(t, err)
		require.NoError(t, e.SetDependencies(b, a))
		require.NoError(t, e.Initialize())
		e.Step()
		e.Step()
		return e.Sample(b).At(0, 0)[0]
	}

	assert.Equal(t, run(true), run(false))
}

func TestStep_MutualFeedback(t *testing.T) {
	// x reads y, y reads x: a swap each step
	swap := func(c *Cell) Vec4 { return c.DepAt(0) }

	e := newTestEngine(t, 1, 1)
	x, err := e.Declare("x", swap, []Vec4{{1}})
	require.NoError(t, err)
	y, err := e.Declare("y", swap, []Vec4{{2}})
	require.NoError(t, err)
	require.NoError(t, e.SetDependencies(x, y))
	require.NoError(t, e.SetDependencies(y, x))
	require.NoError(t, e.Initialize())

	e.Step()
	assert.Equal(t, float32(2), e.Sample(x).AtIndex(0)[0])
	assert.Equal(t, float32(1), e.Sample(y).AtIndex(0)[0])

	e.Step()
	assert.Equal(t, float32(1), e.Sample(x).AtIndex(0)[0])
	assert.Equal(t, float32(2), e.Sample(y).AtIndex(0)[0])
}

func TestStep_SwapsBuffers(t *testing.T) {
	e := newTestEngine(t, 2, 2)
	a, err := e.Declare("a", counter, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	before := e.CurrentBuffer(a)
	e.Step()
	assert.Same(t, before, e.PreviousBuffer(a))
	assert.NotSame(t, before, e.CurrentBuffer(a))
	assert.Equal(t, uint64(1), e.Generation())

	e.Step()
	assert.Same(t, before, e.CurrentBuffer(a))
	assert.Equal(t, uint64(2), e.Generation())
}

func TestSample_ReturnsCopy(t *testing.T) {
	e := newTestEngine(t, 2, 2)
	a, err := e.Declare("a", counter, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	e.Step()

	s := e.Sample(a)
	s.Set(0, 0, Vec4{99})
	assert.Equal(t, float32(1), e.CurrentBuffer(a).At(0, 0)[0])
}

func TestStep_ParallelMatchesSequential(t *testing.T) {
	build := func(workers int) *Buffer {
		e := newTestEngine(t, 7, 13, WithWorkers(workers))
		color, err := DeclareColorField(e)
		require.NoError(t, err)
		pos, _, err := DeclareMotionFields(e)
		require.NoError(t, err)
		require.NoError(t, e.Initialize())
		for i := 0; i < 5; i++ {
			e.SetUniform(color, UniformTime, float32(i)*0.25)
			e.Step()
		}
		out := e.Sample(color)
		p := e.Sample(pos)
		out.data = append(out.data, p.data...)
		return out
	}

	assert.Equal(t, build(1).Data(), build(4).Data())
	assert.Equal(t, build(1).Data(), build(32).Data())
}

func TestSetUniform(t *testing.T) {
	readTime := func(c *Cell) Vec4 { return Vec4{c.Uniform("time"), c.Uniform("unset")} }

	e := newTestEngine(t, 1, 1)
	a, err := e.Declare("a", readTime, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	e.SetUniform(a, "time", 2.5)
	e.Step()
	assert.Equal(t, Vec4{2.5, 0}, e.Sample(a).At(0, 0))
}

func TestVariableLookup(t *testing.T) {
	e := newTestEngine(t, 1, 1)
	a, err := e.Declare("a", counter, nil)
	require.NoError(t, err)
	b, err := e.Declare("b", counter, nil)
	require.NoError(t, err)

	got, ok := e.Variable("b")
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = e.Variable("zzz")
	assert.False(t, ok)

	assert.Equal(t, []*Variable{a, b}, e.Variables())
	assert.Equal(t, "a", a.Name())
}

type recordingObserver struct {
	mu   sync.Mutex
	gens []uint64
}

func (r *recordingObserver) ObserveStep(_ time.Duration, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens = append(r.gens, gen)
}

func TestStep_NotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(t, 1, 1, WithObserver(obs))
	_, err := e.Declare("a", counter, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	e.Step()
	e.Step()
	assert.Equal(t, []uint64{1, 2}, obs.gens)
}
