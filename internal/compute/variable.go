package compute

import "fmt"

// Kernel computes the next value of one cell. It must be a pure function of
// the cell context: no side effects, no state shared across cells.
type Kernel func(c *Cell) Vec4

// Variable is a handle to a declared field variable.
type Variable struct {
	engine *Engine
	name   string
	index  int
	kernel Kernel

	initial  []Vec4
	deps     []depRef
	resolved []*Variable
	depIndex map[string]int
	uniforms map[string]float32

	pair pair
}

type depRef struct {
	name   string
	handle *Variable
}

// Name returns the variable name.
func (v *Variable) Name() string { return v.name }

// Dependencies returns the declared dependency names in order.
func (v *Variable) Dependencies() []string {
	out := make([]string, len(v.deps))
	for i, d := range v.deps {
		out[i] = d.name
	}
	return out
}

// Cell is the read-only context a kernel sees for one grid coordinate.
// Every read returns previous-generation data.
type Cell struct {
	X, Y          int
	Width, Height int

	index    int
	self     *Buffer
	deps     []*Buffer
	depIndex map[string]int
	uniforms map[string]float32
}

// Index is the linear index y*Width + x.
func (c *Cell) Index() int { return c.index }

// UV returns the normalized coordinate of the cell center.
func (c *Cell) UV() (u, v float32) {
	return (float32(c.X) + 0.5) / float32(c.Width), (float32(c.Y) + 0.5) / float32(c.Height)
}

// Self returns this variable's own value from the previous generation.
func (c *Cell) Self() Vec4 {
	return c.self.data[c.index]
}

// Dep returns the value of the named dependency. Reading an undeclared
// dependency is a programming error and panics.
func (c *Cell) Dep(name string) Vec4 {
	i, ok := c.depIndex[name]
	if !ok {
		panic(fmt.Sprintf("compute: kernel read undeclared dependency %q", name))
	}
	return c.deps[i].data[c.index]
}

// DepAt returns the value of dependency i in declaration order.
func (c *Cell) DepAt(i int) Vec4 {
	return c.deps[i].data[c.index]
}

// Uniform returns a named scalar, zero when unset.
func (c *Cell) Uniform(name string) float32 {
	return c.uniforms[name]
}
