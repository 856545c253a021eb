package compute

import (
	"fmt"
	"sync/atomic"
)

// Vec4 is one cell value: four float32 channels.
type Vec4 [4]float32

// Buffer is a W×H grid of Vec4 values in row-major order (index y*W + x).
type Buffer struct {
	width  int
	height int
	data   []Vec4
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(width, height int) *Buffer {
	return &Buffer{width: width, height: height, data: make([]Vec4, width*height)}
}

// BufferFrom wraps values in a buffer after checking their length.
// The slice is copied.
func BufferFrom(width, height int, values []Vec4) (*Buffer, error) {
	if len(values) != width*height {
		return nil, fmt.Errorf("buffer needs %d values for %dx%d, got %d", width*height, width, height, len(values))
	}
	b := NewBuffer(width, height)
	copy(b.data, values)
	return b, nil
}

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }
func (b *Buffer) Len() int    { return len(b.data) }

// Index maps a grid coordinate to the linear index.
func (b *Buffer) Index(x, y int) int {
	return y*b.width + x
}

// At returns the value at (x, y).
func (b *Buffer) At(x, y int) Vec4 {
	return b.data[y*b.width+x]
}

// AtIndex returns the value at linear index i.
func (b *Buffer) AtIndex(i int) Vec4 {
	return b.data[i]
}

// Set writes the value at (x, y).
func (b *Buffer) Set(x, y int, v Vec4) {
	b.data[y*b.width+x] = v
}

// Data exposes the backing slice without copying.
func (b *Buffer) Data() []Vec4 {
	return b.data
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	c := NewBuffer(b.width, b.height)
	copy(c.data, b.data)
	return c
}

// pair holds the ping/pong buffers of one variable. Which buffer is current
// is decided by the engine generation, never by the pair.
type pair struct {
	bufs [2]*Buffer
}

func newPair(width, height int, initial []Vec4) pair {
	p := pair{bufs: [2]*Buffer{NewBuffer(width, height), NewBuffer(width, height)}}
	if initial != nil {
		copy(p.bufs[0].data, initial)
		copy(p.bufs[1].data, initial)
	}
	return p
}

func (p *pair) current(gen uint64) *Buffer { return p.bufs[gen%2] }
func (p *pair) next(gen uint64) *Buffer    { return p.bufs[(gen+1)%2] }

// generation is the engine-wide swap counter.
type generation struct {
	n atomic.Uint64
}

// Current returns the generation whose buffers are readable.
func (g *generation) Current() uint64 {
	return g.n.Load()
}

// Advance swaps every pair at once and returns the new generation.
func (g *generation) Advance() uint64 {
	return g.n.Add(1)
}
