package symbol

import (
	"fmt"
	"strings"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// minLength is the shortest symbol ever produced.
const minLength = 2

// maxLength bounds decoding so the value fits in an int.
const maxLength = 12

// Symbol encodes a traversal index as base-26 letters.
//
// Digits are written least significant first and right-padded with "A" to
// two characters, so 0 is "AA", 1 is "BA", 25 is "ZA" and 26 is "AB". Padding
// with the zero digit on the high end keeps the value intact, which is what
// makes the encoding a bijection at every size.
//
// Symbol panics on a negative index.
func Symbol(index int) string {
	if index < 0 {
		panic(fmt.Sprintf("symbol: negative index %d", index))
	}

	var b strings.Builder
	v := index
	for {
		b.WriteByte(alphabet[v%26])
		v /= 26
		if v == 0 {
			break
		}
	}
	for b.Len() < minLength {
		b.WriteByte('A')
	}
	return b.String()
}

// Index decodes a symbol produced by Symbol.
// Non-canonical spellings (lowercase, extra trailing "A", too short) are rejected.
func Index(sym string) (int, error) {
	if len(sym) < minLength || len(sym) > maxLength {
		return 0, fmt.Errorf("invalid symbol %q: length must be %d..%d", sym, minLength, maxLength)
	}

	v := 0
	for i := len(sym) - 1; i >= 0; i-- {
		ch := sym[i]
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid symbol %q: character %q", sym, ch)
		}
		v = v*26 + int(ch-'A')
	}

	if Symbol(v) != sym {
		return 0, fmt.Errorf("invalid symbol %q: non-canonical encoding of %d", sym, v)
	}
	return v, nil
}

// Assigner caches the traversal order of one grid so repeated lookups are
// constant time. It is immutable and safe for concurrent use.
type Assigner struct {
	extents Extents
	order   []Cell
	index   []int // raster -> traversal index
}

// NewAssigner derives the traversal order for e.
func NewAssigner(e Extents) (*Assigner, error) {
	order, err := Order(e)
	if err != nil {
		return nil, err
	}
	index := make([]int, e.Count())
	for i, c := range order {
		index[c.Raster(e)] = i
	}
	return &Assigner{extents: e, order: order, index: index}, nil
}

// Extents returns the grid dimensions the assigner was built for.
func (a *Assigner) Extents() Extents {
	return a.extents
}

// Len returns the number of cells.
func (a *Assigner) Len() int {
	return len(a.order)
}

// Order returns a copy of the traversal order.
func (a *Assigner) Order() []Cell {
	out := make([]Cell, len(a.order))
	copy(out, a.order)
	return out
}

// At returns the cell at traversal index i.
func (a *Assigner) At(i int) (Cell, error) {
	if i < 0 || i >= len(a.order) {
		return Cell{}, fmt.Errorf("traversal index %d out of range [0,%d)", i, len(a.order))
	}
	return a.order[i], nil
}

// IndexOf returns the traversal index of c.
func (a *Assigner) IndexOf(c Cell) (int, error) {
	if !a.extents.Contains(c) {
		return 0, fmt.Errorf("cell %s outside extents %s", c, a.extents)
	}
	return a.index[c.Raster(a.extents)], nil
}

// Symbol returns the symbol of c.
func (a *Assigner) Symbol(c Cell) (string, error) {
	i, err := a.IndexOf(c)
	if err != nil {
		return "", err
	}
	return Symbol(i), nil
}

// Cell returns the cell carrying sym.
func (a *Assigner) Cell(sym string) (Cell, error) {
	i, err := Index(sym)
	if err != nil {
		return Cell{}, err
	}
	if i >= len(a.order) {
		return Cell{}, fmt.Errorf("symbol %q not assigned in extents %s", sym, a.extents)
	}
	return a.order[i], nil
}

// Symbols returns every symbol in traversal order.
func (a *Assigner) Symbols() []string {
	out := make([]string, len(a.order))
	for i := range a.order {
		out[i] = Symbol(i)
	}
	return out
}
