package symbol

import (
	"fmt"
	"math"
)

// Extents are the dimensions of a subcube grid.
type Extents struct {
	Rows   int `json:"rows" yaml:"rows"`
	Cols   int `json:"cols" yaml:"cols"`
	Layers int `json:"layers" yaml:"layers"`
}

// Count returns the number of cells in the grid.
func (e Extents) Count() int {
	return e.Rows * e.Cols * e.Layers
}

// Validate reports an error when any dimension is below 1.
func (e Extents) Validate() error {
	if e.Rows < 1 || e.Cols < 1 || e.Layers < 1 {
		return fmt.Errorf("invalid extents %dx%dx%d: every dimension must be at least 1", e.Rows, e.Cols, e.Layers)
	}
	return nil
}

// Contains reports whether c lies inside the grid.
func (e Extents) Contains(c Cell) bool {
	return c.Row >= 0 && c.Row < e.Rows &&
		c.Col >= 0 && c.Col < e.Cols &&
		c.Layer >= 0 && c.Layer < e.Layers
}

func (e Extents) String() string {
	return fmt.Sprintf("%dx%dx%d", e.Rows, e.Cols, e.Layers)
}

// Cell addresses one subcube inside a grid.
type Cell struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Layer int `json:"layer"`
}

func (c Cell) String() string {
	return fmt.Sprintf("%d,%d,%d", c.Row, c.Col, c.Layer)
}

// Raster returns the layer-major linear index of c, the layout used by
// per-cube color and weight buffers.
func (c Cell) Raster(e Extents) int {
	return c.Layer*e.Rows*e.Cols + c.Row*e.Cols + c.Col
}

// CellAt is the inverse of Cell.Raster.
func CellAt(e Extents, raster int) Cell {
	perLayer := e.Rows * e.Cols
	return Cell{
		Layer: raster / perLayer,
		Row:   (raster % perLayer) / e.Cols,
		Col:   raster % e.Cols,
	}
}

// Order returns every cell of the grid in canonical traversal order.
func Order(e Extents) ([]Cell, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	out := make([]Cell, 0, e.Count())
	seen := make([]bool, e.Count())
	emit := func(c Cell) {
		i := c.Raster(e)
		if seen[i] {
			return
		}
		seen[i] = true
		out = append(out, c)
	}

	emit(Cell{Row: e.Rows / 2, Col: e.Cols / 2, Layer: e.Layers / 2})

	lastR, lastC, lastL := e.Rows-1, e.Cols-1, e.Layers-1
	corners := [8]Cell{
		{0, 0, 0},
		{0, 0, lastL},
		{0, lastC, 0},
		{0, lastC, lastL},
		{lastR, 0, 0},
		{lastR, 0, lastL},
		{lastR, lastC, 0},
		{lastR, lastC, lastL},
	}
	for _, c := range corners {
		emit(c)
	}

	for l := 0; l < e.Layers; l++ {
		for r := 0; r < e.Rows; r++ {
			for c := 0; c < e.Cols; c++ {
				emit(Cell{Row: r, Col: c, Layer: l})
			}
		}
	}

	return out, nil
}

// SymbolFor returns the symbol of cell c by re-deriving the traversal order.
func SymbolFor(e Extents, c Cell) (string, error) {
	order, err := Order(e)
	if err != nil {
		return "", err
	}
	for i, oc := range order {
		if oc == c {
			return Symbol(i), nil
		}
	}
	return "", fmt.Errorf("cell %s outside extents %s", c, e)
}

// CellFor returns the cell that carries sym by re-deriving the traversal order.
func CellFor(e Extents, sym string) (Cell, error) {
	order, err := Order(e)
	if err != nil {
		return Cell{}, err
	}
	for i, oc := range order {
		if Symbol(i) == sym {
			return oc, nil
		}
	}
	return Cell{}, fmt.Errorf("symbol %q not assigned in extents %s", sym, e)
}

// CenteredToIndex converts a coordinate centered on the middle of an axis of
// count cells to a 0-based index, clamped to the axis.
func CenteredToIndex(coord float64, count int) int {
	half := float64(count-1) / 2
	idx := int(math.Floor(coord + half + 0.5))
	if idx < 0 {
		idx = 0
	}
	if idx > count-1 {
		idx = count - 1
	}
	return idx
}

// IndexToCentered is the inverse of CenteredToIndex for in-range indices.
func IndexToCentered(index, count int) float64 {
	return float64(index) - float64(count-1)/2
}
