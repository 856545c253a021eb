package engine

import (
	"fmt"

	"github.com/roach88/cubefield/internal/blend"
	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/symbol"
	"github.com/roach88/cubefield/internal/window"
)

// liveCube is the in-memory state of one cube. Per-cell slices are indexed by
// raster position (layer, row, col); subs is in the same order.
type liveCube struct {
	model.Cube

	meta     window.Meta
	assigner *symbol.Assigner
	subs     []*liveSub
	colors   []model.Color // blended color per cell
	weights  []float64
	rotation model.Vec3
}

type liveSub struct {
	cell     symbol.Cell
	order    int
	symbol   string
	center   model.Vec3
	vertices [model.VerticesPerSubCube]model.Color
}

// newLiveCube creates the cube for win, positioned at its window center.
func newLiveCube(self string, win window.Window, st Settings) (*liveCube, error) {
	color := st.Color
	if win.Meta.Color != "" {
		c, err := model.ParseHex(win.Meta.Color)
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", win.ID, err)
		}
		color = c
	}
	x, y := win.Shape.Center()

	c := &liveCube{
		Cube: model.Cube{
			WindowID: self,
			ID:       win.ID,
			Center:   model.Vec3{x, y, 0},
			Size:     st.Size,
			Color:    color,
		},
		meta: win.Meta.Clone(),
	}
	c.Corners = model.CubeCorners(st.Size, color)
	return c, nil
}

// layout (re)builds the subcube grid for e. Colors and weights of the
// previous grid are kept when the cell count is unchanged; window metadata
// overrides both.
func (c *liveCube) layout(e symbol.Extents, st Settings) error {
	a, err := symbol.NewAssigner(e)
	if err != nil {
		return err
	}
	count := e.Count()
	keepColors := len(c.colors) == count
	keepWeights := len(c.weights) == count
	if !keepColors {
		c.colors = make([]model.Color, count)
	}
	if !keepWeights {
		c.weights = make([]float64, count)
		for i := range c.weights {
			c.weights[i] = 1
		}
	}

	c.Extents = e
	c.assigner = a
	c.SubIDs = a.Symbols()
	c.subs = make([]*liveSub, count)

	for raster := 0; raster < count; raster++ {
		cell := symbol.CellAt(e, raster)
		key := window.SubKey(cell)

		if hex, ok := c.meta.SubColors[key]; ok {
			col, err := model.ParseHex(hex)
			if err != nil {
				return fmt.Errorf("cube %s cell %s: %w", c.ID, cell, err)
			}
			c.colors[raster] = col
		} else if !keepColors {
			c.colors[raster] = st.SubColor
		}
		if w, ok := c.meta.SubWeights[key]; ok {
			c.weights[raster] = w
		}

		order, err := a.IndexOf(cell)
		if err != nil {
			return err
		}
		sub := &liveSub{
			cell:   cell,
			order:  order,
			symbol: symbol.Symbol(order),
			center: model.SubCubeCenter(c.Size, e, cell),
		}
		for i := range sub.vertices {
			sub.vertices[i] = c.colors[raster]
		}
		c.subs[raster] = sub
	}
	return nil
}

func (c *liveCube) fieldDriven() bool {
	return c.meta.FieldDriven()
}

// sub returns the subcube at cell, or nil when cell is outside the grid.
func (c *liveCube) sub(cell symbol.Cell) *liveSub {
	if !c.Extents.Contains(cell) {
		return nil
	}
	return c.subs[cell.Raster(c.Extents)]
}

// subBySymbol resolves a persisted symbol against the current grid.
func (c *liveCube) subBySymbol(sym string) (*liveSub, error) {
	cell, err := c.assigner.Cell(sym)
	if err != nil {
		return nil, err
	}
	return c.sub(cell), nil
}

// paint sets every vertex of the cell at raster to col.
func (c *liveCube) paint(raster int, col model.Color) {
	sub := c.subs[raster]
	for i := range sub.vertices {
		sub.vertices[i] = col
	}
	c.colors[raster] = col
}

// blendAll recomputes every cell color from its vertices. A zero weight is
// treated as 1.
func (c *liveCube) blendAll(p blend.Policy) {
	samples := make([]blend.Sample, model.VerticesPerSubCube)
	for raster, sub := range c.subs {
		w := c.weights[raster]
		if w == 0 {
			w = 1
		}
		for i, col := range sub.vertices {
			samples[i] = blend.Sample{Color: col, Weight: w}
		}
		c.colors[raster] = blend.Blend(samples, p)
	}
}

// recolor copies the field sample into every cell: field cell i colors the
// subcube at raster position i.
func (c *liveCube) recolor(field []model.Color) {
	for raster := range c.subs {
		if raster >= len(field) {
			return
		}
		c.paint(raster, field[raster])
	}
}

// subCubeRecord returns the persisted form of the subcube at raster.
func (c *liveCube) subCubeRecord(raster int, policy blend.Policy) (model.SubCube, []model.Vertex) {
	sub := c.subs[raster]
	center := sub.center
	rec := model.SubCube{
		WindowID:  c.WindowID,
		CubeID:    c.ID,
		ID:        sub.symbol,
		Center:    &center,
		OriginID:  c.ID,
		Policy:    string(policy),
		VertexIDs: model.VertexIDs(sub.symbol),
		Order:     sub.order,
	}

	subSize := model.SubSize(c.Size, c.Extents)
	verts := make([]model.Vertex, model.VerticesPerSubCube)
	for i := range verts {
		verts[i] = model.Vertex{
			WindowID:  c.WindowID,
			CubeID:    c.ID,
			SubCubeID: sub.symbol,
			Index:     i,
			Color:     sub.vertices[i],
			Position:  sub.center.Add(model.CornerOffset(subSize, i)),
			Weight:    c.weights[raster],
			Tag:       model.VertexTag(c.Extents, sub.cell, i),
		}
	}
	return rec, verts
}

// cubeRecord returns a copy of the persisted cube fields.
func (c *liveCube) cubeRecord() model.Cube {
	rec := c.Cube
	rec.SubIDs = append([]string(nil), c.SubIDs...)
	return rec
}
