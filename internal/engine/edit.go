package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/symbol"
	"github.com/roach88/cubefield/internal/window"
)

// MetaUpdater is implemented by providers that accept metadata edits.
type MetaUpdater interface {
	UpdateMeta(id string, fn func(*window.Meta)) bool
}

// VertexMatrix holds the eight vertex colors of a subcube as RGB triples.
type VertexMatrix [model.VerticesPerSubCube][3]float64

// SetSubCubeColor paints the subcube of this window's cube at the centered
// coordinates (row, col, layer) and persists it.
func (s *Scene) SetSubCubeColor(ctx context.Context, row, col, layer float64, hex string) error {
	color, err := model.ParseHex(hex)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, cell, err := s.ownCell(row, col, layer)
	if err != nil {
		return err
	}
	key := window.SubKey(cell)
	hex = color.Hex()
	s.editMeta(c, func(m *window.Meta) {
		if m.SubColors == nil {
			m.SubColors = map[string]string{}
		}
		m.SubColors[key] = hex
	})

	raster := cell.Raster(c.Extents)
	c.paint(raster, color)
	c.blendAll(s.settings.Policy)
	s.submitSubCube(c, raster)

	s.logger.Debug("subcube color set", "window", s.self, "cube", c.ID, "cell", cell.String(), "color", hex)
	return ctx.Err()
}

// SetSubCubeWeight sets the blend weight of the subcube of this window's cube
// at the centered coordinates (row, col, layer) and persists it.
func (s *Scene) SetSubCubeWeight(ctx context.Context, row, col, layer float64, weight float64) error {
	if weight < 0 {
		return fmt.Errorf("weight %g must not be negative", weight)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, cell, err := s.ownCell(row, col, layer)
	if err != nil {
		return err
	}
	key := window.SubKey(cell)
	s.editMeta(c, func(m *window.Meta) {
		if m.SubWeights == nil {
			m.SubWeights = map[string]float64{}
		}
		m.SubWeights[key] = weight
	})

	raster := cell.Raster(c.Extents)
	c.weights[raster] = weight
	c.blendAll(s.settings.Policy)
	s.submitSubCube(c, raster)

	s.logger.Debug("subcube weight set", "window", s.self, "cube", c.ID, "cell", cell.String(), "weight", weight)
	return ctx.Err()
}

// ownCell resolves centered coordinates against this window's cube.
func (s *Scene) ownCell(row, col, layer float64) (*liveCube, symbol.Cell, error) {
	c := s.cubeByID(s.self)
	if c == nil {
		return nil, symbol.Cell{}, ErrNoCube
	}
	return c, CellAt(c.Extents, row, col, layer), nil
}

// CellAt converts centered coordinates to the grid cell they address,
// clamping each axis.
func CellAt(e symbol.Extents, row, col, layer float64) symbol.Cell {
	return symbol.Cell{
		Row:   symbol.CenteredToIndex(row, e.Rows),
		Col:   symbol.CenteredToIndex(col, e.Cols),
		Layer: symbol.CenteredToIndex(layer, e.Layers),
	}
}

// editMeta applies fn to the cube's metadata and forwards it to the provider
// when it accepts edits.
func (s *Scene) editMeta(c *liveCube, fn func(*window.Meta)) {
	fn(&c.meta)
	if u, ok := s.windows.(MetaUpdater); ok {
		u.UpdateMeta(c.ID, fn)
	}
}

// ApplyColorData paints every cube from colors listed in canonical order.
// Entries beyond the grid are ignored; cells beyond the list keep their color.
func (s *Scene) ApplyColorData(ctx context.Context, colors []model.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.cubes {
		for i := 0; i < len(colors) && i < c.assigner.Len(); i++ {
			cell, err := c.assigner.At(i)
			if err != nil {
				return err
			}
			raster := cell.Raster(c.Extents)
			c.paint(raster, colors[i])
			s.submitSubCube(c, raster)
		}
		c.blendAll(s.settings.Policy)
		for i := 0; i < len(colors) && i < c.assigner.Len(); i++ {
			cell, _ := c.assigner.At(i)
			s.markOverride(c, cell.Raster(c.Extents))
		}
	}
	return ctx.Err()
}

// ExportMatrix returns the vertex colors of every subcube of a cube, keyed
// by "row,col,layer".
func (s *Scene) ExportMatrix(cubeID string) (map[string]VertexMatrix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cubeByID(window.NormalizeID(cubeID))
	if c == nil {
		return nil, fmt.Errorf("cube %q: %w", cubeID, ErrNoCube)
	}
	out := make(map[string]VertexMatrix, len(c.subs))
	for _, sub := range c.subs {
		var m VertexMatrix
		for i, col := range sub.vertices {
			m[i] = [3]float64{col.R, col.G, col.B}
		}
		out[sub.cell.String()] = m
	}
	return out, nil
}

// ApplyMatrix sets vertex colors from a matrix produced by ExportMatrix and
// persists every subcube it names. Unknown keys fail the whole call before
// anything changes.
func (s *Scene) ApplyMatrix(ctx context.Context, cubeID string, m map[string]VertexMatrix) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cubeByID(window.NormalizeID(cubeID))
	if c == nil {
		return fmt.Errorf("cube %q: %w", cubeID, ErrNoCube)
	}

	byKey := make(map[string]int, len(c.subs))
	for raster, sub := range c.subs {
		byKey[sub.cell.String()] = raster
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		if _, ok := byKey[k]; !ok {
			return fmt.Errorf("cube %s: no subcube at %q", c.ID, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		raster := byKey[k]
		sub := c.subs[raster]
		for i, rgb := range m[k] {
			sub.vertices[i] = model.RGB(rgb[0], rgb[1], rgb[2])
		}
		s.submitSubCube(c, raster)
	}
	c.blendAll(s.settings.Policy)
	for _, k := range keys {
		s.markOverride(c, byKey[k])
	}
	return ctx.Err()
}
