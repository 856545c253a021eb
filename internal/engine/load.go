package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/notify"
	"github.com/roach88/cubefield/internal/store"
	"github.com/roach88/cubefield/internal/window"
)

// Load re-applies the persisted state of this window's cubes: centers, then
// vertex colors and weights of every subcube in order. Cubes without a live
// counterpart are skipped. Store errors are returned; a partial load leaves
// the cubes read so far applied.
func (s *Scene) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Scene) load(ctx context.Context) error {
	if err := s.writer.Flush(ctx); err != nil {
		return err
	}

	recs, err := s.store.CubesByWindow(ctx, s.self)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		c := s.cubeByID(rec.ID)
		if c == nil {
			continue
		}
		c.Center = rec.Center
		if err := s.loadSubCubes(ctx, c, rec.WindowID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scene) loadSubCubes(ctx context.Context, c *liveCube, windowID string) error {
	subs, err := s.store.SubCubesByCube(ctx, windowID, c.ID)
	if err != nil {
		return err
	}
	if len(subs) != len(c.subs) {
		s.logger.Warn("stored subcube count differs from grid",
			"window", windowID, "cube", c.ID, "stored", len(subs), "grid", len(c.subs))
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].Order < subs[j].Order })

	var changed []int
	for _, sub := range subs {
		raster, err := s.loadSubCube(ctx, c, windowID, sub.ID)
		if err != nil {
			return err
		}
		if raster >= 0 {
			changed = append(changed, raster)
		}
	}
	c.blendAll(s.settings.Policy)
	for _, raster := range changed {
		s.markOverride(c, raster)
	}
	return nil
}

// loadSubCube copies the stored vertices of one subcube into c and returns
// its raster position when the stored state differs from the live one, -1
// otherwise. Symbols the current grid does not know are skipped.
func (s *Scene) loadSubCube(ctx context.Context, c *liveCube, windowID, sym string) (int, error) {
	live, err := c.subBySymbol(sym)
	if err != nil || live == nil {
		s.logger.Debug("skip unknown subcube", "window", windowID, "cube", c.ID, "subcube", sym)
		return -1, nil
	}
	verts, err := s.store.VerticesBySubCube(ctx, windowID, c.ID, sym)
	if err != nil {
		return -1, err
	}
	raster := live.cell.Raster(c.Extents)
	if !applyVertices(c, live, raster, verts) {
		return -1, nil
	}
	return raster, nil
}

// applyVertices copies verts into the cell at raster and reports whether a
// color or the weight changed. Colors compare at their persisted precision.
func applyVertices(c *liveCube, live *liveSub, raster int, verts []model.Vertex) bool {
	changed := false
	for _, v := range verts {
		if v.Index < 0 || v.Index >= model.VerticesPerSubCube {
			continue
		}
		if live.vertices[v.Index].RGB8() != v.Color.RGB8() {
			changed = true
		}
		live.vertices[v.Index] = v.Color
	}
	if len(verts) > 0 {
		if c.weights[raster] != verts[0].Weight {
			changed = true
		}
		c.weights[raster] = verts[0].Weight
	}
	return changed
}

// markOverride records the blended color and weight of the cell at raster in
// the cube metadata, which takes the cube off the color field. Applied peer
// state is not repainted by the next frame.
func (s *Scene) markOverride(c *liveCube, raster int) {
	key := window.SubKey(c.subs[raster].cell)
	hex := c.colors[raster].Hex()
	weight := c.weights[raster]
	s.editMeta(c, func(m *window.Meta) {
		if m.SubColors == nil {
			m.SubColors = map[string]string{}
		}
		m.SubColors[key] = hex
		if weight != 1 {
			if m.SubWeights == nil {
				m.SubWeights = map[string]float64{}
			}
			m.SubWeights[key] = weight
		}
	})
}

// ApplyChange re-reads the entity named by n from the store and applies it.
// Only the named subcube is read; a cube notification re-reads the cube
// center and all its subcubes.
func (s *Scene) ApplyChange(ctx context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cubeByID(n.CubeID)
	if c == nil {
		return nil
	}

	switch n.Kind {
	case notify.KindSubCube:
		live, err := c.subBySymbol(n.SubCubeID)
		if err != nil || live == nil {
			return fmt.Errorf("apply change: cube %s has no subcube %q", c.ID, n.SubCubeID)
		}
		verts, err := s.store.VerticesBySubCube(ctx, n.WindowID, n.CubeID, n.SubCubeID)
		if err != nil {
			return err
		}
		raster := live.cell.Raster(c.Extents)
		applyVertices(c, live, raster, verts)
		c.blendAll(s.settings.Policy)
		s.markOverride(c, raster)

	case notify.KindCube:
		rec, err := s.store.GetCube(ctx, n.WindowID, n.CubeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		c.Center = rec.Center
		return s.loadSubCubes(ctx, c, n.WindowID)

	default:
		return fmt.Errorf("apply change: unknown kind %q", n.Kind)
	}
	return nil
}
