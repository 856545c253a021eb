package engine

import (
	"context"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/symbol"
	"github.com/roach88/cubefield/internal/window"
)

// Start purges stored data of every window not in the live set (this window
// included) and builds the scene. State left under this window by an earlier
// process (a paint command, a crash) is applied before the cubes are
// rewritten. Returns the purged window ids.
func (s *Scene) Start(ctx context.Context) ([]string, error) {
	live := append(window.IDs(s.windows.Windows()), s.self)
	purged, err := s.store.PurgeStale(ctx, live)
	if err != nil {
		return nil, err
	}
	if len(purged) > 0 {
		s.logger.Info("purged stale windows", "window", s.self, "purged", purged)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sync(ctx, true); err != nil {
		return purged, err
	}
	return purged, nil
}

// Shutdown drains pending writes and deletes this window's data. The scene
// accepts no further writes afterwards.
func (s *Scene) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.writer.Close()

	if err := s.store.DeleteWindow(ctx, s.self); err != nil {
		return err
	}
	s.logger.Info("window data removed", "window", s.self)
	return nil
}

// Close drains pending writes and keeps this window's data in the store.
// The scene accepts no further writes afterwards.
func (s *Scene) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.writer.Close()
}

// Flush waits for every queued write to reach the store.
func (s *Scene) Flush(ctx context.Context) error {
	return s.writer.Flush(ctx)
}

// CubeState is a snapshot of one live cube.
type CubeState struct {
	ID       string
	Center   model.Vec3
	Rotation model.Vec3
	Extents  symbol.Extents
	Symbols  []string
	SubCubes []SubCubeState // raster order
}

// SubCubeState is a snapshot of one subcube.
type SubCubeState struct {
	Cell     symbol.Cell
	Order    int
	Symbol   string
	Color    model.Color
	Weight   float64
	Vertices [model.VerticesPerSubCube]model.Color
}

// Cubes returns a snapshot of every cube in window order.
func (s *Scene) Cubes() []CubeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CubeState, len(s.cubes))
	for i, c := range s.cubes {
		st := CubeState{
			ID:       c.ID,
			Center:   c.Center,
			Rotation: c.rotation,
			Extents:  c.Extents,
			Symbols:  append([]string(nil), c.SubIDs...),
			SubCubes: make([]SubCubeState, len(c.subs)),
		}
		for raster, sub := range c.subs {
			st.SubCubes[raster] = SubCubeState{
				Cell:     sub.cell,
				Order:    sub.order,
				Symbol:   sub.symbol,
				Color:    c.colors[raster],
				Weight:   c.weights[raster],
				Vertices: sub.vertices,
			}
		}
		out[i] = st
	}
	return out
}

// Cube returns the snapshot of one cube.
func (s *Scene) Cube(id string) (CubeState, bool) {
	id = window.NormalizeID(id)
	for _, c := range s.Cubes() {
		if c.ID == id {
			return c, true
		}
	}
	return CubeState{}, false
}
