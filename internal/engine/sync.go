package engine

import (
	"context"
	"fmt"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/symbol"
)

// SyncWindows rebuilds one cube per window of the provider, in window order.
//
// Every cube gets a fresh grid seeded from its window's metadata, field-driven
// cubes are colored from one field sample, and each cube is rewritten to the
// store: old subcube and vertex rows are deleted before the cube and all its
// subcubes are written. Cubes of windows that left are deleted.
func (s *Scene) SyncWindows(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx, false)
}

// sync rebuilds and rewrites the cubes. With restore set, the state stored
// under this window is applied to the fresh cubes before they are rewritten.
func (s *Scene) sync(ctx context.Context, restore bool) error {
	gone, err := s.build()
	if err != nil {
		return err
	}

	if restore {
		if err := s.load(ctx); err != nil {
			return err
		}
	} else if err := s.writer.Flush(ctx); err != nil {
		return err
	}
	for _, id := range gone {
		if err := s.store.DeleteCube(ctx, s.self, id); err != nil {
			s.logger.Warn("delete departed cube failed", "cube", id, "error", err)
		}
	}
	for _, c := range s.cubes {
		s.rewrite(ctx, c)
	}

	s.logger.Debug("windows synced", "window", s.self, "cubes", len(s.cubes))
	return nil
}

// Restore builds the cubes like SyncWindows but, instead of persisting them,
// re-applies the state stored under this window. Nothing is written.
func (s *Scene) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.build(); err != nil {
		return err
	}
	return s.load(ctx)
}

// build replaces the live cubes with fresh ones for the current windows and
// returns the ids of cubes whose window left.
func (s *Scene) build() ([]string, error) {
	wins := s.windows.Windows()
	cubes := make([]*liveCube, 0, len(wins))
	for _, win := range wins {
		c, err := newLiveCube(s.self, win, s.settings)
		if err != nil {
			return nil, err
		}
		if err := c.layout(s.settings.Grid, s.settings); err != nil {
			return nil, fmt.Errorf("layout cube %s: %w", c.ID, err)
		}
		cubes = append(cubes, c)
	}

	gone := make([]string, 0)
	for _, old := range s.cubes {
		found := false
		for _, c := range cubes {
			if c.ID == old.ID {
				found = true
				break
			}
		}
		if !found {
			gone = append(gone, old.ID)
		}
	}
	s.cubes = cubes

	if err := s.seedFromField(); err != nil {
		return nil, err
	}
	return gone, nil
}

// Relayout regenerates every cube with new grid extents. Symbols of the old
// grid are invalidated; colors and weights survive only when the cell count
// is unchanged.
func (s *Scene) Relayout(ctx context.Context, e symbol.Extents) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.Grid = e
	for _, c := range s.cubes {
		if err := c.layout(e, s.settings); err != nil {
			return fmt.Errorf("layout cube %s: %w", c.ID, err)
		}
	}
	if err := s.seedFromField(); err != nil {
		return err
	}

	if err := s.writer.Flush(ctx); err != nil {
		return err
	}
	for _, c := range s.cubes {
		s.rewrite(ctx, c)
	}
	return nil
}

// seedFromField steps the field once and colors field-driven cubes from it,
// then blends every cube.
func (s *Scene) seedFromField() error {
	count := s.settings.Grid.Count()
	if err := s.ensureField(count); err != nil {
		return err
	}
	var sample []model.Color
	for _, c := range s.cubes {
		if c.fieldDriven() {
			if sample == nil {
				sample = s.stepField()
			}
			c.recolor(sample)
		}
		c.blendAll(s.settings.Policy)
	}
	return nil
}

// rewrite replaces the stored hierarchy of c. Failures are logged; the live
// scene stays authoritative.
func (s *Scene) rewrite(ctx context.Context, c *liveCube) {
	log := s.logger.With("window", s.self, "cube", c.ID)

	if _, err := s.store.DeleteSubCubesByCube(ctx, s.self, c.ID); err != nil {
		log.Warn("delete old subcubes failed", "error", err)
	}
	if _, err := s.store.DeleteVerticesByCube(ctx, s.self, c.ID); err != nil {
		log.Warn("delete old vertices failed", "error", err)
	}
	if err := s.store.PutCube(ctx, c.cubeRecord()); err != nil {
		log.Warn("put cube failed", "error", err)
		return
	}
	for raster := range c.subs {
		rec, verts := c.subCubeRecord(raster, s.settings.Policy)
		if _, err := s.store.WriteSubCube(ctx, rec, verts); err != nil {
			log.Warn("write subcube failed", "subcube", rec.ID, "error", err)
		}
	}
}
