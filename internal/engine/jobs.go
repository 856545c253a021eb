package engine

import (
	"context"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/notify"
)

const (
	opPutCube      = "put_cube"
	opWriteSubCube = "write_subcube"
)

func cubeKey(id string) string { return "cube/" + id }

func subKey(cubeID, sym string) string { return "sub/" + cubeID + "/" + sym }

// submitCube queues a write of the cube record. A pending write of the same
// cube is replaced.
func (s *Scene) submitCube(c *liveCube) {
	rec := c.cubeRecord()
	s.writer.Submit(cubeKey(rec.ID), opPutCube, func(ctx context.Context) error {
		return s.store.PutCube(ctx, rec)
	})
}

// submitSubCube queues a write of the subcube at raster and announces it once
// the write has landed.
func (s *Scene) submitSubCube(c *liveCube, raster int) {
	rec, verts := c.subCubeRecord(raster, s.settings.Policy)
	pub := s.pub
	s.writer.Submit(subKey(rec.CubeID, rec.ID), opWriteSubCube, func(ctx context.Context) error {
		sym, err := s.store.WriteSubCube(ctx, rec, verts)
		if err != nil {
			return err
		}
		return s.announce(ctx, pub, rec, sym)
	})
}

func (s *Scene) announce(ctx context.Context, pub notify.Publisher, rec model.SubCube, sym string) error {
	err := pub.Publish(ctx, notify.Notification{
		Kind:      notify.KindSubCube,
		WindowID:  rec.WindowID,
		CubeID:    rec.CubeID,
		SubCubeID: sym,
		Origin:    s.self,
	})
	if err != nil {
		// the row is stored; peers pick it up on their next Load
		s.logger.Warn("publish change failed", "window", s.self, "cube", rec.CubeID, "subcube", sym, "error", err)
	}
	return nil
}
