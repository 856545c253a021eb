package store

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/symbol"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// tickingClock returns a clock that advances one nanosecond per call.
func tickingClock() func() time.Time {
	var n atomic.Int64
	return func() time.Time { return time.Unix(0, n.Add(1)) }
}

// createTestCube builds a cube with symbols for the given extents.
func createTestCube(t *testing.T, windowID, id string, e symbol.Extents) model.Cube {
	t.Helper()
	a, err := symbol.NewAssigner(e)
	require.NoError(t, err)
	size := model.Size{Width: 150, Height: 150, Depth: 150}
	return model.Cube{
		WindowID: windowID,
		ID:       id,
		Center:   model.Vec3{10, 20, 0},
		Size:     size,
		Extents:  e,
		Color:    model.MustParseHex("#00ff00"),
		SubIDs:   a.Symbols(),
		Corners:  model.CubeCorners(size, model.MustParseHex("#00ff00")),
	}
}

func createTestSubCube(windowID, cubeID, sym string, order int) model.SubCube {
	center := model.Vec3{-50, -50, 0}
	return model.SubCube{
		WindowID:  windowID,
		CubeID:    cubeID,
		ID:        sym,
		Center:    &center,
		OriginID:  cubeID,
		Policy:    "weighted",
		VertexIDs: model.VertexIDs(sym),
		Order:     order,
	}
}

func createTestVertices(windowID, cubeID, sym string, color model.Color) []model.Vertex {
	vs := make([]model.Vertex, model.VerticesPerSubCube)
	for i := range vs {
		vs[i] = model.Vertex{
			WindowID:  windowID,
			CubeID:    cubeID,
			SubCubeID: sym,
			Index:     i,
			Color:     color,
			Position:  model.CornerOffset(model.Size{Width: 50, Height: 50, Depth: 50}, i),
			Weight:    1,
			Tag:       model.TagSoft,
		}
	}
	return vs
}

// testExtents returns an n x 1 x 1 grid.
func testExtents(n int) symbol.Extents {
	return symbol.Extents{Rows: n, Cols: 1, Layers: 1}
}
