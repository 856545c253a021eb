package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/notify"
	"github.com/roach88/cubefield/internal/symbol"
	"github.com/roach88/cubefield/internal/window"
)

func receive(t *testing.T, sub *notify.Subscription) notify.Notification {
	t.Helper()
	select {
	case n := <-sub.C():
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
		return notify.Notification{}
	}
}

func TestSetSubCubeColor_PersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewBus()
	peer := bus.Subscribe("peer", 8)
	own := bus.Subscribe("me", 8)

	s, st, p := newTestScene(t, DefaultSettings(), []window.Window{{ID: "me"}}, WithPublisher(bus))
	require.NoError(t, s.SyncWindows(ctx))

	require.NoError(t, s.SetSubCubeColor(ctx, -0.5, -0.5, -0.5, "#0000FF"))
	require.NoError(t, s.Flush(ctx))

	cube, _ := s.Cube("me")
	sub := cube.SubCubes[0]
	assert.Equal(t, symbol.Cell{}, sub.Cell)
	assert.Equal(t, blue, sub.Vertices[0])
	assert.True(t, sub.Color.Approx(blue, 1e-9))

	verts, err := st.VerticesBySubCube(ctx, "me", "me", sub.Symbol)
	require.NoError(t, err)
	require.Len(t, verts, model.VerticesPerSubCube)
	for _, v := range verts {
		assert.Equal(t, blue, v.Color)
	}

	n := receive(t, peer)
	assert.Equal(t, notify.KindSubCube, n.Kind)
	assert.Equal(t, "me", n.WindowID)
	assert.Equal(t, "me", n.CubeID)
	assert.Equal(t, sub.Symbol, n.SubCubeID)
	assert.Equal(t, "me", n.Origin)
	assert.Empty(t, own.C())

	// The edit is recorded in the window metadata, so the cube leaves the field.
	assert.Equal(t, "#0000ff", p.Windows()[0].Meta.SubColors["0_0_0"])
	require.NoError(t, s.Frame(ctx, 0.016))
	cube, _ = s.Cube("me")
	assert.Equal(t, blue, cube.SubCubes[0].Vertices[0])
}

func TestSetSubCubeColor_ClampsCoordinates(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestScene(t, DefaultSettings(), []window.Window{{ID: "me", Meta: painted()}})
	require.NoError(t, s.SyncWindows(ctx))

	require.NoError(t, s.SetSubCubeColor(ctx, 5, 5, 5, "#00ff00"))

	cube, _ := s.Cube("me")
	last := symbol.Cell{Row: 1, Col: 1, Layer: 1}
	assert.Equal(t, green, cube.SubCubes[last.Raster(cube.Extents)].Vertices[0])
}

func TestSetSubCubeColor_Errors(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestScene(t, DefaultSettings(), []window.Window{{ID: "peer"}})
	require.NoError(t, s.SyncWindows(ctx))

	assert.ErrorIs(t, s.SetSubCubeColor(ctx, 0, 0, 0, "#00ff00"), ErrNoCube)
	assert.Error(t, s.SetSubCubeColor(ctx, 0, 0, 0, "green-ish"))
	assert.ErrorIs(t, s.SetSubCubeWeight(ctx, 0, 0, 0, 2), ErrNoCube)
}

func TestSetSubCubeWeight(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestScene(t, DefaultSettings(), []window.Window{{ID: "me", Meta: painted()}})
	require.NoError(t, s.SyncWindows(ctx))

	assert.Error(t, s.SetSubCubeWeight(ctx, 0.5, 0.5, 0.5, -1))

	require.NoError(t, s.SetSubCubeWeight(ctx, 0.5, 0.5, 0.5, 2.5))
	require.NoError(t, s.Flush(ctx))

	cube, _ := s.Cube("me")
	cell := symbol.Cell{Row: 1, Col: 1, Layer: 1}
	sub := cube.SubCubes[cell.Raster(cube.Extents)]
	assert.Equal(t, 2.5, sub.Weight)

	verts, err := st.VerticesBySubCube(ctx, "me", "me", sub.Symbol)
	require.NoError(t, err)
	require.NotEmpty(t, verts)
	for _, v := range verts {
		assert.Equal(t, 2.5, v.Weight)
	}
}

func TestApplyColorData_CanonicalOrder(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestScene(t, DefaultSettings(), []window.Window{{ID: "me", Meta: painted()}})
	require.NoError(t, s.SyncWindows(ctx))

	colors := make([]model.Color, 8)
	for i := range colors {
		colors[i] = model.RGB(float64(i)/8, 0, 1)
	}
	require.NoError(t, s.ApplyColorData(ctx, colors[:6]))

	cube, _ := s.Cube("me")
	for _, sub := range cube.SubCubes {
		if sub.Order < 6 {
			assert.Equal(t, colors[sub.Order], sub.Vertices[0], "order %d", sub.Order)
		} else {
			assert.Equal(t, red, sub.Vertices[0], "order %d", sub.Order)
		}
	}
}

func TestExportApplyMatrix(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestScene(t, DefaultSettings(), []window.Window{{ID: "me", Meta: painted()}})
	require.NoError(t, s.SyncWindows(ctx))

	m, err := s.ExportMatrix("me")
	require.NoError(t, err)
	require.Len(t, m, 8)
	assert.Equal(t, [3]float64{1, 0, 0}, m["0,0,0"][3])

	edit := m["0,0,0"]
	edit[3] = [3]float64{0, 1, 0}
	require.NoError(t, s.ApplyMatrix(ctx, "me", map[string]VertexMatrix{"0,0,0": edit}))

	again, err := s.ExportMatrix("me")
	require.NoError(t, err)
	assert.Equal(t, edit, again["0,0,0"])
	assert.Equal(t, m["1,1,1"], again["1,1,1"])

	require.NoError(t, s.Flush(ctx))
	cube, _ := s.Cube("me")
	verts, err := st.VerticesBySubCube(ctx, "me", "me", cube.SubCubes[0].Symbol)
	require.NoError(t, err)
	require.Len(t, verts, 8)
	assert.Equal(t, green, verts[3].Color)

	assert.Error(t, s.ApplyMatrix(ctx, "me", map[string]VertexMatrix{"9,9,9": edit}))
	_, err = s.ExportMatrix("nobody")
	assert.ErrorIs(t, err, ErrNoCube)
}

func TestCellAt(t *testing.T) {
	e := symbol.Extents{Rows: 3, Cols: 2, Layers: 1}
	assert.Equal(t, symbol.Cell{Row: 1, Col: 0, Layer: 0}, CellAt(e, 0, -0.5, 0))
	assert.Equal(t, symbol.Cell{Row: 0, Col: 1, Layer: 0}, CellAt(e, -1, 0.5, 3))
	assert.Equal(t, symbol.Cell{Row: 2, Col: 1, Layer: 0}, CellAt(e, 9, 9, -9))
}
