package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/notify"
	"github.com/roach88/cubefield/internal/store"
	"github.com/roach88/cubefield/internal/symbol"
	"github.com/roach88/cubefield/internal/testutil"
	"github.com/roach88/cubefield/internal/window"
)

// overwriteSubCube stores new vertex colors for one subcube as a peer would.
func overwriteSubCube(t *testing.T, st *store.Store, cubeID, sym string, color model.Color, weight float64) {
	t.Helper()
	verts, err := st.VerticesBySubCube(context.Background(), "me", cubeID, sym)
	require.NoError(t, err)
	require.NotEmpty(t, verts)
	for i := range verts {
		verts[i].Color = color
		verts[i].Weight = weight
	}
	require.NoError(t, st.PutVertices(context.Background(), verts))
}

func TestLoad_RestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestScene(t, DefaultSettings(), []window.Window{
		{ID: "me", Meta: painted()},
		{ID: "peer", Meta: painted()},
	})
	require.NoError(t, s.SyncWindows(ctx))

	rec, err := st.GetCube(ctx, "me", "peer")
	require.NoError(t, err)
	rec.Center = model.Vec3{7, 8, 9}
	require.NoError(t, st.PutCube(ctx, rec))
	overwriteSubCube(t, st, "peer", symbol.Symbol(3), green, 4)

	require.NoError(t, s.Load(ctx))

	cube, _ := s.Cube("peer")
	assert.Equal(t, model.Vec3{7, 8, 9}, cube.Center)
	for _, sub := range cube.SubCubes {
		if sub.Symbol == symbol.Symbol(3) {
			assert.Equal(t, green, sub.Vertices[0])
			assert.True(t, sub.Color.Approx(green, 1e-9))
			assert.Equal(t, 4.0, sub.Weight)
		} else {
			assert.Equal(t, red, sub.Vertices[0], sub.Symbol)
		}
	}
}

func TestLoad_SkipsUnknownCubes(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestScene(t, DefaultSettings(), []window.Window{{ID: "me", Meta: painted()}})
	require.NoError(t, s.SyncWindows(ctx))

	require.NoError(t, st.PutCube(ctx, model.Cube{WindowID: "me", ID: "gone", SubIDs: []string{"AA"}}))
	require.NoError(t, s.Load(ctx))
	assert.Len(t, s.Cubes(), 1)
}

func TestApplyChange_SubCube(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestScene(t, DefaultSettings(), []window.Window{
		{ID: "me", Meta: painted()},
		{ID: "peer", Meta: painted()},
	})
	require.NoError(t, s.SyncWindows(ctx))

	overwriteSubCube(t, st, "peer", symbol.Symbol(0), blue, 1)
	overwriteSubCube(t, st, "peer", symbol.Symbol(1), green, 1)

	require.NoError(t, s.ApplyChange(ctx, notify.Notification{
		Kind:      notify.KindSubCube,
		WindowID:  "me",
		CubeID:    "peer",
		SubCubeID: symbol.Symbol(0),
	}))

	cube, _ := s.Cube("peer")
	for _, sub := range cube.SubCubes {
		switch sub.Symbol {
		case symbol.Symbol(0):
			assert.Equal(t, blue, sub.Vertices[0])
		default:
			// only the named subcube is re-read
			assert.Equal(t, red, sub.Vertices[0], sub.Symbol)
		}
	}
}

func TestApplyChange_Cube(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestScene(t, DefaultSettings(), []window.Window{{ID: "me", Meta: painted()}})
	require.NoError(t, s.SyncWindows(ctx))

	rec, err := st.GetCube(ctx, "me", "me")
	require.NoError(t, err)
	rec.Center = model.Vec3{1, 2, 3}
	require.NoError(t, st.PutCube(ctx, rec))
	overwriteSubCube(t, st, "me", symbol.Symbol(5), green, 1)

	require.NoError(t, s.ApplyChange(ctx, notify.Notification{Kind: notify.KindCube, WindowID: "me", CubeID: "me"}))

	cube, _ := s.Cube("me")
	assert.Equal(t, model.Vec3{1, 2, 3}, cube.Center)
	for _, sub := range cube.SubCubes {
		if sub.Symbol == symbol.Symbol(5) {
			assert.Equal(t, green, sub.Vertices[0])
		}
	}
}

func TestApplyChange_Errors(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestScene(t, DefaultSettings(), []window.Window{{ID: "me", Meta: painted()}})
	require.NoError(t, s.SyncWindows(ctx))

	// unknown cubes are ignored
	assert.NoError(t, s.ApplyChange(ctx, notify.Notification{Kind: notify.KindSubCube, CubeID: "nobody", SubCubeID: "AA"}))
	assert.NoError(t, s.ApplyChange(ctx, notify.Notification{Kind: notify.KindCube, WindowID: "other", CubeID: "me"}))

	assert.Error(t, s.ApplyChange(ctx, notify.Notification{Kind: notify.KindSubCube, WindowID: "me", CubeID: "me", SubCubeID: "ZZ"}))
	assert.Error(t, s.ApplyChange(ctx, notify.Notification{Kind: "window", WindowID: "me", CubeID: "me"}))
}

// openScene opens another scene running as self on st.
func openScene(t *testing.T, st *store.Store, self string, wins []window.Window, opts ...Option) (*Scene, *window.Static) {
	t.Helper()
	p := window.NewStatic(self, wins...)
	s, err := New(st, p, DefaultSettings(), append([]Option{WithLogger(discardLogger())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, p
}

func TestApplyChange_SurvivesFrameOnFieldDrivenReceiver(t *testing.T) {
	ctx := context.Background()
	st := testutil.OpenStore(t)
	bus := notify.NewBus()
	sub := bus.Subscribe("b", 8)
	wins := []window.Window{{ID: "a"}, {ID: "b"}}

	a, _ := openScene(t, st, "a", wins, WithPublisher(bus))
	b, bp := openScene(t, st, "b", wins)
	require.NoError(t, a.SyncWindows(ctx))
	require.NoError(t, b.SyncWindows(ctx))

	require.NoError(t, a.SetSubCubeColor(ctx, -0.5, -0.5, -0.5, "#00ff00"))
	require.NoError(t, a.Flush(ctx))

	n := receive(t, sub)
	require.NoError(t, b.ApplyChange(ctx, n))

	cube, _ := b.Cube("a")
	require.Equal(t, green, cube.SubCubes[0].Vertices[0])
	assert.Equal(t, "#00ff00", bp.Windows()[0].Meta.SubColors["0_0_0"])

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Frame(ctx, 0.5))
	}
	cube, _ = b.Cube("a")
	for i, v := range cube.SubCubes[0].Vertices {
		assert.Equal(t, green, v, "vertex %d", i)
	}
	assert.True(t, cube.SubCubes[0].Color.Approx(green, 1e-9))

	// b's own cube saw no change and still follows the field
	own, _ := b.Cube("b")
	buf := b.Field().Sample(b.colorField)
	v := buf.AtIndex(0)
	assert.Equal(t, model.RGB(float64(v[0]), float64(v[1]), float64(v[2])), own.SubCubes[0].Vertices[0])
}

func TestRestore_KeepsStoredColorsAcrossFrames(t *testing.T) {
	ctx := context.Background()
	wins := []window.Window{{ID: "me"}, {ID: "peer"}}
	first, st, _ := newTestScene(t, DefaultSettings(), wins)
	require.NoError(t, first.SyncWindows(ctx))
	overwriteSubCube(t, st, "peer", symbol.Symbol(0), green, 1)

	s, p := openScene(t, st, "me", wins)
	require.NoError(t, s.Restore(ctx))
	require.NoError(t, s.Frame(ctx, 0.5))
	require.NoError(t, s.Frame(ctx, 0.5))

	peer, _ := s.Cube("peer")
	for _, sub := range peer.SubCubes {
		if sub.Symbol == symbol.Symbol(0) {
			assert.Equal(t, green, sub.Vertices[0])
		}
	}
	assert.NotEmpty(t, p.Windows()[1].Meta.SubColors)

	// stored colors equal to the field seed are not overrides
	assert.Empty(t, p.Windows()[0].Meta.SubColors)
	me, _ := s.Cube("me")
	buf := s.Field().Sample(s.colorField)
	for raster, sub := range me.SubCubes {
		v := buf.AtIndex(raster)
		assert.Equal(t, model.RGB(float64(v[0]), float64(v[1]), float64(v[2])), sub.Vertices[0], "raster %d", raster)
	}
}

func TestStart_AppliesStateLeftByEarlierProcess(t *testing.T) {
	ctx := context.Background()
	wins := []window.Window{{ID: "me"}}
	first, st, _ := newTestScene(t, DefaultSettings(), wins)
	require.NoError(t, first.SyncWindows(ctx))
	require.NoError(t, first.SetSubCubeColor(ctx, -0.5, -0.5, -0.5, "#00ff00"))
	first.Close()

	s, _ := openScene(t, st, "me", wins)
	_, err := s.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Frame(ctx, 0.5))
	require.NoError(t, s.Flush(ctx))

	cube, _ := s.Cube("me")
	assert.Equal(t, green, cube.SubCubes[0].Vertices[0])

	verts, err := st.VerticesBySubCube(ctx, "me", "me", cube.SubCubes[0].Symbol)
	require.NoError(t, err)
	require.NotEmpty(t, verts)
	assert.Equal(t, green, verts[0].Color)
}
