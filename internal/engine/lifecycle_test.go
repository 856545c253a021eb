package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/symbol"
	"github.com/roach88/cubefield/internal/window"
)

func TestStart_PurgesStaleWindows(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestScene(t, DefaultSettings(), []window.Window{{ID: "me"}, {ID: "peer"}})

	require.NoError(t, st.PutCube(ctx, model.Cube{WindowID: "ghost", ID: "me"}))
	require.NoError(t, st.PutCube(ctx, model.Cube{WindowID: "peer", ID: "peer"}))

	purged, err := s.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, purged)

	ids, err := st.WindowIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"me", "peer"}, ids)
	assert.Len(t, s.Cubes(), 2)
}

func TestShutdown_RemovesOwnData(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestScene(t, DefaultSettings(), []window.Window{{ID: "me"}})
	_, err := s.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Frame(ctx, 0.016))

	require.NoError(t, s.Shutdown(ctx))

	ids, err := st.WindowIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRelayout(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newTestScene(t, DefaultSettings(), []window.Window{{ID: "me", Meta: painted()}})
	require.NoError(t, s.SyncWindows(ctx))

	assert.Error(t, s.Relayout(ctx, symbol.Extents{Rows: 1, Cols: 0, Layers: 1}))

	e := symbol.Extents{Rows: 3, Cols: 1, Layers: 1}
	require.NoError(t, s.Relayout(ctx, e))

	cube, _ := s.Cube("me")
	assert.Equal(t, e, cube.Extents)
	assert.Len(t, cube.SubCubes, 3)
	assert.Equal(t, e, s.Settings().Grid)

	subs, err := st.SubCubesByCube(ctx, "me", "me")
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, []string{"AA", "BA", "CA"}, []string{subs[0].ID, subs[1].ID, subs[2].ID})

	verts, err := st.VerticesByCube(ctx, "me", "me")
	require.NoError(t, err)
	assert.Len(t, verts, 24)
}

func TestCubes_ReturnsCopies(t *testing.T) {
	s, _, _ := newTestScene(t, DefaultSettings(), []window.Window{{ID: "me", Meta: painted()}})
	require.NoError(t, s.SyncWindows(context.Background()))

	first := s.Cubes()
	first[0].Symbols[0] = "changed"
	first[0].SubCubes[0].Vertices[0] = green

	again := s.Cubes()
	assert.Equal(t, "AA", again[0].Symbols[0])
	assert.Equal(t, red, again[0].SubCubes[0].Vertices[0])
}
