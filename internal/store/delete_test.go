package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/symbol"
)

// seedWindow stores one cube with every subcube and vertex under windowID.
func seedWindow(t *testing.T, s *Store, windowID, cubeID string) {
	t.Helper()
	ctx := context.Background()
	c := createTestCube(t, windowID, cubeID, symbol.Extents{Rows: 2, Cols: 1, Layers: 1})
	require.NoError(t, s.PutCube(ctx, c))
	for ord, sym := range c.SubIDs {
		_, err := s.WriteSubCube(ctx, createTestSubCube(windowID, cubeID, sym, ord),
			createTestVertices(windowID, cubeID, sym, model.Black))
		require.NoError(t, err)
	}
}

func countRows(t *testing.T, s *Store, table, windowID string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM "+table+" WHERE window_id = ?", windowID).Scan(&n))
	return n
}

func TestDeleteSubCubesByCube(t *testing.T) {
	s := createTestStore(t)
	seedWindow(t, s, "w1", "c1")
	seedWindow(t, s, "w1", "c2")

	n, err := s.DeleteSubCubesByCube(context.Background(), "w1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	subs, err := s.SubCubesByCube(context.Background(), "w1", "c2")
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestDeleteVerticesByCube(t *testing.T) {
	s := createTestStore(t)
	seedWindow(t, s, "w1", "c1")

	n, err := s.DeleteVerticesByCube(context.Background(), "w1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, 2, countRows(t, s, "subcubes", "w1"))
}

func TestDeleteCube_Cascades(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedWindow(t, s, "w1", "c1")
	seedWindow(t, s, "w1", "c2")

	require.NoError(t, s.DeleteCube(ctx, "w1", "c1"))

	_, err := s.GetCube(ctx, "w1", "c1")
	assert.True(t, errors.Is(err, ErrNotFound))
	subs, err := s.SubCubesByCube(ctx, "w1", "c1")
	require.NoError(t, err)
	assert.Empty(t, subs)
	vs, err := s.VerticesByCube(ctx, "w1", "c1")
	require.NoError(t, err)
	assert.Empty(t, vs)

	_, err = s.GetCube(ctx, "w1", "c2")
	assert.NoError(t, err)
}

func TestDeleteWindow(t *testing.T) {
	s := createTestStore(t)
	seedWindow(t, s, "w1", "c1")
	seedWindow(t, s, "w2", "c1")

	require.NoError(t, s.DeleteWindow(context.Background(), "w1"))

	for _, table := range []string{"cubes", "subcubes", "vertices"} {
		assert.Zero(t, countRows(t, s, table, "w1"), table)
		assert.NotZero(t, countRows(t, s, table, "w2"), table)
	}
}

func TestPurgeStale(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, w := range []string{"A", "B", "C"} {
		seedWindow(t, s, w, "cube-"+w)
	}

	purged, err := s.PurgeStale(ctx, []string{"B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, purged)

	ids, err := s.WindowIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, ids)
}

func TestPurgeStale_NothingStale(t *testing.T) {
	s := createTestStore(t)
	seedWindow(t, s, "A", "c")

	purged, err := s.PurgeStale(context.Background(), []string{"A", "Z"})
	require.NoError(t, err)
	assert.Empty(t, purged)
}
