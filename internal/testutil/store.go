package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cubefield/internal/store"
)

// OpenStore opens a fresh SQLite store in a temp directory. It is closed
// when the test ends. Change markers come from a StepClock advancing one
// microsecond per write.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	return OpenStoreAt(t, filepath.Join(t.TempDir(), "cubefield.db"))
}

// OpenStoreAt opens the store at path, for tests that reopen a database.
func OpenStoreAt(t testing.TB, path string) *store.Store {
	t.Helper()
	clock := NewStepClock(time.Microsecond)
	s, err := store.Open(path, store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
