package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cubefield/internal/engine"
	"github.com/roach88/cubefield/internal/store"
	"github.com/roach88/cubefield/internal/window"
)

// execute runs the root command with args and returns stdout, stderr and the
// command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

type envelope[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func decode[T any](t *testing.T, out string) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "cubefield.db")
}

// seedWindow stores one synced cube per id under self, then closes the store.
func seedWindow(t *testing.T, path, self string, ids ...string) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	wins := make([]window.Window, len(ids))
	for i, id := range ids {
		wins[i] = window.Window{ID: id}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scene, err := engine.New(st, window.NewStatic(self, wins...), engine.DefaultSettings(), engine.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, scene.SyncWindows(ctx))
	require.NoError(t, scene.Flush(ctx))
	scene.Close()
}
