package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cubefield.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestValidate_Valid(t *testing.T) {
	path := writeConfig(t, `
db: shared.db
fps: 30
grid:
  rows: 3
  cols: 3
  layers: 3
windows:
  - id: a
    shape: {x: 0, y: 0, w: 200, h: 200}
`)

	out, _, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ config valid")
}

func TestValidate_ValidJSON(t *testing.T) {
	path := writeConfig(t, "fps: 120\n")

	out, _, err := execute(t, "--format", "json", "validate", path)
	require.NoError(t, err)

	env := decode[ValidationResult](t, out)
	assert.Equal(t, "ok", env.Status)
	assert.True(t, env.Data.Valid)
	assert.Empty(t, env.Data.Problems)
}

func TestValidate_SchemaProblems(t *testing.T) {
	path := writeConfig(t, `
fps: 0
grid:
  rows: 11
  cols: 2
  layers: 2
`)

	out, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, err.Error(), "problem(s)")
}

func TestValidate_SchemaProblemsJSON(t *testing.T) {
	path := writeConfig(t, "cube:\n  color: red\n")

	out, _, err := execute(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	env := decode[any](t, out)
	assert.Equal(t, "error", env.Status)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeConfig, env.Error.Code)
	assert.NotNil(t, env.Error.Details)
}

func TestValidate_UnknownField(t *testing.T) {
	path := writeConfig(t, "colour: blue\n")

	_, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_MissingFile(t *testing.T) {
	_, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_RequiresArgument(t *testing.T) {
	_, _, err := execute(t, "validate")
	require.Error(t, err)
}
