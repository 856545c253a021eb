package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/symbol"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cubefield.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, symbol.Extents{Rows: 2, Cols: 2, Layers: 2}, cfg.Grid)
}

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	path := writeConfig(t, `
db: /tmp/x.db
grid:
  rows: 3
  cols: 3
  layers: 1
cube:
  width: 200
  height: 150
  depth: 150
  color: "#00ff00"
  sub_color: "#0000ff"
windows:
  - id: peer-1
    shape: {x: 0, y: 0, w: 400, h: 300}
    meta:
      color: "#ffffff"
      sub_colors:
        "0_0_0": "#123456"
      sub_weights:
        "0_0_0": 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.DB)
	assert.Equal(t, 60, cfg.FPS)
	assert.Equal(t, 3, cfg.Grid.Rows)
	assert.Equal(t, 200.0, cfg.Cube.Width)
	require.Len(t, cfg.Windows, 1)
	assert.Equal(t, "#123456", cfg.Windows[0].Meta.SubColors["0_0_0"])
	assert.Equal(t, 2.0, cfg.Windows[0].Meta.SubWeights["0_0_0"])
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "gird:\n  rows: 2\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"rows too large", func(c *Config) { c.Grid.Rows = 11 }},
		{"layers zero", func(c *Config) { c.Grid.Layers = 0 }},
		{"width too small", func(c *Config) { c.Cube.Width = 10 }},
		{"bad color", func(c *Config) { c.Cube.Color = "red" }},
		{"fps zero", func(c *Config) { c.FPS = 0 }},
		{"empty db", func(c *Config) { c.DB = "" }},
		{"negative weight", func(c *Config) {
			c.Windows = append(c.Windows, windowWithWeight(-1))
		}},
		{"window id with underscore", func(c *Config) {
			w := windowWithWeight(1)
			w.ID = "win_a"
			c.Windows = append(c.Windows, w)
		}},
		{"window id with slash", func(c *Config) {
			w := windowWithWeight(1)
			w.ID = "a/b"
			c.Windows = append(c.Windows, w)
		}},
		{"self with dot", func(c *Config) { c.Self = "me.local" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestValidate_AcceptsWindows(t *testing.T) {
	cfg := Default()
	cfg.Self = "0192f3a4-6b1c-7d2e-8f3a-4b5c6d7e8f90"
	cfg.Windows = append(cfg.Windows, windowWithWeight(0.5))
	assert.NoError(t, Validate(cfg))
}

func TestLoad_RejectsMarkerUnsafeWindowID(t *testing.T) {
	path := writeConfig(t, "windows:\n  - id: win_a\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestCube_Size(t *testing.T) {
	c := Default().Cube
	grid := symbol.Extents{Rows: 2, Cols: 3, Layers: 2}
	assert.Equal(t, model.Size{Width: 150, Height: 150, Depth: 150}, c.Size(grid))

	c.MatchDepth = true
	assert.Equal(t, model.Size{Width: 150, Height: 150, Depth: 100}, c.Size(grid))
}
