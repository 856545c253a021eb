// Package config loads the cubefield configuration file.
//
// Files are YAML. Unset fields keep their defaults; unknown fields are
// rejected. The merged result is checked against an embedded CUE schema that
// bounds every value.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/symbol"
	"github.com/roach88/cubefield/internal/window"
)

//go:embed schema.cue
var schemaCUE string

// Cube holds the geometry and default appearance of every cube.
type Cube struct {
	Width      float64 `yaml:"width" json:"width"`
	Height     float64 `yaml:"height" json:"height"`
	Depth      float64 `yaml:"depth" json:"depth"`
	MatchDepth bool    `yaml:"match_depth" json:"match_depth"`
	Color      string  `yaml:"color" json:"color"`
	SubColor   string  `yaml:"sub_color" json:"sub_color"`
	PosX       float64 `yaml:"pos_x" json:"pos_x"`
	PosY       float64 `yaml:"pos_y" json:"pos_y"`
	VelocityX  float64 `yaml:"velocity_x" json:"velocity_x"`
	VelocityY  float64 `yaml:"velocity_y" json:"velocity_y"`
}

// Size returns the cube size for a grid. With MatchDepth the depth follows
// the subcube width so subcubes stay square in depth.
func (c Cube) Size(grid symbol.Extents) model.Size {
	depth := c.Depth
	if c.MatchDepth && grid.Cols > 0 {
		depth = c.Width / float64(grid.Cols) * float64(grid.Layers)
	}
	return model.Size{Width: c.Width, Height: c.Height, Depth: depth}
}

// Config is the full runtime configuration.
type Config struct {
	// Self is this instance's window id; generated when empty.
	Self        string `yaml:"self" json:"self"`
	DB          string `yaml:"db" json:"db"`
	Markers     string `yaml:"markers" json:"markers"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	FPS         int    `yaml:"fps" json:"fps"`
	Frames      int    `yaml:"frames" json:"frames"`
	Workers     int    `yaml:"workers" json:"workers"`
	Shards      int    `yaml:"shards" json:"shards"`

	Cube Cube           `yaml:"cube" json:"cube"`
	Grid symbol.Extents `yaml:"grid" json:"grid"`

	Animate bool    `yaml:"animate" json:"animate"`
	RotX    float64 `yaml:"rot_x" json:"rot_x"`
	RotY    float64 `yaml:"rot_y" json:"rot_y"`
	RotZ    float64 `yaml:"rot_z" json:"rot_z"`

	// Windows lists peer windows for headless runs. This instance is added
	// when missing.
	Windows []window.Window `yaml:"windows" json:"windows"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DB:      "cubefield.db",
		FPS:     60,
		Shards:  4,
		Animate: true,
		Cube: Cube{
			Width:    150,
			Height:   150,
			Depth:    150,
			Color:    "#ff0000",
			SubColor: "#ff0000",
		},
		Grid:    symbol.Extents{Rows: 2, Cols: 2, Layers: 2},
		Windows: []window.Window{},
	}
}

// Load reads path over the defaults and validates the result.
// An empty path yields the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := Decode(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode parses YAML into cfg, keeping fields the document does not set.
func Decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if cfg.Windows == nil {
		cfg.Windows = []window.Window{}
	}
	return nil
}

// ValidationError lists every schema violation found in a config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid config: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid config: %d problems, first: %s", len(e.Problems), e.Problems[0])
}

// Validate checks cfg against the embedded schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	if cfg.Windows == nil {
		cfg.Windows = []window.Window{}
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	value := ctx.CompileBytes(data, cue.Filename("config"))
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, e.Error())
		}
		if len(problems) == 0 {
			problems = []string{err.Error()}
		}
		return &ValidationError{Problems: problems}
	}
	return nil
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
