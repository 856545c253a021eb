package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/cubefield/internal/blend"
	"github.com/roach88/cubefield/internal/config"
	"github.com/roach88/cubefield/internal/engine"
	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/store"
	"github.com/roach88/cubefield/internal/window"
)

// sceneFlags are the flags shared by commands that build a scene.
type sceneFlags struct {
	Config   string
	Database string
	Self     string
	Policy   string
}

func (f *sceneFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Config, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&f.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&f.Self, "self", "", "window id of this instance (overrides config)")
	cmd.Flags().StringVar(&f.Policy, "policy", string(blend.Weighted), "subcube blend policy (average|weighted|max|layered)")
}

// load reads the config and applies flag overrides. A missing self id is
// generated when generate is set and an error otherwise.
func (f *sceneFlags) load(cmd *cobra.Command, generate bool) (config.Config, error) {
	cfg, err := config.Load(f.Config)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("db") {
		cfg.DB = f.Database
	}
	if cmd.Flags().Changed("self") {
		cfg.Self = f.Self
	}
	if cfg.Self == "" {
		if !generate {
			return config.Config{}, errors.New("no window id: set --self or self in the config file")
		}
		cfg.Self = window.UUIDv7Generator{}.Generate()
	}
	cfg.Self = window.NormalizeID(cfg.Self)
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// sceneSettings converts a validated config into scene settings.
func sceneSettings(cfg config.Config, policy string) (engine.Settings, error) {
	p, err := blend.ParsePolicy(policy)
	if err != nil {
		return engine.Settings{}, err
	}
	color, err := parseColor(cfg.Cube.Color)
	if err != nil {
		return engine.Settings{}, err
	}
	sub, err := parseColor(cfg.Cube.SubColor)
	if err != nil {
		return engine.Settings{}, err
	}
	return engine.Settings{
		Grid:     cfg.Grid,
		Size:     cfg.Cube.Size(cfg.Grid),
		Color:    color,
		SubColor: sub,
		Offset:   [2]float64{cfg.Cube.PosX, cfg.Cube.PosY},
		Velocity: [2]float64{cfg.Cube.VelocityX, cfg.Cube.VelocityY},
		Animate:  cfg.Animate,
		Rot:      model.Vec3{cfg.RotX, cfg.RotY, cfg.RotZ},
		Policy:   p,
	}, nil
}

// windowsFor returns the configured windows with this instance appended when
// the list does not name it.
func windowsFor(cfg config.Config) *window.Static {
	wins := make([]window.Window, 0, len(cfg.Windows)+1)
	found := false
	for _, w := range cfg.Windows {
		if window.NormalizeID(w.ID) == cfg.Self {
			found = true
		}
		wins = append(wins, w)
	}
	if !found {
		wins = append(wins, window.Window{
			ID:    cfg.Self,
			Shape: window.Shape{W: cfg.Cube.Width, H: cfg.Cube.Height},
			Meta:  window.Meta{Color: cfg.Cube.Color, Animate: cfg.Animate},
		})
	}
	return window.NewStatic(cfg.Self, wins...)
}

// openStore opens the database. A failed legacy migration is logged and the
// store is used anyway.
func openStore(path string, logger *slog.Logger) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		if st != nil && store.IsMigrationError(err) {
			logger.Warn("legacy migration incomplete", "db", path, "error", err)
			return st, nil
		}
		return nil, err
	}
	return st, nil
}

func parseColor(hex string) (model.Color, error) {
	c, err := model.ParseHex(hex)
	if err != nil {
		return model.Color{}, fmt.Errorf("invalid color: %w", err)
	}
	return c, nil
}
