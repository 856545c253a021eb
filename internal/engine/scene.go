package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/cubefield/internal/blend"
	"github.com/roach88/cubefield/internal/compute"
	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/notify"
	"github.com/roach88/cubefield/internal/persist"
	"github.com/roach88/cubefield/internal/store"
	"github.com/roach88/cubefield/internal/symbol"
	"github.com/roach88/cubefield/internal/window"
)

// Falloff is the fraction of the remaining distance a cube moves toward its
// window center each frame.
const Falloff = 0.05

// ErrNoCube is returned by edits when this window has no cube in the scene.
var ErrNoCube = errors.New("this window has no cube")

// ErrClosed is returned by Frame after Shutdown.
var ErrClosed = errors.New("scene is shut down")

// Settings are the scene-wide defaults applied to every cube.
type Settings struct {
	Grid     symbol.Extents
	Size     model.Size
	Color    model.Color // cube color when window metadata has none
	SubColor model.Color // subcube color when metadata has no override

	Offset   [2]float64 // added to each window center
	Velocity [2]float64 // units per second while animating

	Animate bool
	Rot     model.Vec3

	// Policy blends a subcube's vertex colors.
	Policy blend.Policy
}

// DefaultSettings matches the stock configuration.
func DefaultSettings() Settings {
	red := model.RGB(1, 0, 0)
	return Settings{
		Grid:     symbol.Extents{Rows: 2, Cols: 2, Layers: 2},
		Size:     model.Size{Width: 150, Height: 150, Depth: 150},
		Color:    red,
		SubColor: red,
		Animate:  true,
		Policy:   blend.Weighted,
	}
}

// Option configures a Scene.
type Option func(*Scene)

// WithLogger sets the scene logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scene) { s.logger = l }
}

// WithPublisher announces persisted edits to other instances.
func WithPublisher(p notify.Publisher) Option {
	return func(s *Scene) { s.pub = p }
}

// WithWriterOptions configures the scene's persistence writer.
func WithWriterOptions(opts ...persist.Option) Option {
	return func(s *Scene) { s.writerOpts = append(s.writerOpts, opts...) }
}

// WithFieldOptions configures the compute engine behind the color field.
func WithFieldOptions(opts ...compute.Option) Option {
	return func(s *Scene) { s.fieldOpts = append(s.fieldOpts, opts...) }
}

// WithStartTime sets the animation time of the first frame in seconds.
func WithStartTime(t float64) Option {
	return func(s *Scene) { s.time = t }
}

// Scene is the live hierarchy of every window's cube.
type Scene struct {
	mu sync.Mutex

	settings Settings
	windows  window.Provider
	self     string
	store    *store.Store
	writer   *persist.Writer
	pub      notify.Publisher
	logger   *slog.Logger

	writerOpts []persist.Option
	fieldOpts  []compute.Option

	field      *compute.Engine
	colorField *compute.Variable

	cubes []*liveCube
	time  float64

	closed bool
}

// New creates a scene over st for the windows of p. Call SyncWindows to build
// the cubes.
func New(st *store.Store, p window.Provider, settings Settings, opts ...Option) (*Scene, error) {
	if st == nil {
		return nil, errors.New("scene requires a store")
	}
	if err := settings.Grid.Validate(); err != nil {
		return nil, fmt.Errorf("scene grid: %w", err)
	}
	if !settings.Policy.Valid() {
		settings.Policy = blend.Weighted
	}

	s := &Scene{
		settings: settings,
		windows:  p,
		self:     window.NormalizeID(p.ThisWindowID()),
		store:    st,
		pub:      notify.Nop{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writer = persist.New(append([]persist.Option{persist.WithLogger(s.logger)}, s.writerOpts...)...)

	if err := s.ensureField(settings.Grid.Count()); err != nil {
		s.writer.Close()
		return nil, err
	}
	return s, nil
}

// ThisWindowID returns the id the scene persists under.
func (s *Scene) ThisWindowID() string {
	return s.self
}

// Settings returns the current scene settings.
func (s *Scene) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Time returns the animation time in seconds.
func (s *Scene) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.time
}

// Field returns the compute engine that produces the color field.
func (s *Scene) Field() *compute.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.field
}

// ensureField makes the color field large enough for count subcubes.
// The field is a square grid of ceil(sqrt(count)) cells per side.
func (s *Scene) ensureField(count int) error {
	if s.field != nil && s.field.Cells() >= count {
		return nil
	}
	side := fieldSide(count)
	opts := append([]compute.Option{compute.WithLogger(s.logger)}, s.fieldOpts...)
	e, err := compute.New(side, side, opts...)
	if err != nil {
		return fmt.Errorf("create color field: %w", err)
	}
	v, err := compute.DeclareColorField(e)
	if err != nil {
		return fmt.Errorf("declare color field: %w", err)
	}
	if err := e.Initialize(); err != nil {
		return fmt.Errorf("initialize color field: %w", err)
	}
	s.field, s.colorField = e, v
	s.logger.Debug("color field ready", "width", side, "height", side, "cells", count)
	return nil
}

func fieldSide(count int) int {
	side := 1
	for side*side < count {
		side++
	}
	return side
}

// cubeByID returns the live cube for a peer window id.
func (s *Scene) cubeByID(id string) *liveCube {
	for _, c := range s.cubes {
		if c.ID == id {
			return c
		}
	}
	return nil
}
