// Package window describes the peer windows a scene renders one cube for.
//
// Placement and presence negotiation happen elsewhere; this package is the
// contract the scene consumes: an ordered list of windows with their screen
// shape and metadata, and the id of the window the process runs as.
package window

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/cubefield/internal/symbol"
)

// Shape is a window's screen rectangle.
type Shape struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	W float64 `yaml:"w" json:"w"`
	H float64 `yaml:"h" json:"h"`
}

// Center returns the middle of the rectangle.
func (s Shape) Center() (x, y float64) {
	return s.X + s.W*0.5, s.Y + s.H*0.5
}

// Meta is the per-window state shared with peers.
//
// SubColors and SubWeights are keyed by SubKey. A window with no SubColors is
// field-driven: its subcube colors come from the compute field every frame.
type Meta struct {
	Color      string             `yaml:"color" json:"color"`
	SubColors  map[string]string  `yaml:"sub_colors,omitempty" json:"subColors,omitempty"`
	SubWeights map[string]float64 `yaml:"sub_weights,omitempty" json:"subWeights,omitempty"`
	Animate    bool               `yaml:"animate" json:"animate"`
	RotX       float64            `yaml:"rot_x" json:"rotX"`
	RotY       float64            `yaml:"rot_y" json:"rotY"`
	RotZ       float64            `yaml:"rot_z" json:"rotZ"`
}

// FieldDriven reports whether the window has no explicit subcube colors.
func (m Meta) FieldDriven() bool {
	return len(m.SubColors) == 0
}

// Clone returns a deep copy.
func (m Meta) Clone() Meta {
	out := m
	if m.SubColors != nil {
		out.SubColors = make(map[string]string, len(m.SubColors))
		for k, v := range m.SubColors {
			out.SubColors[k] = v
		}
	}
	if m.SubWeights != nil {
		out.SubWeights = make(map[string]float64, len(m.SubWeights))
		for k, v := range m.SubWeights {
			out.SubWeights[k] = v
		}
	}
	return out
}

// SubKey is the metadata key of a grid cell: "row_col_layer".
func SubKey(c symbol.Cell) string {
	return strconv.Itoa(c.Row) + "_" + strconv.Itoa(c.Col) + "_" + strconv.Itoa(c.Layer)
}

// ParseSubKey is the inverse of SubKey.
func ParseSubKey(key string) (symbol.Cell, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 {
		return symbol.Cell{}, fmt.Errorf("invalid sub key %q", key)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return symbol.Cell{}, fmt.Errorf("invalid sub key %q", key)
		}
		v[i] = n
	}
	return symbol.Cell{Row: v[0], Col: v[1], Layer: v[2]}, nil
}

// Window is one peer.
type Window struct {
	ID    string `yaml:"id" json:"id"`
	Shape Shape  `yaml:"shape" json:"shape"`
	Meta  Meta   `yaml:"meta" json:"meta"`
}

// Provider supplies the current window list.
type Provider interface {
	// Windows returns the live windows in display order.
	Windows() []Window
	// ThisWindowID returns the id of the window this process runs as.
	ThisWindowID() string
}

// Static is an in-memory Provider. Safe for concurrent use.
type Static struct {
	mu   sync.RWMutex
	self string
	wins []Window
}

// NewStatic returns a provider running as self over wins.
// Window ids are normalized.
func NewStatic(self string, wins ...Window) *Static {
	s := &Static{self: NormalizeID(self)}
	s.Set(wins)
	return s
}

func (s *Static) ThisWindowID() string {
	return s.self
}

func (s *Static) Windows() []Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Window, len(s.wins))
	for i, w := range s.wins {
		w.Meta = w.Meta.Clone()
		out[i] = w
	}
	return out
}

// Set replaces the window list.
func (s *Static) Set(wins []Window) {
	cp := make([]Window, len(wins))
	for i, w := range wins {
		w.ID = NormalizeID(w.ID)
		w.Meta = w.Meta.Clone()
		cp[i] = w
	}
	s.mu.Lock()
	s.wins = cp
	s.mu.Unlock()
}

// UpdateMeta applies fn to the metadata of window id.
// Returns false if no such window exists.
func (s *Static) UpdateMeta(id string, fn func(*Meta)) bool {
	id = NormalizeID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.wins {
		if s.wins[i].ID == id {
			fn(&s.wins[i].Meta)
			return true
		}
	}
	return false
}

// IDs returns the ids of wins in order.
func IDs(wins []Window) []string {
	out := make([]string, len(wins))
	for i, w := range wins {
		out[i] = w.ID
	}
	return out
}
