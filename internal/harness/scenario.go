package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cubefield/internal/blend"
	"github.com/roach88/cubefield/internal/symbol"
	"github.com/roach88/cubefield/internal/window"
)

// Scenario is one scripted scene run.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Self is the id of the window running the scene. Defaults to "me".
	Self string `yaml:"self,omitempty"`

	// Grid defaults to 2x2x2.
	Grid *symbol.Extents `yaml:"grid,omitempty"`

	// Policy is the subcube blend policy. Defaults to weighted.
	Policy string `yaml:"policy,omitempty"`

	Windows    []window.Window `yaml:"windows"`
	Steps      []Step          `yaml:"steps"`
	Assertions []Assertion     `yaml:"assertions"`
}

// Step is one scene operation.
type Step struct {
	Op string `yaml:"op"`

	// Centered coordinates for paint and weight.
	Row   float64 `yaml:"row,omitempty"`
	Col   float64 `yaml:"col,omitempty"`
	Layer float64 `yaml:"layer,omitempty"`

	Color  string   `yaml:"color,omitempty"`
	Colors []string `yaml:"colors,omitempty"` // apply_colors, canonical order
	Weight float64  `yaml:"weight,omitempty"`

	DT    float64 `yaml:"dt,omitempty"`    // frame
	Count int     `yaml:"count,omitempty"` // frame repetitions, default 1

	Grid    *symbol.Extents `yaml:"grid,omitempty"`    // relayout
	Windows []window.Window `yaml:"windows,omitempty"` // set_windows

	// ExpectError makes the step pass only when it fails with an error
	// containing this text.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	OpSync        = "sync"
	OpRestore     = "restore"
	OpPaint       = "paint"
	OpWeight      = "weight"
	OpApplyColors = "apply_colors"
	OpFrame       = "frame"
	OpRelayout    = "relayout"
	OpSetWindows  = "set_windows"
	OpReopen      = "reopen"
)

var stepOps = []string{OpSync, OpRestore, OpPaint, OpWeight, OpApplyColors, OpFrame, OpRelayout, OpSetWindows, OpReopen}

// Assertion checks the scene or the store after the last step.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Cube   string `yaml:"cube,omitempty"`
	Cell   string `yaml:"cell,omitempty"` // "row,col,layer"
	Vertex int    `yaml:"vertex,omitempty"`

	Color   string   `yaml:"color,omitempty"`
	Weight  float64  `yaml:"weight,omitempty"`
	Count   int      `yaml:"count,omitempty"`
	Windows []string `yaml:"windows,omitempty"`
}

// Assertion types.
const (
	AssertCubeCount     = "cube_count"
	AssertSubCubeColor  = "subcube_color"
	AssertSubCubeWeight = "subcube_weight"
	AssertStoredVertex  = "stored_vertex"
	AssertStoredWindows = "stored_windows"
	AssertPublished     = "published"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Grid != nil {
		if err := s.Grid.Validate(); err != nil {
			return fmt.Errorf("grid: %w", err)
		}
	}
	if s.Policy != "" {
		if _, err := blend.ParsePolicy(s.Policy); err != nil {
			return err
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	if !slices.Contains(stepOps, step.Op) {
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	switch step.Op {
	case OpPaint:
		if step.Color == "" {
			return fmt.Errorf("steps[%d]: color is required for paint", index)
		}
	case OpApplyColors:
		if len(step.Colors) == 0 {
			return fmt.Errorf("steps[%d]: colors is required for apply_colors", index)
		}
	case OpFrame:
		if step.Count < 0 {
			return fmt.Errorf("steps[%d]: count must be non-negative", index)
		}
	case OpRelayout:
		if step.Grid == nil {
			return fmt.Errorf("steps[%d]: grid is required for relayout", index)
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	needCell := func() error {
		if a.Cube == "" || a.Cell == "" {
			return fmt.Errorf("assertions[%d]: cube and cell are required for %s", index, a.Type)
		}
		if _, err := parseCell(a.Cell); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		return nil
	}

	switch a.Type {
	case AssertCubeCount, AssertPublished, AssertStoredWindows:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
		return nil
	case AssertSubCubeColor, AssertStoredVertex:
		if a.Color == "" {
			return fmt.Errorf("assertions[%d]: color is required for %s", index, a.Type)
		}
		return needCell()
	case AssertSubCubeWeight:
		return needCell()
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
}

func parseCell(s string) (symbol.Cell, error) {
	var c symbol.Cell
	if _, err := fmt.Sscanf(s, "%d,%d,%d", &c.Row, &c.Col, &c.Layer); err != nil {
		return symbol.Cell{}, fmt.Errorf("invalid cell %q: want row,col,layer", s)
	}
	return c, nil
}
