package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/cubefield/internal/engine"
	"github.com/roach88/cubefield/internal/model"
	"github.com/roach88/cubefield/internal/store"
	"github.com/roach88/cubefield/internal/window"
)

// AssertionContext gives assertions access to the final scene and store.
type AssertionContext struct {
	Ctx   context.Context
	Store *store.Store
	Scene *engine.Scene
	Self  string
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s cubes=%d published=%d\n", ev.Step, ev.Op, ev.Cubes, ev.Published)
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: result.Trace}
	}

	switch a.Type {
	case AssertCubeCount:
		if n := len(actx.Scene.Cubes()); n != a.Count {
			return fail(fmt.Sprintf("%d cube(s)", a.Count), fmt.Sprintf("%d cube(s)", n))
		}
		return nil

	case AssertPublished:
		if n := result.Published(); n != a.Count {
			return fail(fmt.Sprintf("%d notification(s)", a.Count), fmt.Sprintf("%d notification(s)", n))
		}
		return nil

	case AssertStoredWindows:
		ids, err := actx.Store.WindowIDs(actx.Ctx)
		if err != nil {
			return err
		}
		want := make([]string, len(a.Windows))
		for i, id := range a.Windows {
			want[i] = window.NormalizeID(id)
		}
		slices.Sort(want)
		if !slices.Equal(ids, want) {
			return fail(fmt.Sprintf("windows %v", want), fmt.Sprintf("windows %v", ids))
		}
		return nil

	case AssertSubCubeColor:
		sub, err := liveSubCube(actx, a)
		if err != nil {
			return err
		}
		want, err := model.ParseHex(a.Color)
		if err != nil {
			return err
		}
		if sub.Color.Hex() != want.Hex() {
			return fail("color "+want.Hex(), "color "+sub.Color.Hex())
		}
		return nil

	case AssertSubCubeWeight:
		sub, err := liveSubCube(actx, a)
		if err != nil {
			return err
		}
		if sub.Weight != a.Weight {
			return fail(fmt.Sprintf("weight %g", a.Weight), fmt.Sprintf("weight %g", sub.Weight))
		}
		return nil

	case AssertStoredVertex:
		sub, err := liveSubCube(actx, a)
		if err != nil {
			return err
		}
		verts, err := actx.Store.VerticesBySubCube(actx.Ctx, actx.Self, window.NormalizeID(a.Cube), sub.Symbol)
		if err != nil {
			return err
		}
		want, err := model.ParseHex(a.Color)
		if err != nil {
			return err
		}
		for _, v := range verts {
			if v.Index != a.Vertex {
				continue
			}
			if v.Color.Hex() != want.Hex() {
				return fail("stored color "+want.Hex(), "stored color "+v.Color.Hex())
			}
			return nil
		}
		return fail(fmt.Sprintf("vertex %d of %s stored", a.Vertex, sub.Symbol), "no such vertex row")

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func liveSubCube(actx *AssertionContext, a Assertion) (engine.SubCubeState, error) {
	cell, err := parseCell(a.Cell)
	if err != nil {
		return engine.SubCubeState{}, err
	}
	cube, ok := actx.Scene.Cube(a.Cube)
	if !ok {
		return engine.SubCubeState{}, fmt.Errorf("no cube %q in scene", a.Cube)
	}
	for _, sub := range cube.SubCubes {
		if sub.Cell == cell {
			return sub, nil
		}
	}
	return engine.SubCubeState{}, fmt.Errorf("cube %q has no subcube at %s", a.Cube, a.Cell)
}
