// Package blend combines the per-vertex colors of a subcube into one
// representative color.
package blend

import (
	"fmt"

	"github.com/roach88/cubefield/internal/model"
)

// Policy selects how samples are combined.
type Policy string

const (
	// Average is the unweighted channel mean.
	Average Policy = "average"
	// Weighted is Σ colorᵢ·weightᵢ / Σ weightᵢ.
	Weighted Policy = "weighted"
	// Max is the per-channel maximum.
	Max Policy = "max"
	// Layered returns the first sample's color unchanged.
	Layered Policy = "layered"
)

// Policies lists every supported policy.
var Policies = []Policy{Average, Weighted, Max, Layered}

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	for _, known := range Policies {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown blend policy %q: must be one of %v", s, Policies)
	}
	return p, nil
}

// Sample is one input to Blend.
type Sample struct {
	Color  model.Color
	Weight float64
}

// FromVertices turns vertices into samples carrying their own weights.
func FromVertices(vs []model.Vertex) []Sample {
	out := make([]Sample, len(vs))
	for i, v := range vs {
		out[i] = Sample{Color: v.Color, Weight: v.Weight}
	}
	return out
}

// Blend combines samples under policy p. Empty input is black for every
// policy. Unknown policies blend as Average.
func Blend(samples []Sample, p Policy) model.Color {
	if len(samples) == 0 {
		return model.Black
	}

	switch p {
	case Layered:
		// override: later samples are ignored, color is returned as is
		return samples[0].Color
	case Max:
		var out model.Color
		for _, s := range samples {
			out.R = max(out.R, s.Color.R)
			out.G = max(out.G, s.Color.G)
			out.B = max(out.B, s.Color.B)
		}
		return out.Clamp()
	case Weighted:
		return mean(samples, func(s Sample) float64 { return s.Weight })
	default:
		return mean(samples, func(Sample) float64 { return 1 })
	}
}

func mean(samples []Sample, weight func(Sample) float64) model.Color {
	var sum model.Color
	total := 0.0
	for _, s := range samples {
		w := weight(s)
		sum.R += s.Color.R * w
		sum.G += s.Color.G * w
		sum.B += s.Color.B * w
		total += w
	}
	if total == 0 {
		return model.Black
	}
	inv := 1 / total
	return model.Color{R: sum.R * inv, G: sum.G * inv, B: sum.B * inv}.Clamp()
}
