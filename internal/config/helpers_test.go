package config

import "github.com/roach88/cubefield/internal/window"

func windowWithWeight(w float64) window.Window {
	return window.Window{
		ID:    "peer",
		Shape: window.Shape{W: 100, H: 100},
		Meta: window.Meta{
			Color:      "#ff0000",
			SubWeights: map[string]float64{"0_0_0": w},
		},
	}
}
