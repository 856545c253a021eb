// Package compute implements a double-buffered compute graph over a fixed 2D grid.
//
// An Engine owns named field variables. Each variable has a kernel, a pair of
// buffers and an optional list of dependencies on other variables. One Step
// evaluates every variable over every cell and then swaps all buffer pairs at
// once.
//
// GENERATIONS:
//
// The engine keeps a single generation counter. For every variable,
// buffer gen%2 is current and buffer (gen+1)%2 is being written. A Step
// reads only current buffers and writes only next buffers, then increments
// the counter. The increment is the swap, so consumers always observe a
// coherent snapshot: either every variable at generation n or every variable
// at generation n+1, never a mix.
//
// Because reads target the previous generation, evaluation order across
// variables does not affect results and feedback loops (position depends on
// velocity, velocity depends on position) are legal. Cells inside one
// variable are independent and may be evaluated in parallel.
//
// LIFECYCLE:
//
//	e, _ := compute.New(16, 16)
//	color, _ := e.Declare("color", compute.ColorKernel, nil)
//	if err := e.Initialize(); err != nil { ... }
//	e.SetUniform(color, compute.UniformTime, 1.5)
//	e.Step()
//	snapshot := e.Sample(color)
//
// Declare and SetDependencies are only legal before Initialize. Step and
// Sample are only legal after a successful Initialize; calling them earlier
// is a programming error and panics.
package compute
