package compute

import (
	"github.com/chewxy/math32"
)

// UniformTime is the uniform the built-in kernels read as animation time in seconds.
const UniformTime = "time"

// Names used by the built-in fields.
const (
	ColorField    = "color"
	PositionField = "position"
	VelocityField = "velocity"
)

// ColorKernel produces a time-varying color per cell: three phase-shifted
// sine waves blended with their channel-reversed copy by a hash noise.
func ColorKernel(c *Cell) Vec4 {
	t := c.Uniform(UniformTime)
	u, v := c.UV()
	i := v*float32(c.Width) + u

	r := 0.5 + 0.5*math32.Sin(t+i*0.1)
	g := 0.5 + 0.5*math32.Sin(t*0.5+i*0.2)
	b := 0.5 + 0.5*math32.Sin(t*0.8+i*0.3)

	n := hashNoise(u+t*0.1, v+t*0.1)
	return Vec4{mix(r, b, n), g, mix(b, r, n), 1}
}

// PositionKernel places cell i on a slowly breathing orbit.
func PositionKernel(c *Cell) Vec4 {
	return orbit(cellOrdinal(c), c.Uniform(UniformTime))
}

// VelocityKernel pulls velocity toward the origin with damping. It reads
// its own previous value and the position field.
func VelocityKernel(c *Cell) Vec4 {
	pos := c.Dep(PositionField)
	vel := c.Self()
	for k := 0; k < 3; k++ {
		vel[k] = (vel[k] - pos[k]*0.002) * 0.98
	}
	vel[3] = 1
	return vel
}

// IntegrateKernel advances position by velocity. It reads its own previous
// value and the velocity field.
func IntegrateKernel(c *Cell) Vec4 {
	pos := c.Self()
	vel := c.Dep(VelocityField)
	return Vec4{pos[0] + vel[0], pos[1] + vel[1], pos[2] + vel[2], 1}
}

// DeclareColorField declares the color field on e.
func DeclareColorField(e *Engine) (*Variable, error) {
	return e.Declare(ColorField, ColorKernel, nil)
}

// DeclareMotionFields declares a position/velocity pair that integrate each
// other every step. Position starts on the orbit at t=0, velocity at rest.
func DeclareMotionFields(e *Engine) (pos, vel *Variable, err error) {
	initial := make([]Vec4, e.Cells())
	for y := 0; y < e.Height(); y++ {
		for x := 0; x < e.Width(); x++ {
			fx, fy := float32(x)+0.5, float32(y)+0.5
			initial[y*e.Width()+x] = orbit(fy*float32(e.Width())+fx, 0)
		}
	}

	pos, err = e.Declare(PositionField, IntegrateKernel, initial)
	if err != nil {
		return nil, nil, err
	}
	// velocity is not declared yet; the name resolves at Initialize
	if err := e.SetDependencyNames(pos, VelocityField); err != nil {
		return nil, nil, err
	}
	vel, err = e.Declare(VelocityField, VelocityKernel, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := e.SetDependencies(vel, pos); err != nil {
		return nil, nil, err
	}
	return pos, vel, nil
}

func orbit(i, t float32) Vec4 {
	angle := i*0.05 + t*0.2
	radius := 50 + 10*math32.Sin(t*0.5+i*0.13)
	return Vec4{
		math32.Cos(angle) * radius,
		math32.Sin(angle) * radius,
		math32.Sin(angle*0.5) * radius * 0.2,
		1,
	}
}

// cellOrdinal is the fragment-center ordinal y*W + x of the cell.
func cellOrdinal(c *Cell) float32 {
	return (float32(c.Y)+0.5)*float32(c.Width) + float32(c.X) + 0.5
}

func hashNoise(x, y float32) float32 {
	return fract(math32.Sin(x*12.9898+y*78.233) * 43758.5453)
}

func fract(v float32) float32 {
	return v - math32.Floor(v)
}

func mix(a, b, t float32) float32 {
	return a*(1-t) + b*t
}
