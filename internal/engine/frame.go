package engine

import (
	"context"

	"github.com/roach88/cubefield/internal/compute"
	"github.com/roach88/cubefield/internal/model"
)

// Frame advances the scene by dt seconds.
func (s *Scene) Frame(ctx context.Context, dt float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.time += dt
	st := s.settings

	shapes := make(map[string][2]float64)
	for _, w := range s.windows.Windows() {
		x, y := w.Shape.Center()
		shapes[w.ID] = [2]float64{x + st.Offset[0], y + st.Offset[1]}
	}

	for _, c := range s.cubes {
		if target, ok := shapes[c.ID]; ok {
			c.Center[0] += (target[0] - c.Center[0]) * Falloff
			c.Center[1] += (target[1] - c.Center[1]) * Falloff
		}

		animate := st.Animate || c.meta.Animate
		cubeDt := 0.0
		if animate {
			cubeDt = dt
		}
		c.Center[0] += st.Velocity[0] * cubeDt
		c.Center[1] += st.Velocity[1] * cubeDt

		c.rotation = st.Rot.Add(model.Vec3{c.meta.RotX, c.meta.RotY, c.meta.RotZ})
		if animate {
			c.rotation[0] += s.time * 0.5
			c.rotation[1] += s.time * 0.3
		}

		s.submitCube(c)
	}

	sample := s.stepField()
	for _, c := range s.cubes {
		if c.fieldDriven() {
			c.recolor(sample)
		}
		c.blendAll(st.Policy)
	}
	return nil
}

// stepField runs one compute step at the current time and returns the color
// field as one color per field cell.
func (s *Scene) stepField() []model.Color {
	s.field.SetUniform(s.colorField, compute.UniformTime, float32(s.time))
	s.field.Step()
	buf := s.field.Sample(s.colorField)

	out := make([]model.Color, buf.Len())
	for i, v := range buf.Data() {
		out[i] = model.RGB(float64(v[0]), float64(v[1]), float64(v[2]))
	}
	return out
}
