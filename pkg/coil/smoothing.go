package coil

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is the damped pose handed to the renderer once per tick.
type Transform struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// Smoother exponentially damps the visible transform toward the committed
// target. The damping law 1-exp(-k*dt) makes convergence independent of
// frame duration: halving the frame time halves the per-frame step.
type Smoother struct {
	current     Transform
	initialized bool
}

// Reset snaps the smoother to t without damping, e.g. on session start or
// landmark snap.
func (s *Smoother) Reset(t Transform) {
	s.current = Transform{
		Position:    t.Position,
		Orientation: t.Orientation.Normalize(),
	}
	s.initialized = true
}

// Current returns the last damped transform.
func (s *Smoother) Current() (Transform, bool) {
	return s.current, s.initialized
}

// Step advances the damped transform toward target. The first call after
// construction snaps directly so the coil does not fly in from the origin.
func (s *Smoother) Step(target Transform, damping, dt float64) Transform {
	if !s.initialized {
		s.Reset(target)
		return s.current
	}

	f := 1 - math.Exp(-damping*dt)
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}

	s.current.Position = s.current.Position.Add(target.Position.Sub(s.current.Position).Mul(f))

	// q and -q encode the same rotation; slerp between opposite-sign
	// representations takes the long way around. Flip the target onto the
	// current hemisphere first.
	to := target.Orientation.Normalize()
	if quatDot(s.current.Orientation, to) < 0 {
		to = to.Scale(-1)
	}
	s.current.Orientation = mgl64.QuatSlerp(s.current.Orientation.Normalize(), to, f)
	return s.current
}
