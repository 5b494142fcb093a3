package surface

import "github.com/go-gl/mathgl/mgl64"

// PickBest selects one hit out of several candidates along the same ray.
//
// With a previous known-good point the hit nearest to it wins, which keeps
// tracking stable across self-occluding folds. Without one the outermost
// hit (largest T) wins: the coil starts outside the dome, so the outer
// sheet is the physically sensible surface.
//
// PickBest panics on an empty slice; callers check for misses first.
func PickBest(hits []Hit, prev *mgl64.Vec3) Hit {
	if len(hits) == 0 {
		panic("surface: PickBest called with no hits")
	}

	best := hits[0]
	if prev != nil {
		bestD := best.Point.Sub(*prev).Len()
		for _, h := range hits[1:] {
			if d := h.Point.Sub(*prev).Len(); d < bestD {
				best, bestD = h, d
			}
		}
		return best
	}

	for _, h := range hits[1:] {
		if h.T > best.T {
			best = h
		}
	}
	return best
}
