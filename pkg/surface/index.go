package surface

import "github.com/go-gl/mathgl/mgl64"

// Point is a resolved location on the proxy surface. Normal is unit length
// and always faces away from the surface's reference center.
type Point struct {
	Pos    mgl64.Vec3
	Normal mgl64.Vec3
}

// Index resolves arbitrary world-space queries to the nearest sensible
// point on the proxy surface.
//
// An Index owns scratch buffers for the raycast hot path and therefore
// must not be shared between goroutines without external synchronization.
type Index struct {
	mesh    *TriMesh
	center  mgl64.Vec3
	ready   bool
	scratch []Hit
}

// NewIndex returns an Index with no surface attached. Every query misses
// until SetMesh is called.
func NewIndex() *Index {
	return &Index{scratch: make([]Hit, 0, 16)}
}

// SetMesh attaches the proxy surface once the asset is ready. The mesh's
// precomputed center becomes the reference center for all rays.
func (x *Index) SetMesh(m *TriMesh) {
	x.mesh = m
	x.center = m.Center()
	x.ready = true
}

// Recalibrate replaces the reference center. Callers must not run queries
// concurrently with a recalibration.
func (x *Index) Recalibrate(center mgl64.Vec3) {
	x.center = center
}

// Ready reports whether a surface has been attached.
func (x *Index) Ready() bool { return x.ready }

// Center returns the current reference center.
func (x *Index) Center() mgl64.Vec3 { return x.center }

// QueryRadius returns a distance from the center guaranteed to lie outside
// the surface, suitable for building query points from directions.
func (x *Index) QueryRadius() float64 {
	if !x.ready {
		return 1
	}
	return x.mesh.BoundingRadius() * 2
}

// Resolve casts a ray from the reference center through query and returns
// the surface point it selects. prev, when non-nil, is the previously
// committed point and biases multi-hit disambiguation toward continuity.
//
// A miss is an expected outcome near the rim of the surface, not an error:
// callers leave their state untouched and try again next tick.
func (x *Index) Resolve(query mgl64.Vec3, prev *Point) (Point, bool) {
	if !x.ready {
		return Point{}, false
	}

	d := query.Sub(x.center)
	dist := d.Len()
	if dist < rayEps {
		return Point{}, false // query sits on the center, no direction
	}
	dir := d.Mul(1 / dist)

	x.scratch = x.scratch[:0]
	x.scratch = x.mesh.IntersectAll(Ray{Origin: x.center, Dir: dir}, x.scratch)

	var best Hit
	if len(x.scratch) > 0 {
		var prevPos *mgl64.Vec3
		if prev != nil {
			prevPos = &prev.Pos
		}
		best = PickBest(x.scratch, prevPos)
	} else {
		// The outward ray can exit through the open rim of the dome.
		// Retry from a point past the surface looking back at the center
		// and take the first crossing. No continuity weighting here; see
		// DESIGN.md.
		far := x.QueryRadius() + dist
		back := Ray{Origin: x.center.Add(dir.Mul(far)), Dir: dir.Mul(-1)}
		x.scratch = x.scratch[:0]
		x.scratch = x.mesh.IntersectAll(back, x.scratch)
		if len(x.scratch) == 0 {
			return Point{}, false
		}
		best = x.scratch[0]
		for _, h := range x.scratch[1:] {
			if h.T < best.T {
				best = h
			}
		}
	}

	n := best.Normal
	if n.Dot(best.Point.Sub(x.center)) < 0 {
		n = n.Mul(-1)
	}
	return Point{Pos: best.Point, Normal: n}, true
}
