package surface

import "github.com/go-gl/mathgl/mgl64"

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

// Hit describes a single ray/triangle intersection.
type Hit struct {
	Point  mgl64.Vec3
	Normal mgl64.Vec3 // unit triangle normal, orientation as wound
	T      float64    // distance along the ray
}

const (
	// rayEps rejects hits at (or numerically behind) the ray origin and
	// absorbs barycentric round-off on shared triangle edges.
	rayEps = 1e-9
)

// intersectTriangle runs the Möller–Trumbore test against one triangle.
// Hits on triangle edges and vertices count as hits, so rays through the
// dome apex resolve instead of slipping between the cap triangles.
func intersectTriangle(r Ray, a, b, c mgl64.Vec3) (Hit, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)

	p := r.Dir.Cross(e2)
	det := e1.Dot(p)
	if det > -rayEps && det < rayEps {
		return Hit{}, false // parallel to the triangle plane
	}
	inv := 1 / det

	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < -rayEps || u > 1+rayEps {
		return Hit{}, false
	}

	q := s.Cross(e1)
	v := r.Dir.Dot(q) * inv
	if v < -rayEps || u+v > 1+rayEps {
		return Hit{}, false
	}

	t := e2.Dot(q) * inv
	if t <= rayEps {
		return Hit{}, false
	}

	n := e1.Cross(e2)
	if l := n.Len(); l > 0 {
		n = n.Mul(1 / l)
	}
	return Hit{
		Point:  r.Origin.Add(r.Dir.Mul(t)),
		Normal: n,
		T:      t,
	}, true
}

// IntersectAll appends every triangle intersection along r to out and
// returns the extended slice. Passing a reused slice keeps the hot path
// allocation-free.
func (m *TriMesh) IntersectAll(r Ray, out []Hit) []Hit {
	for i := range m.tris {
		a, b, c := m.Triangle(i)
		if h, ok := intersectTriangle(r, a, b, c); ok {
			out = append(out, h)
		}
	}
	return out
}
