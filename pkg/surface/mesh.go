// Package surface provides geometric queries against the proxy scalp mesh.
// The proxy is a simplified smooth dome used only for ray queries; it is
// distinct from whatever high-detail mesh the renderer draws.
package surface

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// TriMesh is an immutable triangulated surface with its world transform
// already baked into the vertices.
type TriMesh struct {
	verts  []mgl64.Vec3
	tris   [][3]int
	center mgl64.Vec3
	radius float64 // bounding radius around center
}

// NewTriMesh builds a mesh from vertices and triangle index triples,
// applying transform to every vertex. The reference center defaults to the
// vertex centroid.
func NewTriMesh(verts []mgl64.Vec3, tris [][3]int, transform mgl64.Mat4) (*TriMesh, error) {
	if len(verts) < 3 || len(tris) < 1 {
		return nil, fmt.Errorf("surface: mesh needs at least 3 vertices and 1 triangle, got %d/%d", len(verts), len(tris))
	}

	m := &TriMesh{
		verts: make([]mgl64.Vec3, len(verts)),
		tris:  make([][3]int, len(tris)),
	}
	for i, v := range verts {
		m.verts[i] = mgl64.TransformCoordinate(v, transform)
	}
	for i, t := range tris {
		for k := 0; k < 3; k++ {
			if t[k] < 0 || t[k] >= len(verts) {
				return nil, fmt.Errorf("surface: triangle %d references vertex %d of %d", i, t[k], len(verts))
			}
		}
		m.tris[i] = t
	}

	var sum mgl64.Vec3
	for _, v := range m.verts {
		sum = sum.Add(v)
	}
	m.center = sum.Mul(1 / float64(len(m.verts)))
	for _, v := range m.verts {
		if r := v.Sub(m.center).Len(); r > m.radius {
			m.radius = r
		}
	}
	return m, nil
}

// NewDome generates a spherical cap of the given radius centered at the
// origin for demos and tests. The cap spans latitudes [minLatDeg, 90] with
// an apex pole; rings and segments control tessellation density.
func NewDome(radius float64, minLatDeg float64, rings, segments int) *TriMesh {
	if rings < 2 {
		rings = 2
	}
	if segments < 3 {
		segments = 3
	}

	minLat := mgl64.DegToRad(minLatDeg)
	apex := mgl64.Vec3{0, radius, 0}

	verts := []mgl64.Vec3{apex}
	// Ring 0 sits just below the apex; ring rings-1 sits at minLat.
	for r := 0; r < rings; r++ {
		lat := math.Pi/2 - (math.Pi/2-minLat)*float64(r+1)/float64(rings)
		y := radius * math.Sin(lat)
		rr := radius * math.Cos(lat)
		for s := 0; s < segments; s++ {
			lon := 2 * math.Pi * float64(s) / float64(segments)
			verts = append(verts, mgl64.Vec3{rr * math.Sin(lon), y, rr * math.Cos(lon)})
		}
	}

	ring := func(r, s int) int { return 1 + r*segments + s%segments }

	var tris [][3]int
	for s := 0; s < segments; s++ {
		tris = append(tris, [3]int{0, ring(0, s), ring(0, s+1)})
	}
	for r := 0; r < rings-1; r++ {
		for s := 0; s < segments; s++ {
			a, b := ring(r, s), ring(r, s+1)
			c, d := ring(r+1, s), ring(r+1, s+1)
			tris = append(tris, [3]int{a, c, b}, [3]int{b, c, d})
		}
	}

	m, err := NewTriMesh(verts, tris, mgl64.Ident4())
	if err != nil {
		// Generator parameters are validated above; a failure here is a bug.
		panic(err)
	}
	// The cap's vertex centroid sits well above the sphere center; queries
	// want rays cast from the anatomical center, so keep the origin.
	m.center = mgl64.Vec3{}
	m.radius = radius
	return m
}

// Center returns the reference center the mesh was built around.
func (m *TriMesh) Center() mgl64.Vec3 { return m.center }

// BoundingRadius returns the maximum vertex distance from the center.
func (m *TriMesh) BoundingRadius() float64 { return m.radius }

// TriangleCount returns the number of triangles in the mesh.
func (m *TriMesh) TriangleCount() int { return len(m.tris) }

// Triangle returns the three corner positions of triangle i.
func (m *TriMesh) Triangle(i int) (a, b, c mgl64.Vec3) {
	t := m.tris[i]
	return m.verts[t[0]], m.verts[t[1]], m.verts[t[2]]
}
