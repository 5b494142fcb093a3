package coil

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// boundaryVertexCount is the number of cardinal landmarks that define the
// permitted region: nasion, inion and the two preauricular points.
const boundaryVertexCount = 4

// Point2 is a position on the ground plane, in the world X/Z axes.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point2) sub(o Point2) Point2       { return Point2{p.X - o.X, p.Y - o.Y} }
func (p Point2) add(o Point2) Point2       { return Point2{p.X + o.X, p.Y + o.Y} }
func (p Point2) scale(s float64) Point2    { return Point2{p.X * s, p.Y * s} }
func (p Point2) dot(o Point2) float64      { return p.X*o.X + p.Y*o.Y }
func (p Point2) distTo(o Point2) float64   { return math.Hypot(p.X-o.X, p.Y-o.Y) }

// Boundary is the convex region the coil footprint must stay inside,
// derived once per session from the cardinal landmarks and immutable
// afterwards.
type Boundary struct {
	verts    [boundaryVertexCount]Point2 // counter-clockwise around the centroid
	centroid Point2
}

// BuildBoundary projects exactly four landmark positions onto the ground
// plane and orders them counter-clockwise around their centroid.
func BuildBoundary(landmarks []mgl64.Vec3) (*Boundary, error) {
	if len(landmarks) != boundaryVertexCount {
		return nil, fmt.Errorf("%w: got %d", ErrBadLandmarkCount, len(landmarks))
	}

	b := &Boundary{}
	for i, lm := range landmarks {
		b.verts[i] = Point2{lm.X(), lm.Z()}
		b.centroid.X += lm.X() / boundaryVertexCount
		b.centroid.Y += lm.Z() / boundaryVertexCount
	}

	vs := b.verts[:]
	sort.Slice(vs, func(i, j int) bool {
		ai := math.Atan2(vs[i].Y-b.centroid.Y, vs[i].X-b.centroid.X)
		aj := math.Atan2(vs[j].Y-b.centroid.Y, vs[j].X-b.centroid.X)
		return ai < aj
	})
	return b, nil
}

// Vertices returns the ordered polygon corners.
func (b *Boundary) Vertices() []Point2 {
	out := make([]Point2, boundaryVertexCount)
	copy(out, b.verts[:])
	return out
}

// Centroid returns the polygon centroid.
func (b *Boundary) Centroid() Point2 { return b.centroid }

// Constrain clamps p into the polygon eroded toward the centroid by
// margin. The returned point always lies inside or on the eroded polygon;
// clamped reports whether p had to move.
func (b *Boundary) Constrain(p Point2, margin float64) (Point2, bool) {
	var eroded [boundaryVertexCount]Point2
	for i, v := range b.verts {
		d := v.distTo(b.centroid)
		if d <= margin {
			eroded[i] = b.centroid
			continue
		}
		eroded[i] = b.centroid.add(v.sub(b.centroid).scale((d - margin) / d))
	}

	if polygonContains(eroded[:], p) {
		return p, false
	}

	best := eroded[0]
	bestD := math.Inf(1)
	for i := range eroded {
		a, c := eroded[i], eroded[(i+1)%len(eroded)]
		q := closestOnSegment(a, c, p)
		if d := q.distTo(p); d < bestD {
			best, bestD = q, d
		}
	}
	return best, true
}

// polygonContains runs the even-odd crossing test.
func polygonContains(poly []Point2, p Point2) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, c := poly[i], poly[j]
		if (a.Y > p.Y) != (c.Y > p.Y) &&
			p.X < (c.X-a.X)*(p.Y-a.Y)/(c.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// closestOnSegment projects p onto the segment ab.
func closestOnSegment(a, b, p Point2) Point2 {
	ab := b.sub(a)
	den := ab.dot(ab)
	if den == 0 {
		return a
	}
	t := mgl64.Clamp(p.sub(a).dot(ab)/den, 0, 1)
	return a.add(ab.scale(t))
}
