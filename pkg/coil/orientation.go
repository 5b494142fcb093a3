package coil

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// parallelLimit is the |cos| threshold beyond which a reference direction
// is too close to the surface normal to project onto its tangent plane.
const parallelLimit = 0.99

// BasisRequest is the pure input to orientation construction. It carries
// no identity; the same request always yields the same orientation.
type BasisRequest struct {
	Normal    mgl64.Vec3 // surface normal, the coil's contact axis
	Reference mgl64.Vec3 // preferred forward direction (anterior)
	Twist     float64    // user rotation about the contact axis, radians
	Tilt      float64    // user rotation about the twisted forward axis
	Flip180   bool       // half-turn override required at some landmarks
}

// BuildBasis turns a surface normal and a preferred forward direction into
// a unit quaternion. The coil's local +Y aligns with the normal and its
// local +Z with the reference projected onto the tangent plane, so the
// frame does not spin as the coil glides across the dome.
//
// Near-parallel reference directions are substituted, never rejected: the
// function cannot fail for any non-zero normal.
func BuildBasis(req BasisRequest) mgl64.Quat {
	n := req.Normal
	if l := n.Len(); l > 0 {
		n = n.Mul(1 / l)
	} else {
		n = mgl64.Vec3{0, 1, 0}
	}

	forward := tangentReference(n, req.Reference)

	// Right-handed frame: local X completes n (up) and forward.
	x := n.Cross(forward).Normalize()
	z := x.Cross(n) // re-orthogonalized forward

	q := mgl64.Mat4ToQuat(mgl64.Mat3FromCols(x, n, z).Mat4()).Normalize()

	q = mgl64.QuatRotate(req.Twist, n).Mul(q)
	if req.Flip180 {
		q = mgl64.QuatRotate(math.Pi, n).Mul(q)
	}

	// Tilt is relative to the twisted (and possibly flipped) frame, so the
	// axis is wherever local forward ended up after the rotations above.
	tiltAxis := q.Rotate(mgl64.Vec3{0, 0, 1})
	q = mgl64.QuatRotate(req.Tilt, tiltAxis).Mul(q)

	return q.Normalize()
}

// tangentReference projects the preferred reference onto the tangent plane
// of n, walking a fallback chain when the projection would be degenerate.
// World-up is the documented first fallback for the classic pole case.
func tangentReference(n, ref mgl64.Vec3) mgl64.Vec3 {
	candidates := []mgl64.Vec3{
		ref,
		{0, 1, 0}, // world up
		{0, 0, 1}, // world forward
		{1, 0, 0},
	}
	for _, c := range candidates {
		l := c.Len()
		if l == 0 {
			continue
		}
		c = c.Mul(1 / l)
		if math.Abs(n.Dot(c)) > parallelLimit {
			continue
		}
		t := c.Sub(n.Mul(n.Dot(c)))
		if tl := t.Len(); tl > 1e-9 {
			return t.Mul(1 / tl)
		}
	}
	// Unreachable: n cannot be near-parallel to every world axis at once.
	return mgl64.Vec3{0, 0, 1}
}
