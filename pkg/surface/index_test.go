package surface

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const floatTolerance = 1e-6

func vecClose(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() < tol
}

// twoSheetMesh builds two horizontal triangles stacked at y=1 and y=2,
// both crossing the vertical axis, to mimic a concave fold.
func twoSheetMesh(t *testing.T) *TriMesh {
	t.Helper()
	verts := []mgl64.Vec3{
		{-5, 1, -5}, {5, 1, -5}, {0, 1, 5},
		{-5, 2, -5}, {5, 2, -5}, {0, 2, 5},
	}
	tris := [][3]int{{0, 1, 2}, {3, 4, 5}}
	m, err := NewTriMesh(verts, tris, mgl64.Ident4())
	if err != nil {
		t.Fatalf("NewTriMesh: %v", err)
	}
	return m
}

func TestNewTriMesh_RejectsBadInput(t *testing.T) {
	_, err := NewTriMesh([]mgl64.Vec3{{0, 0, 0}}, [][3]int{{0, 0, 0}}, mgl64.Ident4())
	if err == nil {
		t.Error("expected error for too few vertices")
	}

	verts := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	_, err = NewTriMesh(verts, [][3]int{{0, 1, 3}}, mgl64.Ident4())
	if err == nil {
		t.Error("expected error for out-of-range vertex index")
	}
}

func TestResolve_NotReady(t *testing.T) {
	idx := NewIndex()
	if _, ok := idx.Resolve(mgl64.Vec3{0, 2, 0}, nil); ok {
		t.Error("Resolve should miss before a surface is attached")
	}
}

func TestResolve_HemisphereSanity(t *testing.T) {
	const r = 0.85
	idx := NewIndex()
	idx.SetMesh(NewDome(r, 0, 48, 96))

	pt, ok := idx.Resolve(mgl64.Vec3{0, 2 * r, 0}, nil)
	if !ok {
		t.Fatal("query above the apex should resolve")
	}
	if !vecClose(pt.Pos, mgl64.Vec3{0, r, 0}, 1e-3) {
		t.Errorf("apex position: got %v, want ~(0,%v,0)", pt.Pos, r)
	}
	if !vecClose(pt.Normal, mgl64.Vec3{0, 1, 0}, 0.05) {
		t.Errorf("apex normal: got %v, want ~(0,1,0)", pt.Normal)
	}
	if math.Abs(pt.Normal.Len()-1) > floatTolerance {
		t.Errorf("normal not unit length: %v", pt.Normal.Len())
	}
}

func TestResolve_OutwardNormalInvariant(t *testing.T) {
	idx := NewIndex()
	idx.SetMesh(NewDome(1, -10, 32, 64))
	center := idx.Center()

	dirs := []mgl64.Vec3{
		{0, 1, 0},
		{0.3, 0.8, 0.2},
		{-0.5, 0.4, 0.7},
		{0.9, 0.1, -0.4},
		{-0.2, 0.6, -0.9},
	}
	for _, d := range dirs {
		pt, ok := idx.Resolve(center.Add(d.Normalize().Mul(3)), nil)
		if !ok {
			t.Errorf("query along %v should resolve", d)
			continue
		}
		if pt.Normal.Dot(pt.Pos.Sub(center)) < 0 {
			t.Errorf("normal %v points inward at %v", pt.Normal, pt.Pos)
		}
	}
}

func TestResolve_MissesPastTheRim(t *testing.T) {
	idx := NewIndex()
	idx.SetMesh(NewDome(1, 30, 32, 64)) // open below 30 degrees latitude

	// Straight sideways exits through the open rim in both directions.
	if _, ok := idx.Resolve(mgl64.Vec3{2, 0, 0}, nil); ok {
		t.Error("equatorial query against a truncated dome should miss")
	}
}

func TestResolve_QueryAtCenterMisses(t *testing.T) {
	idx := NewIndex()
	idx.SetMesh(NewDome(1, 0, 16, 32))
	if _, ok := idx.Resolve(idx.Center(), nil); ok {
		t.Error("query at the center has no direction and should miss")
	}
}

func TestResolve_ReverseRayFallback(t *testing.T) {
	idx := NewIndex()
	idx.SetMesh(NewDome(1, 0, 32, 64))

	// Move the reference center above the dome. The outward ray for a
	// query higher still points away from every triangle; only the
	// reverse cast looking back through the center can find the apex.
	idx.Recalibrate(mgl64.Vec3{0, 3, 0})

	pt, ok := idx.Resolve(mgl64.Vec3{0, 4, 0}, nil)
	if !ok {
		t.Fatal("reverse-ray fallback should find the apex")
	}
	if !vecClose(pt.Pos, mgl64.Vec3{0, 1, 0}, 1e-3) {
		t.Errorf("fallback hit: got %v, want ~(0,1,0)", pt.Pos)
	}
}

func TestResolve_ContinuityPrefersNearSheet(t *testing.T) {
	idx := NewIndex()
	idx.SetMesh(twoSheetMesh(t))
	idx.Recalibrate(mgl64.Vec3{})

	prev := &Point{Pos: mgl64.Vec3{0.1, 1, 0.1}}
	pt, ok := idx.Resolve(mgl64.Vec3{0, 3, 0}, prev)
	if !ok {
		t.Fatal("stacked sheets should resolve")
	}
	if math.Abs(pt.Pos.Y()-1) > 1e-9 {
		t.Errorf("with a previous point on the lower sheet, got y=%v, want 1", pt.Pos.Y())
	}
}

func TestResolve_NoPreviousPicksOutermost(t *testing.T) {
	idx := NewIndex()
	idx.SetMesh(twoSheetMesh(t))
	idx.Recalibrate(mgl64.Vec3{})

	pt, ok := idx.Resolve(mgl64.Vec3{0, 3, 0}, nil)
	if !ok {
		t.Fatal("stacked sheets should resolve")
	}
	if math.Abs(pt.Pos.Y()-2) > 1e-9 {
		t.Errorf("with no previous point, got y=%v, want outermost sheet at 2", pt.Pos.Y())
	}
}

func TestPickBest(t *testing.T) {
	hits := []Hit{
		{Point: mgl64.Vec3{0, 1, 0}, T: 1},
		{Point: mgl64.Vec3{0, 2, 0}, T: 2},
		{Point: mgl64.Vec3{0, 5, 0}, T: 5},
	}

	if got := PickBest(hits, nil); got.T != 5 {
		t.Errorf("no previous point: got T=%v, want outermost 5", got.T)
	}

	prev := mgl64.Vec3{0, 2.2, 0}
	if got := PickBest(hits, &prev); got.T != 2 {
		t.Errorf("previous point near middle hit: got T=%v, want 2", got.T)
	}

	one := []Hit{{Point: mgl64.Vec3{1, 0, 0}, T: 3}}
	if got := PickBest(one, &prev); got.T != 3 {
		t.Errorf("single hit must win regardless of previous point, got T=%v", got.T)
	}
}
