package coil

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Anatomical axis conventions for every landmark and mesh fed into the
// engine. Data that violates these fails fast at load time instead of
// producing mirrored placements mid-session.
var (
	AxisSuperior    = mgl64.Vec3{0, 1, 0} // toward the vertex
	AxisAnterior    = mgl64.Vec3{0, 0, 1} // toward the nasion
	AxisSubjectLeft = mgl64.Vec3{1, 0, 0} // toward the left preauricular point
)

// Canonical landmark names. The four cardinal points double as the
// boundary polygon corners.
const (
	LandmarkVertex     = "vertex"
	LandmarkNasion     = "nasion"
	LandmarkInion      = "inion"
	LandmarkLeftEar    = "left-preauricular"
	LandmarkRightEar   = "right-preauricular"
	LandmarkMotorLeft  = "motor-left"
	LandmarkDLPFCLeft  = "dlpfc-left"
)

// Landmark is a named scalp position. Flip180 marks targets where
// clinical convention demands the coil handle point the opposite way.
type Landmark struct {
	Name    string     `json:"name"`
	Pos     mgl64.Vec3 `json:"pos"`
	Flip180 bool       `json:"flip180"`
}

// LandmarkSet is an ordered, immutable collection of landmarks.
type LandmarkSet struct {
	byName map[string]Landmark
	order  []string
}

// NewLandmarkSet builds a set and validates the anatomical conventions of
// its cardinal points.
func NewLandmarkSet(landmarks []Landmark) (*LandmarkSet, error) {
	s := &LandmarkSet{byName: make(map[string]Landmark, len(landmarks))}
	for _, lm := range landmarks {
		if _, dup := s.byName[lm.Name]; dup {
			return nil, fmt.Errorf("coil: duplicate landmark %q", lm.Name)
		}
		s.byName[lm.Name] = lm
		s.order = append(s.order, lm.Name)
	}
	if err := s.validateConventions(); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultLandmarks places the standard landmark table on a dome of the
// given radius, in 10-20-style positions. The left DLPFC target carries
// the 180-degree handle override.
func DefaultLandmarks(radius float64) *LandmarkSet {
	onDome := func(latDeg, lonDeg float64) mgl64.Vec3 {
		lat := mgl64.DegToRad(latDeg)
		lon := mgl64.DegToRad(lonDeg)
		cp := math.Cos(lat)
		return mgl64.Vec3{
			radius * cp * math.Sin(lon),
			radius * math.Sin(lat),
			radius * cp * math.Cos(lon),
		}
	}

	s, err := NewLandmarkSet([]Landmark{
		{Name: LandmarkVertex, Pos: onDome(90, 0)},
		{Name: LandmarkNasion, Pos: onDome(8, 0)},
		{Name: LandmarkInion, Pos: onDome(8, 180)},
		{Name: LandmarkLeftEar, Pos: onDome(8, 90)},
		{Name: LandmarkRightEar, Pos: onDome(8, -90)},
		{Name: LandmarkMotorLeft, Pos: onDome(50, 48)},
		{Name: LandmarkDLPFCLeft, Pos: onDome(32, 37), Flip180: true},
	})
	if err != nil {
		// The built-in table satisfies the conventions; a failure here is
		// a bug in this file.
		panic(err)
	}
	return s
}

// Get looks up a landmark by name.
func (s *LandmarkSet) Get(name string) (Landmark, bool) {
	lm, ok := s.byName[name]
	return lm, ok
}

// Names returns the landmark names in declaration order.
func (s *LandmarkSet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// All returns the landmarks in declaration order.
func (s *LandmarkSet) All() []Landmark {
	out := make([]Landmark, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.byName[n])
	}
	return out
}

// Cardinal returns the four boundary-defining landmark positions.
func (s *LandmarkSet) Cardinal() ([]mgl64.Vec3, error) {
	names := []string{LandmarkNasion, LandmarkLeftEar, LandmarkInion, LandmarkRightEar}
	out := make([]mgl64.Vec3, 0, len(names))
	for _, n := range names {
		lm, ok := s.byName[n]
		if !ok {
			return nil, fmt.Errorf("coil: cardinal landmark %q missing", n)
		}
		out = append(out, lm.Pos)
	}
	return out, nil
}

// validateConventions checks the axis conventions against whichever
// cardinal landmarks are present. A set without cardinals (pure target
// tables) passes; a mirrored or rotated one does not.
func (s *LandmarkSet) validateConventions() error {
	checks := []struct {
		name string
		axis mgl64.Vec3
		desc string
	}{
		{LandmarkNasion, AxisAnterior, "nasion must lie anterior (+Z)"},
		{LandmarkInion, AxisAnterior.Mul(-1), "inion must lie posterior (-Z)"},
		{LandmarkLeftEar, AxisSubjectLeft, "left preauricular must lie on the subject's left (+X)"},
		{LandmarkRightEar, AxisSubjectLeft.Mul(-1), "right preauricular must lie on the subject's right (-X)"},
		{LandmarkVertex, AxisSuperior, "vertex must lie superior (+Y)"},
	}
	for _, c := range checks {
		lm, ok := s.byName[c.name]
		if !ok {
			continue
		}
		if lm.Pos.Dot(c.axis) <= 0 {
			return fmt.Errorf("coil: landmark convention violated: %s, got %v", c.desc, lm.Pos)
		}
	}
	return nil
}
