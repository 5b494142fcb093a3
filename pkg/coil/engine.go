package coil

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/surface"
)

var (
	// ErrNotReady is returned by operations that need the proxy surface
	// before the asset collaborator has signalled readiness.
	ErrNotReady = errors.New("coil: proxy surface not ready")
	// ErrUnknownLandmark is returned for landmark names outside the set.
	ErrUnknownLandmark = errors.New("coil: unknown landmark")
	// ErrBadLandmarkCount is returned when the boundary builder receives
	// anything but the four cardinal landmarks.
	ErrBadLandmarkCount = errors.New("coil: boundary needs exactly four landmarks")
)

// Config collects the tunables of the placement engine.
type Config struct {
	PitchLimits    PitchLimits
	Initial        GhostCoords
	Standoff       float64    // coil hover distance along the normal
	BoundaryMargin float64    // erosion margin for the footprint region
	Damping        float64    // smoothing rate, 1/s
	Reference      mgl64.Vec3 // preferred forward direction for the basis
}

// DefaultConfig returns the tunables used by the simulator UI.
func DefaultConfig() Config {
	return Config{
		PitchLimits:    PitchLimits{Min: mgl64.DegToRad(10), Max: mgl64.DegToRad(88)},
		Initial:        GhostCoords{Yaw: 0, Pitch: mgl64.DegToRad(60)},
		Standoff:       0.01,
		BoundaryMargin: 0.02,
		Damping:        12,
		Reference:      AxisAnterior,
	}
}

// Engine is the placement and orientation core. All mutable state lives
// behind a single instance driven synchronously by one tick loop; the
// engine itself takes no locks.
type Engine struct {
	cfg       Config
	index     *surface.Index
	ghost     *GhostController
	smoother  Smoother
	boundary  *Boundary
	landmarks *LandmarkSet

	twist, tilt  float64
	userFlip     bool
	landmarkFlip bool // set while parked on a Flip180 landmark

	target     string
	lastTarget *Transform // last committed (undamped) pose
}

// NewEngine builds an engine over the given landmark table. The boundary
// polygon is derived from the cardinal landmarks once, here; landmark sets
// without cardinals yield an engine with no footprint constraint.
func NewEngine(cfg Config, landmarks *LandmarkSet) (*Engine, error) {
	if cfg.Damping <= 0 {
		return nil, fmt.Errorf("coil: damping must be positive, got %v", cfg.Damping)
	}
	if cfg.PitchLimits.Min > cfg.PitchLimits.Max {
		return nil, fmt.Errorf("coil: inverted pitch limits [%v, %v]", cfg.PitchLimits.Min, cfg.PitchLimits.Max)
	}

	e := &Engine{
		cfg:       cfg,
		index:     surface.NewIndex(),
		landmarks: landmarks,
	}
	e.ghost = NewGhostController(e.index, cfg.PitchLimits, cfg.Initial)

	if landmarks != nil {
		if cardinal, err := landmarks.Cardinal(); err == nil {
			b, err := BuildBoundary(cardinal)
			if err != nil {
				return nil, err
			}
			e.boundary = b
		}
	}
	return e, nil
}

// SetSurface attaches the ready proxy mesh. Precondition for every query.
func (e *Engine) SetSurface(m *surface.TriMesh) {
	e.index.SetMesh(m)
}

// Ready reports whether the proxy surface has been attached.
func (e *Engine) Ready() bool { return e.index.Ready() }

// Recalibrate moves the reference center. Must not race with Step.
func (e *Engine) Recalibrate(center mgl64.Vec3) {
	e.index.Recalibrate(center)
}

// SetControls updates the user twist, tilt (radians) and flip toggle.
func (e *Engine) SetControls(twist, tilt float64, flip bool) {
	e.twist, e.tilt, e.userFlip = twist, tilt, flip
}

// Controls returns the current user twist, tilt and flip toggle.
func (e *Engine) Controls() (twist, tilt float64, flip bool) {
	return e.twist, e.tilt, e.userFlip
}

// Coords returns the committed ghost coordinates.
func (e *Engine) Coords() GhostCoords { return e.ghost.Coords() }

// CurrentSurfacePosition exposes the committed surface point to the
// training-feedback consumer.
func (e *Engine) CurrentSurfacePosition() (surface.Point, bool) {
	return e.ghost.LastHit()
}

// SetTarget selects the stimulation target for the distance metric.
func (e *Engine) SetTarget(name string) error {
	if e.landmarks == nil {
		return ErrUnknownLandmark
	}
	if _, ok := e.landmarks.Get(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLandmark, name)
	}
	e.target = name
	return nil
}

// Target returns the selected stimulation target name, if any.
func (e *Engine) Target() string { return e.target }

// DistanceToTarget returns the straight-line distance between the
// committed surface point and the selected target.
func (e *Engine) DistanceToTarget() (float64, bool) {
	hit, ok := e.ghost.LastHit()
	if !ok || e.target == "" {
		return 0, false
	}
	lm, ok := e.landmarks.Get(e.target)
	if !ok {
		return 0, false
	}
	return hit.Pos.Sub(lm.Pos).Len(), true
}

// Step runs one tick of the pipeline: ghost proposal, surface resolution,
// commit or reject, orientation, smoothing. A rejected resolution leaves
// the committed state untouched and keeps damping toward the previous
// target, so the coil visibly stays put instead of jittering.
//
// The boolean is false only before the first successful commit, when
// there is no pose to show at all.
func (e *Engine) Step(dYaw, dPitch, dt float64) (Transform, bool) {
	res := e.ghost.Step(dYaw, dPitch)
	if res.Committed {
		// Moving off a flip landmark drops its override; an idle re-resolve
		// of the same spot must not.
		if dYaw != 0 || dPitch != 0 {
			e.landmarkFlip = false
		}
		t := e.poseFor(res.Hit, e.cfg.Standoff)
		e.lastTarget = &t
	}
	if e.lastTarget == nil {
		return Transform{}, false
	}
	return e.smoother.Step(*e.lastTarget, e.cfg.Damping, dt), true
}

// MoveAlongSurface slides from currentPos along direction by stepSize,
// keeping the footprint inside the boundary, and returns the committed
// target pose. The ghost state is synced to the new placement so key
// stepping continues from here.
func (e *Engine) MoveAlongSurface(currentPos, direction mgl64.Vec3, stepSize, offset float64) (Transform, bool) {
	if !e.index.Ready() {
		return Transform{}, false
	}

	query := currentPos
	if l := direction.Len(); l > 0 {
		query = currentPos.Add(direction.Mul(stepSize / l))
	}
	// Zero-length direction degrades to re-resolving the current position.

	if e.boundary != nil {
		p2, clamped := e.boundary.Constrain(Point2{query.X(), query.Z()}, e.cfg.BoundaryMargin)
		if clamped {
			query = mgl64.Vec3{p2.X, query.Y(), p2.Y}
		}
	}

	var prev *surface.Point
	if hit, ok := e.ghost.LastHit(); ok {
		prev = &hit
	}
	hit, ok := e.index.Resolve(query, prev)
	if !ok {
		return Transform{}, false
	}

	res := e.ghost.Track(hit)
	e.landmarkFlip = false
	t := e.poseFor(res.Hit, offset)
	e.lastTarget = &t
	return t, true
}

// SnapToTarget places the coil at an arbitrary world position, committing
// iff it resolves, and returns the committed target pose. The raw
// footprint is clamped into the boundary first, like the free-drag path;
// named landmarks snap through SnapToLandmark without the clamp because
// the table is validated at load.
func (e *Engine) SnapToTarget(world mgl64.Vec3, offset float64) (Transform, bool) {
	if e.boundary != nil {
		p2, clamped := e.boundary.Constrain(Point2{world.X(), world.Z()}, e.cfg.BoundaryMargin)
		if clamped {
			world = mgl64.Vec3{p2.X, world.Y(), p2.Y}
		}
	}
	return e.snapTo(world, offset)
}

func (e *Engine) snapTo(world mgl64.Vec3, offset float64) (Transform, bool) {
	res := e.ghost.SnapTo(world)
	if !res.Committed {
		return Transform{}, false
	}
	e.landmarkFlip = false
	t := e.poseFor(res.Hit, offset)
	e.lastTarget = &t
	return t, true
}

// SnapToLandmark snaps to a named landmark, applying its orientation
// override when it carries one.
func (e *Engine) SnapToLandmark(name string) (Transform, error) {
	if !e.index.Ready() {
		return Transform{}, ErrNotReady
	}
	if e.landmarks == nil {
		return Transform{}, ErrUnknownLandmark
	}
	lm, ok := e.landmarks.Get(name)
	if !ok {
		return Transform{}, fmt.Errorf("%w: %q", ErrUnknownLandmark, name)
	}

	t, ok := e.snapTo(lm.Pos, e.cfg.Standoff)
	if !ok {
		// A landmark that fails to resolve means the table and the mesh
		// disagree; surface it, unlike per-tick misses.
		return Transform{}, fmt.Errorf("coil: landmark %q does not resolve against the surface", name)
	}
	if lm.Flip180 {
		e.landmarkFlip = true
		hit, _ := e.ghost.LastHit()
		flipped := e.poseFor(hit, e.cfg.Standoff)
		e.lastTarget = &flipped
		t = flipped
	}
	return t, nil
}

// ConstrainToBoundary clamps a ground-plane point into the eroded
// footprint region. Without cardinal landmarks it is the identity.
func (e *Engine) ConstrainToBoundary(p Point2, margin float64) (Point2, bool) {
	if e.boundary == nil {
		return p, false
	}
	return e.boundary.Constrain(p, margin)
}

// Boundary exposes the footprint polygon, or nil.
func (e *Engine) Boundary() *Boundary { return e.boundary }

// Landmarks exposes the landmark table, or nil.
func (e *Engine) Landmarks() *LandmarkSet { return e.landmarks }

// Output returns the last damped transform without advancing anything.
func (e *Engine) Output() (Transform, bool) {
	return e.smoother.Current()
}

func (e *Engine) poseFor(hit surface.Point, offset float64) Transform {
	q := BuildBasis(BasisRequest{
		Normal:    hit.Normal,
		Reference: e.cfg.Reference,
		Twist:     e.twist,
		Tilt:      e.tilt,
		Flip180:   e.userFlip != e.landmarkFlip, // either source flips, both cancel
	})
	return Transform{
		Position:    hit.Pos.Add(hit.Normal.Mul(offset)),
		Orientation: q,
	}
}
