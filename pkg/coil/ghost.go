// Package coil implements the surface-constrained placement and
// orientation engine for the stimulation coil. The coil glides over the
// proxy scalp dome under discrete input; its desired placement is kept as
// decoupled "ghost" angles that only advance when the matching surface
// query succeeds.
package coil

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/surface"
)

// GhostCoords is the angular placement of the coil around the head
// center. Pitch is elevation in radians, yaw the azimuth; yaw wraps
// implicitly through the trigonometric conversion.
type GhostCoords struct {
	Yaw   float64
	Pitch float64
}

// Direction converts ghost coordinates to a unit world direction.
func (g GhostCoords) Direction() mgl64.Vec3 {
	cp := math.Cos(g.Pitch)
	return mgl64.Vec3{
		cp * math.Sin(g.Yaw),
		math.Sin(g.Pitch),
		cp * math.Cos(g.Yaw),
	}
}

// GhostFromDirection recovers ghost coordinates from a world direction.
// Used when snapping to a landmark so direct placement and key stepping
// stay consistent.
func GhostFromDirection(dir mgl64.Vec3) GhostCoords {
	if l := dir.Len(); l > 0 {
		dir = dir.Mul(1 / l)
	}
	return GhostCoords{
		Yaw:   math.Atan2(dir.X(), dir.Z()),
		Pitch: math.Asin(mgl64.Clamp(dir.Y(), -1, 1)),
	}
}

// PitchLimits is the permitted elevation band for the ghost pitch.
type PitchLimits struct {
	Min, Max float64
}

// Clamp restricts p to the band. Idempotent.
func (l PitchLimits) Clamp(p float64) float64 {
	if p < l.Min {
		return l.Min
	}
	if p > l.Max {
		return l.Max
	}
	return p
}

// RejectReason tells a caller why a step did not commit. None of these are
// application errors; the coil simply does not move this tick.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectNotReady
	RejectNoIntersection
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectNotReady:
		return "not-ready"
	case RejectNoIntersection:
		return "no-intersection"
	default:
		return "unknown"
	}
}

// StepResult is the single outcome type for every ghost update. A result
// is either committed, carrying the new coordinates and surface hit, or
// rejected with the prior coordinates echoed back. Commit and success are
// the same return path: there is no way to resolve a surface point without
// also committing, and no way to commit without one.
type StepResult struct {
	Committed bool
	Reason    RejectReason
	Coords    GhostCoords
	Hit       surface.Point
}

// GhostController owns the ghost coordinates and the continuity
// reference. It is the only long-lived mutable state in the engine core
// and must be driven from a single goroutine.
type GhostController struct {
	index  *surface.Index
	coords GhostCoords
	limits PitchLimits
	last   *surface.Point // continuity reference, nil until first commit
}

// NewGhostController builds a controller over idx starting at initial.
// The initial pitch is clamped into limits.
func NewGhostController(idx *surface.Index, limits PitchLimits, initial GhostCoords) *GhostController {
	initial.Pitch = limits.Clamp(initial.Pitch)
	return &GhostController{index: idx, limits: limits, coords: initial}
}

// Coords returns the last committed ghost coordinates.
func (c *GhostController) Coords() GhostCoords { return c.coords }

// LastHit returns the continuity reference, if any commit has happened.
func (c *GhostController) LastHit() (surface.Point, bool) {
	if c.last == nil {
		return surface.Point{}, false
	}
	return *c.last, true
}

// Step proposes coords advanced by the given angular delta and commits
// them iff the corresponding surface query succeeds. The pitch candidate
// is clamped before the raycast, so holding a key at the band edge cannot
// walk the state outside the band even transiently.
func (c *GhostController) Step(dYaw, dPitch float64) StepResult {
	if !c.index.Ready() {
		return StepResult{Reason: RejectNotReady, Coords: c.coords}
	}

	cand := GhostCoords{
		Yaw:   c.coords.Yaw + dYaw,
		Pitch: c.limits.Clamp(c.coords.Pitch + dPitch),
	}

	query := c.index.Center().Add(cand.Direction().Mul(c.index.QueryRadius()))
	hit, ok := c.index.Resolve(query, c.last)
	if !ok {
		return StepResult{Reason: RejectNoIntersection, Coords: c.coords}
	}
	return c.commit(cand, hit)
}

// SnapTo places the ghost at the direction of a world position, committing
// iff the position resolves. The continuity reference is deliberately not
// consulted: a snap is a discrete jump, so the outermost sheet wins.
func (c *GhostController) SnapTo(world mgl64.Vec3) StepResult {
	if !c.index.Ready() {
		return StepResult{Reason: RejectNotReady, Coords: c.coords}
	}

	hit, ok := c.index.Resolve(world, nil)
	if !ok {
		return StepResult{Reason: RejectNoIntersection, Coords: c.coords}
	}

	cand := GhostFromDirection(hit.Pos.Sub(c.index.Center()))
	cand.Pitch = c.limits.Clamp(cand.Pitch)
	return c.commit(cand, hit)
}

// Track commits a hit that was resolved elsewhere (the free-drag path),
// deriving the matching ghost coordinates from it.
func (c *GhostController) Track(hit surface.Point) StepResult {
	cand := GhostFromDirection(hit.Pos.Sub(c.index.Center()))
	cand.Pitch = c.limits.Clamp(cand.Pitch)
	return c.commit(cand, hit)
}

func (c *GhostController) commit(coords GhostCoords, hit surface.Point) StepResult {
	c.coords = coords
	p := hit
	c.last = &p
	return StepResult{Committed: true, Coords: coords, Hit: hit}
}
