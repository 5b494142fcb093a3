package coil

import (
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/eveinstein/TMS-Simulator-App-sub001/internal/log"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/surface"
)

// Dead-band thresholds below which a tick's output is not re-broadcast.
// Keeps idle sessions from streaming identical transforms.
const (
	deadBandPos = 1e-5
	deadBandRot = 1e-7 // on 1 - |dot(q1,q2)|
)

// heartbeatTicks is how often the manager logs a debug heartbeat.
const heartbeatTicks = 600

// State is a snapshot of the engine for the HTTP API.
type State struct {
	Ready    bool    `json:"ready"`
	Yaw      float64 `json:"yaw"`
	Pitch    float64 `json:"pitch"`
	Twist    float64 `json:"twist"`
	Tilt     float64 `json:"tilt"`
	Flip     bool    `json:"flip"`
	Target   string  `json:"target,omitempty"`
	Distance float64 `json:"distance,omitempty"`
	Ticks    uint64  `json:"ticks"`
	Misses   uint64  `json:"misses"`
}

// Manager drives the engine at a fixed rate and bridges it to concurrent
// callers. The engine itself is single-threaded by contract; the manager's
// mutex is the only boundary between the tick loop and the HTTP handlers.
type Manager struct {
	mu     sync.Mutex
	engine *Engine
	rate   time.Duration
	stop   chan struct{}

	// Pending movement intents, drained once per tick.
	dYaw, dPitch float64

	onOutput func(Transform, uint64)

	tickCount    uint64
	missCount    uint64
	skippedTicks uint64
	lastSent     Transform
	hasSent      bool
}

// NewManager wraps engine in a tick loop at the given rate.
func NewManager(engine *Engine, rate time.Duration) *Manager {
	return &Manager{
		engine: engine,
		rate:   rate,
		stop:   make(chan struct{}),
	}
}

// OnOutput registers the per-tick transform consumer (the broadcast feed).
// Must be set before Run.
func (m *Manager) OnOutput(fn func(Transform, uint64)) {
	m.mu.Lock()
	m.onOutput = fn
	m.mu.Unlock()
}

// Run starts the control loop and blocks until Stop.
func (m *Manager) Run() {
	ticker := time.NewTicker(m.rate)
	defer ticker.Stop()

	log.Info("placement loop started", "rate_hz", 1.0/m.rate.Seconds())
	for {
		select {
		case <-m.stop:
			log.Info("placement loop stopped", "ticks", m.tickCount, "misses", m.missCount)
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// Stop halts the control loop.
func (m *Manager) Stop() {
	close(m.stop)
}

// Nudge queues an angular movement intent for the next tick. Repeated
// calls within one tick accumulate.
func (m *Manager) Nudge(dYaw, dPitch float64) {
	m.mu.Lock()
	m.dYaw += dYaw
	m.dPitch += dPitch
	m.mu.Unlock()
}

// SetControls forwards twist/tilt/flip to the engine.
func (m *Manager) SetControls(twist, tilt float64, flip bool) {
	m.mu.Lock()
	m.engine.SetControls(twist, tilt, flip)
	m.mu.Unlock()
}

// SetSurface attaches the ready proxy mesh.
func (m *Manager) SetSurface(mesh *surface.TriMesh) {
	m.mu.Lock()
	m.engine.SetSurface(mesh)
	m.mu.Unlock()
}

// Snap snaps to a named landmark.
func (m *Manager) Snap(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.engine.SnapToLandmark(name)
	return err
}

// SetTarget selects the stimulation target.
func (m *Manager) SetTarget(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.SetTarget(name)
}

// DistanceToTarget reports the current distance-to-target metric.
func (m *Manager) DistanceToTarget() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.DistanceToTarget()
}

// SurfacePosition exposes the committed surface point.
func (m *Manager) SurfacePosition() (surface.Point, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.CurrentSurfacePosition()
}

// Landmark looks up a named landmark. Engines built without a landmark
// table report every name as missing.
func (m *Manager) Landmark(name string) (Landmark, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set := m.engine.Landmarks(); set != nil {
		return set.Get(name)
	}
	return Landmark{}, false
}

// Landmarks returns all landmarks in declaration order.
func (m *Manager) Landmarks() []Landmark {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set := m.engine.Landmarks(); set != nil {
		return set.All()
	}
	return nil
}

// Snapshot returns the current engine state for the API.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	twist, tilt, flip := m.engine.Controls()
	coords := m.engine.Coords()
	s := State{
		Ready:  m.engine.Ready(),
		Yaw:    coords.Yaw,
		Pitch:  coords.Pitch,
		Twist:  twist,
		Tilt:   tilt,
		Flip:   flip,
		Target: m.engine.Target(),
		Ticks:  m.tickCount,
		Misses: m.missCount,
	}
	if d, ok := m.engine.DistanceToTarget(); ok {
		s.Distance = d
	}
	return s
}

// tick drains the intent mailbox and runs one engine step.
func (m *Manager) tick() {
	m.mu.Lock()

	dYaw, dPitch := m.dYaw, m.dPitch
	m.dYaw, m.dPitch = 0, 0

	m.tickCount++
	before := m.engine.Coords()

	out, ok := m.engine.Step(dYaw, dPitch, m.rate.Seconds())
	if !ok {
		m.mu.Unlock()
		return // nothing committed yet, nothing to show
	}
	if (dYaw != 0 || dPitch != 0) && m.engine.Coords() == before {
		// A movement intent was rejected by the surface this tick. This is
		// the normal outcome at the rim; never more than a debug line.
		m.missCount++
		log.Debug("surface resolution missed", "yaw", before.Yaw, "pitch", before.Pitch)
	}

	if m.hasSent && !m.changedSince(out) {
		m.skippedTicks++
		m.mu.Unlock()
		return
	}
	m.lastSent = out
	m.hasSent = true
	fn := m.onOutput
	tick := m.tickCount

	if tick%heartbeatTicks == 0 {
		log.Debug("placement heartbeat",
			"ticks", tick,
			"misses", m.missCount,
			"skipped", m.skippedTicks,
			"pos", out.Position,
		)
	}
	m.mu.Unlock()

	// The callback runs unlocked so it may call back into the manager.
	if fn != nil {
		fn(out, tick)
	}
}

func (m *Manager) changedSince(t Transform) bool {
	if t.Position.Sub(m.lastSent.Position).Len() >= deadBandPos {
		return true
	}
	dot := quatDot(t.Orientation, m.lastSent.Orientation)
	return 1-math.Abs(dot) >= deadBandRot
}

func quatDot(a, b mgl64.Quat) float64 {
	return a.W*b.W + a.V.Dot(b.V)
}
