// Package web provides the HTTP and WebSocket surface of the placement
// daemon: a REST API for operator commands, a dashboard state feed, and
// the viewer transform stream.
package web

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/eveinstein/TMS-Simulator-App-sub001/internal/log"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/coil"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/hub"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/protocol"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/session"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/stream"
)

// Server is the placement daemon's web server
type Server struct {
	app  *fiber.App
	port string

	manager *coil.Manager

	// Active stimulation session, nil until one is started
	session   *session.Session
	sessionMu sync.RWMutex

	// Hub for dashboard state broadcast (thread-safe!)
	stateHub *hub.Hub

	// Viewer transform feed
	stream *stream.Hub
}

// NewServer creates a new web server around a running manager
func NewServer(port string, manager *coil.Manager) *Server {
	s := &Server{
		port:     port,
		manager:  manager,
		stateHub: hub.New("state"),
		stream:   stream.NewHub(false),
	}
	s.stateHub.OnMessage(s.handleCommand)
	// Viewer move commands feed the same intent mailbox as the REST surface.
	s.stream.OnMove(func(_ string, move *protocol.MoveData) {
		s.manager.Nudge(move.DeltaYaw, move.DeltaPitch)
	})

	app := fiber.New(fiber.Config{
		AppName:               "simd",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static files
	app.Static("/", "./web")

	// API routes
	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/landmarks", s.handleLandmarks)
	api.Post("/move", s.handleMove)
	api.Post("/snap/:name", s.handleSnap)
	api.Post("/controls", s.handleControls)
	api.Post("/target/:name", s.handleTarget)
	api.Get("/session", s.handleSessionGet)
	api.Post("/session/start", s.handleSessionStart)
	api.Post("/session/pulse", s.handleSessionPulse)
	s.stream.RegisterAPIRoutes(api)

	// WebSocket upgrade middleware
	app.Use("/ws/state", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/state", websocket.New(s.handleStateWS))
	s.stream.RegisterRoutes(app)

	s.app = app
	return s
}

// Start starts the web server
func (s *Server) Start() error {
	log.Info("web server listening", "port", s.port)

	go s.stateHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server error", "error", err)
		}
	}()
}

// PublishTransform pushes a smoothed pose to the viewer feed and, when a
// session is running, records the current distance to target. The manager
// calls this once per broadcast-worthy tick.
func (s *Server) PublishTransform(t coil.Transform) {
	s.stream.BroadcastTransform(
		[3]float64{t.Position.X(), t.Position.Y(), t.Position.Z()},
		[4]float64{t.Orientation.W, t.Orientation.X(), t.Orientation.Y(), t.Orientation.Z()},
	)

	s.sessionMu.RLock()
	sess := s.session
	s.sessionMu.RUnlock()
	if sess != nil {
		if d, ok := s.manager.DistanceToTarget(); ok {
			sess.RecordDistance(d)
		}
	}
}

// BroadcastState pushes a fresh engine snapshot to all dashboard clients
func (s *Server) BroadcastState() {
	msg, err := protocol.NewStateMessage(s.stateData())
	if err != nil {
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	s.stateHub.Broadcast(hub.NewJSONMessage(data))
}

// stateData assembles the wire snapshot from the manager
func (s *Server) stateData() protocol.StateData {
	snap := s.manager.Snapshot()
	data := protocol.StateData{
		Yaw:        snap.Yaw,
		Pitch:      snap.Pitch,
		Twist:      snap.Twist,
		Tilt:       snap.Tilt,
		Flip:       snap.Flip,
		Ready:      snap.Ready,
		TargetDist: snap.Distance,
		Ticks:      snap.Ticks,
		Misses:     snap.Misses,
	}
	if p, ok := s.manager.SurfacePosition(); ok {
		data.Surface = [3]float64{p.Pos.X(), p.Pos.Y(), p.Pos.Z()}
	}
	if snap.Target != "" {
		if lm, ok := s.manager.Landmark(snap.Target); ok {
			pos := [3]float64{lm.Pos.X(), lm.Pos.Y(), lm.Pos.Z()}
			data.Target = &pos
		}
	}
	return data
}

// Stream returns the viewer feed hub for external use
func (s *Server) Stream() *stream.Hub {
	return s.stream
}

// StateHub returns the dashboard hub for external use
func (s *Server) StateHub() *hub.Hub {
	return s.stateHub
}

// App returns the underlying fiber app, used by tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
