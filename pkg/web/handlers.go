package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/eveinstein/TMS-Simulator-App-sub001/internal/log"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/coil"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/hub"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/protocol"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/session"
)

// handleState returns the current engine snapshot
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.manager.Snapshot())
}

// LandmarkInfo describes a named scalp position for the dashboard
type LandmarkInfo struct {
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Flip     bool       `json:"flip"`
}

// handleLandmarks returns all named landmarks
func (s *Server) handleLandmarks(c *fiber.Ctx) error {
	all := s.manager.Landmarks()
	infos := make([]LandmarkInfo, 0, len(all))
	for _, lm := range all {
		infos = append(infos, LandmarkInfo{
			Name:     lm.Name,
			Position: [3]float64{lm.Pos.X(), lm.Pos.Y(), lm.Pos.Z()},
			Flip:     lm.Flip180,
		})
	}
	return c.JSON(infos)
}

// handleMove queues an angular nudge for the next tick
func (s *Server) handleMove(c *fiber.Ctx) error {
	var req protocol.MoveData
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.manager.Nudge(req.DeltaYaw, req.DeltaPitch)
	return c.JSON(fiber.Map{"status": "queued"})
}

// handleSnap jumps the coil to a named landmark
func (s *Server) handleSnap(c *fiber.Ctx) error {
	name := c.Params("name")

	if err := s.manager.Snap(name); err != nil {
		return c.Status(snapStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	s.BroadcastState()
	return c.JSON(fiber.Map{"status": "snapped", "landmark": name})
}

// handleControls updates twist, tilt and flip
func (s *Server) handleControls(c *fiber.Ctx) error {
	var req protocol.ControlsData
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.manager.SetControls(req.Twist, req.Tilt, req.Flip)
	s.BroadcastState()
	return c.JSON(fiber.Map{"status": "updated"})
}

// handleTarget selects the stimulation target landmark
func (s *Server) handleTarget(c *fiber.Ctx) error {
	name := c.Params("name")

	if err := s.manager.SetTarget(name); err != nil {
		return c.Status(snapStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	s.BroadcastState()
	return c.JSON(fiber.Map{"status": "targeted", "landmark": name})
}

// SessionReport is the JSON shape of GET /api/session
type SessionReport struct {
	ID        string        `json:"id"`
	Target    string        `json:"target"`
	Pulses    int           `json:"pulses"`
	ElapsedMS int64         `json:"elapsed_ms"`
	Distance  session.Stats `json:"distance"`
}

// handleSessionGet returns the active session summary
func (s *Server) handleSessionGet(c *fiber.Ctx) error {
	s.sessionMu.RLock()
	sess := s.session
	s.sessionMu.RUnlock()

	if sess == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no active session"})
	}

	return c.JSON(SessionReport{
		ID:        sess.ID.String(),
		Target:    sess.Target,
		Pulses:    sess.Pulses(),
		ElapsedMS: sess.Elapsed().Milliseconds(),
		Distance:  sess.DistanceStats(),
	})
}

// SessionStartRequest is the request body for starting a session
type SessionStartRequest struct {
	Target string `json:"target"`
}

// handleSessionStart begins a stimulation session aimed at a landmark
func (s *Server) handleSessionStart(c *fiber.Ctx) error {
	var req SessionStartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Target != "" {
		if err := s.manager.SetTarget(req.Target); err != nil {
			return c.Status(snapStatus(err)).JSON(fiber.Map{"error": err.Error()})
		}
	}

	sess := session.New(req.Target)
	s.sessionMu.Lock()
	s.session = sess
	s.sessionMu.Unlock()

	log.Info("session started", "id", sess.ID, "target", req.Target)
	s.BroadcastState()
	return c.JSON(fiber.Map{"id": sess.ID.String(), "target": req.Target})
}

// handleSessionPulse records a stimulation pulse
func (s *Server) handleSessionPulse(c *fiber.Ctx) error {
	s.sessionMu.RLock()
	sess := s.session
	s.sessionMu.RUnlock()

	if sess == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no active session"})
	}

	count := sess.RecordPulse()
	if d, ok := s.manager.DistanceToTarget(); ok {
		sess.RecordDistance(d)
	}

	return c.JSON(fiber.Map{"pulses": count})
}

// snapStatus maps engine errors to HTTP status codes
func snapStatus(err error) int {
	switch {
	case errors.Is(err, coil.ErrUnknownLandmark):
		return fiber.StatusNotFound
	case errors.Is(err, coil.ErrNotReady):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// handleStateWS handles WebSocket connections for live engine state
func (s *Server) handleStateWS(c *websocket.Conn) {
	// Send the current snapshot before joining the broadcast set
	if msg, err := protocol.NewStateMessage(s.stateData()); err == nil {
		if data, err := msg.Bytes(); err == nil {
			c.WriteMessage(websocket.TextMessage, data)
		}
	}

	// Blocks until the connection closes
	hub.NewClient(s.stateHub, c).Run()
}

// handleCommand processes command messages sent over the state socket
func (s *Server) handleCommand(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		log.Debug("bad command message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeMove:
		if move, err := msg.GetMoveData(); err == nil {
			s.manager.Nudge(move.DeltaYaw, move.DeltaPitch)
		}

	case protocol.TypeSnap:
		if snap, err := msg.GetSnapData(); err == nil {
			if err := s.manager.Snap(snap.Landmark); err != nil {
				log.Debug("snap failed", "landmark", snap.Landmark, "error", err)
				return
			}
			s.BroadcastState()
		}

	case protocol.TypeControls:
		if controls, err := msg.GetControlsData(); err == nil {
			s.manager.SetControls(controls.Twist, controls.Tilt, controls.Flip)
			s.BroadcastState()
		}

	case protocol.TypePulse:
		s.sessionMu.RLock()
		sess := s.session
		s.sessionMu.RUnlock()
		if sess != nil {
			sess.RecordPulse()
			if d, ok := s.manager.DistanceToTarget(); ok {
				sess.RecordDistance(d)
			}
		}
	}
}
