// Package stream provides the WebSocket feed that 3D viewers subscribe
// to for per-tick coil transforms.
package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/eveinstein/TMS-Simulator-App-sub001/internal/log"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/protocol"
)

// ViewerConnection represents a connected viewer
type ViewerConnection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send sends a message to the viewer
func (v *ViewerConnection) Send(msg *protocol.Message) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return v.Conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages WebSocket connections from viewers
type Hub struct {
	mu      sync.RWMutex
	viewers map[string]*ViewerConnection
	debug   bool

	// Callback for inbound move commands from viewers (may be nil)
	onMove func(viewerID string, move *protocol.MoveData)

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	transformsSent   atomic.Uint64
}

// NewHub creates a new viewer hub
func NewHub(debug bool) *Hub {
	return &Hub{
		viewers: make(map[string]*ViewerConnection),
		debug:   debug,
	}
}

// OnMove sets the callback for move commands sent over the feed
func (h *Hub) OnMove(callback func(viewerID string, move *protocol.MoveData)) {
	h.mu.Lock()
	h.onMove = callback
	h.mu.Unlock()
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws/transform", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Viewer connection endpoint
	app.Get("/ws/transform", websocket.New(h.handleViewer))
	app.Get("/ws/transform/:id", websocket.New(h.handleViewer))
}

// handleViewer handles a viewer WebSocket connection
func (h *Hub) handleViewer(c *websocket.Conn) {
	// Get viewer ID from path or generate one
	viewerID := c.Params("id")
	if viewerID == "" {
		viewerID = uuid.NewString()
	}

	viewer := &ViewerConnection{
		ID:        viewerID,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	// Register viewer
	h.mu.Lock()
	h.viewers[viewerID] = viewer
	viewerCount := len(h.viewers)
	h.mu.Unlock()

	if h.debug {
		log.Debug("viewer connected", "viewer", viewerID, "total", viewerCount)
	}

	defer func() {
		h.mu.Lock()
		delete(h.viewers, viewerID)
		viewerCount := len(h.viewers)
		h.mu.Unlock()

		if h.debug {
			log.Debug("viewer disconnected", "viewer", viewerID, "total", viewerCount)
		}
	}()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if h.debug {
				log.Debug("viewer read error", "viewer", viewerID, "error", err)
			}
			return
		}

		viewer.mu.Lock()
		viewer.LastSeen = time.Now()
		viewer.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(viewerID, data)
	}
}

// handleMessage processes an incoming message from a viewer
func (h *Hub) handleMessage(viewerID string, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		if h.debug {
			log.Debug("viewer parse error", "viewer", viewerID, "error", err)
		}
		return
	}

	h.mu.RLock()
	moveCb := h.onMove
	h.mu.RUnlock()

	switch msg.Type {
	case protocol.TypeMove:
		if moveCb != nil {
			move, err := msg.GetMoveData()
			if err == nil {
				moveCb(viewerID, move)
			}
		}

	case protocol.TypePing:
		// Respond with pong
		h.SendPong(viewerID, msg.Timestamp)
	}
}

// BroadcastTransform sends the current coil pose to all connected viewers
func (h *Hub) BroadcastTransform(position [3]float64, orientation [4]float64) {
	msg, err := protocol.NewTransformMessage(position, orientation)
	if err != nil {
		return
	}
	h.transformsSent.Add(1)
	h.Broadcast(msg)
}

// SendPong sends a pong response to a viewer
func (h *Hub) SendPong(viewerID string, pingTS int64) error {
	msg, err := protocol.NewPongMessage("", pingTS, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return h.sendToViewer(viewerID, msg)
}

// sendToViewer sends a message to a specific viewer
func (h *Hub) sendToViewer(viewerID string, msg *protocol.Message) error {
	h.mu.RLock()
	viewer, ok := h.viewers[viewerID]
	h.mu.RUnlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "viewer not connected")
	}

	h.messagesSent.Add(1)
	return viewer.Send(msg)
}

// Broadcast sends a message to all connected viewers
func (h *Hub) Broadcast(msg *protocol.Message) {
	h.mu.RLock()
	viewers := make([]*ViewerConnection, 0, len(h.viewers))
	for _, v := range h.viewers {
		viewers = append(viewers, v)
	}
	h.mu.RUnlock()

	for _, viewer := range viewers {
		h.messagesSent.Add(1)
		if err := viewer.Send(msg); err != nil {
			if h.debug {
				log.Debug("broadcast error", "viewer", viewer.ID, "error", err)
			}
		}
	}
}

// GetViewer returns a viewer connection by ID
func (h *Hub) GetViewer(viewerID string) *ViewerConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewers[viewerID]
}

// ViewerCount returns the number of connected viewers
func (h *Hub) ViewerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Stats contains hub statistics
type Stats struct {
	ViewerCount      int    `json:"viewer_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	TransformsSent   uint64 `json:"transforms_sent"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		ViewerCount:      h.ViewerCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		TransformsSent:   h.transformsSent.Load(),
	}
}

// ViewerInfo contains info about a connected viewer
type ViewerInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetViewerInfos returns info about all connected viewers
func (h *Hub) GetViewerInfos() []ViewerInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]ViewerInfo, 0, len(h.viewers))
	for _, v := range h.viewers {
		v.mu.Lock()
		infos = append(infos, ViewerInfo{
			ID:        v.ID,
			Connected: v.Connected,
			LastSeen:  v.LastSeen,
		})
		v.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers API routes for viewer management
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	viewers := api.Group("/viewers")

	// List connected viewers
	viewers.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"viewers": h.GetViewerInfos(),
			"count":   h.ViewerCount(),
		})
	})

	// Get hub stats
	viewers.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})
}
