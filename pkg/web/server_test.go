package web

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/coil"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/protocol"
	"github.com/eveinstein/TMS-Simulator-App-sub001/pkg/surface"
)

const testRadius = 0.095

func newTestServer(t *testing.T, withSurface bool) *Server {
	t.Helper()

	engine, err := coil.NewEngine(coil.DefaultConfig(), coil.DefaultLandmarks(testRadius))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if withSurface {
		engine.SetSurface(surface.NewDome(testRadius, 0, 24, 48))
	}

	manager := coil.NewManager(engine, 16*time.Millisecond)
	return NewServer("0", manager)
}

func getJSON(t *testing.T, s *Server, path string, out interface{}) int {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, s *Server, path string, body interface{}) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestHandleState(t *testing.T) {
	s := newTestServer(t, true)

	var state coil.State
	if code := getJSON(t, s, "/api/state", &state); code != 200 {
		t.Fatalf("status = %d, want 200", code)
	}

	if !state.Ready {
		t.Error("Ready should be true with a surface loaded")
	}
}

func TestHandleLandmarks(t *testing.T) {
	s := newTestServer(t, true)

	var infos []LandmarkInfo
	if code := getJSON(t, s, "/api/landmarks", &infos); code != 200 {
		t.Fatalf("status = %d, want 200", code)
	}

	if len(infos) < 7 {
		t.Fatalf("landmarks = %d, want at least 7", len(infos))
	}

	found := false
	for _, lm := range infos {
		if lm.Name == coil.LandmarkDLPFCLeft {
			found = true
			if !lm.Flip {
				t.Error("dlpfc-left should carry the flip override")
			}
		}
	}
	if !found {
		t.Error("dlpfc-left missing from landmark list")
	}
}

func TestHandleMove(t *testing.T) {
	s := newTestServer(t, true)

	if code := postJSON(t, s, "/api/move", protocol.MoveData{DeltaYaw: 0.02}); code != 200 {
		t.Errorf("status = %d, want 200", code)
	}
}

func TestHandleSnap(t *testing.T) {
	s := newTestServer(t, true)

	if code := postJSON(t, s, "/api/snap/"+coil.LandmarkMotorLeft, nil); code != 200 {
		t.Errorf("status = %d, want 200", code)
	}

	var state coil.State
	getJSON(t, s, "/api/state", &state)
	if state.Yaw == 0 && state.Pitch == 0 {
		t.Error("snap should move the ghost off the origin coordinates")
	}
}

func TestHandleSnapUnknown(t *testing.T) {
	s := newTestServer(t, true)

	if code := postJSON(t, s, "/api/snap/occiput", nil); code != 404 {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestHandleSnapNotReady(t *testing.T) {
	s := newTestServer(t, false)

	if code := postJSON(t, s, "/api/snap/"+coil.LandmarkVertex, nil); code != 409 {
		t.Errorf("status = %d, want 409", code)
	}
}

func TestHandleControls(t *testing.T) {
	s := newTestServer(t, true)

	body := protocol.ControlsData{Twist: 0.3, Tilt: -0.1, Flip: true}
	if code := postJSON(t, s, "/api/controls", body); code != 200 {
		t.Fatalf("status = %d, want 200", code)
	}

	var state coil.State
	getJSON(t, s, "/api/state", &state)
	if state.Twist != 0.3 {
		t.Errorf("Twist = %v, want 0.3", state.Twist)
	}
	if !state.Flip {
		t.Error("Flip should be set")
	}
}

func TestHandleTargetUnknown(t *testing.T) {
	s := newTestServer(t, true)

	if code := postJSON(t, s, "/api/target/occiput", nil); code != 404 {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, true)

	// No session yet
	if code := getJSON(t, s, "/api/session", nil); code != 404 {
		t.Errorf("status = %d, want 404 before start", code)
	}
	if code := postJSON(t, s, "/api/session/pulse", nil); code != 409 {
		t.Errorf("pulse status = %d, want 409 before start", code)
	}

	// Start aimed at the motor cortex
	body := SessionStartRequest{Target: coil.LandmarkMotorLeft}
	if code := postJSON(t, s, "/api/session/start", body); code != 200 {
		t.Fatalf("start status = %d, want 200", code)
	}

	// Two pulses
	postJSON(t, s, "/api/session/pulse", nil)
	postJSON(t, s, "/api/session/pulse", nil)

	var report SessionReport
	if code := getJSON(t, s, "/api/session", &report); code != 200 {
		t.Fatalf("status = %d, want 200", code)
	}
	if report.Pulses != 2 {
		t.Errorf("Pulses = %d, want 2", report.Pulses)
	}
	if report.Target != coil.LandmarkMotorLeft {
		t.Errorf("Target = %s, want %s", report.Target, coil.LandmarkMotorLeft)
	}
	if report.ID == "" {
		t.Error("ID should be set")
	}
}

func TestSessionStartUnknownTarget(t *testing.T) {
	s := newTestServer(t, true)

	body := SessionStartRequest{Target: "occiput"}
	if code := postJSON(t, s, "/api/session/start", body); code != 404 {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestStateWebSocket(t *testing.T) {
	s := newTestServer(t, true)
	s.port = "18094"

	go s.Start()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18094/ws/state", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	// The first message is the current snapshot
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.Type != protocol.TypeState {
		t.Errorf("Type = %s, want state", msg.Type)
	}

	state, err := msg.GetStateData()
	if err != nil {
		t.Fatalf("GetStateData: %v", err)
	}
	if !state.Ready {
		t.Error("Ready should be true")
	}

	// Commands ride the same socket
	snap, _ := protocol.NewSnapMessage(coil.LandmarkVertex)
	raw, _ := snap.Bytes()
	if err := ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	// The snap triggers a state broadcast back to us
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error after snap: %v", err)
	}
	msg, err = protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.Type != protocol.TypeState {
		t.Errorf("Type = %s, want state", msg.Type)
	}
}

func TestTransformFeedMoveReachesManager(t *testing.T) {
	engine, err := coil.NewEngine(coil.DefaultConfig(), coil.DefaultLandmarks(testRadius))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	engine.SetSurface(surface.NewDome(testRadius, 0, 24, 48))
	manager := coil.NewManager(engine, 16*time.Millisecond)
	go manager.Run()
	defer manager.Stop()

	s := NewServer("0", manager)
	s.port = "18095"
	go s.Start()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	before := manager.Snapshot().Yaw

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18095/ws/transform", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	move, _ := protocol.NewMoveMessage(0.25, 0)
	raw, _ := move.Bytes()
	if err := ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	// The nudge lands in the intent mailbox and is consumed on the next tick.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if manager.Snapshot().Yaw != before {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("viewer move never reached the manager, yaw still %v", before)
}
