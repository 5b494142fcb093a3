// Package protocol defines the WebSocket message types exchanged between
// the placement daemon and its browser clients (dashboard and 3D viewer).
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Server → Client messages
	TypeTransform MessageType = "transform" // Smoothed coil pose
	TypeState     MessageType = "state"     // Full engine snapshot

	// Client → Server messages
	TypeMove     MessageType = "move"     // Angular nudge on the surface
	TypeSnap     MessageType = "snap"     // Jump to a named landmark
	TypeControls MessageType = "controls" // Twist / tilt / flip update
	TypePulse    MessageType = "pulse"    // Record a stimulation pulse

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// TransformData is the smoothed world-space coil pose sent each tick.
type TransformData struct {
	Position    [3]float64 `json:"position"`    // meters, world frame
	Orientation [4]float64 `json:"orientation"` // quaternion, (w, x, y, z)
}

// StateData is a full snapshot of the placement engine.
type StateData struct {
	Yaw        float64    `json:"yaw"`   // radians
	Pitch      float64    `json:"pitch"` // radians
	Twist      float64    `json:"twist"`
	Tilt       float64    `json:"tilt"`
	Flip       bool       `json:"flip"`
	Surface    [3]float64  `json:"surface"` // committed surface point
	Target     *[3]float64 `json:"target,omitempty"`
	TargetDist float64     `json:"target_dist,omitempty"`
	Ready      bool       `json:"ready"`
	Ticks      uint64     `json:"ticks"`
	Misses     uint64     `json:"misses"`
}

// =============================================================================
// Client → Server Message Types
// =============================================================================

// MoveData is an angular nudge accumulated into the next tick.
type MoveData struct {
	DeltaYaw   float64 `json:"dyaw"`   // radians
	DeltaPitch float64 `json:"dpitch"` // radians
}

// SnapData names a landmark to jump to.
type SnapData struct {
	Landmark string `json:"landmark"`
}

// ControlsData updates the operator's orientation controls.
type ControlsData struct {
	Twist float64 `json:"twist"` // radians about the surface normal
	Tilt  float64 `json:"tilt"`  // radians about the coil's forward axis
	Flip  bool    `json:"flip"`  // rotate the coil 180° about the normal
}

// PulseData records a stimulation pulse at the current coil position.
type PulseData struct {
	Intensity float64 `json:"intensity,omitempty"` // percent of max output
}
