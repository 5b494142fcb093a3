package protocol

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewTransformMessage creates a transform message from a pose
func NewTransformMessage(position [3]float64, orientation [4]float64) (*Message, error) {
	return NewMessage(TypeTransform, TransformData{
		Position:    position,
		Orientation: orientation,
	})
}

// NewStateMessage creates a state snapshot message
func NewStateMessage(state StateData) (*Message, error) {
	return NewMessage(TypeState, state)
}

// NewMoveMessage creates an angular nudge message
func NewMoveMessage(dYaw, dPitch float64) (*Message, error) {
	return NewMessage(TypeMove, MoveData{
		DeltaYaw:   dYaw,
		DeltaPitch: dPitch,
	})
}

// NewSnapMessage creates a landmark snap message
func NewSnapMessage(landmark string) (*Message, error) {
	return NewMessage(TypeSnap, SnapData{Landmark: landmark})
}

// NewControlsMessage creates a controls update message
func NewControlsMessage(twist, tilt float64, flip bool) (*Message, error) {
	return NewMessage(TypeControls, ControlsData{
		Twist: twist,
		Tilt:  tilt,
		Flip:  flip,
	})
}

// NewPulseMessage creates a pulse message
func NewPulseMessage(intensity float64) (*Message, error) {
	return NewMessage(TypePulse, PulseData{Intensity: intensity})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// PingData carries a health-check identifier
type PingData struct {
	ID string `json:"id,omitempty"`
}

// PongData echoes a ping with round-trip timing
type PongData struct {
	ID        string `json:"id,omitempty"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetTransformData extracts the pose from a transform message
func (m *Message) GetTransformData() (*TransformData, error) {
	var data TransformData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateData extracts the engine snapshot from a state message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetMoveData extracts the nudge from a move message
func (m *Message) GetMoveData() (*MoveData, error) {
	var data MoveData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSnapData extracts the landmark name from a snap message
func (m *Message) GetSnapData() (*SnapData, error) {
	var data SnapData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetControlsData extracts the controls from a controls message
func (m *Message) GetControlsData() (*ControlsData, error) {
	var data ControlsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPulseData extracts the pulse record from a pulse message
func (m *Message) GetPulseData() (*PulseData, error) {
	var data PulseData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
