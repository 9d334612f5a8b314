package protocol

import (
	"encoding/json"
	"fmt"

	"norse/internal/input"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeHello is sent by the client right after connecting
	TypeHello MessageType = "hello"

	// TypeEvents carries a batch of input events
	TypeEvents MessageType = "events"

	// TypePing is an application-level heartbeat
	TypePing MessageType = "ping"

	// TypeStates carries a snapshot of every action state
	TypeStates MessageType = "states"
)

// Message is the envelope of every WebSocket frame.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HelloPayload is the payload for TypeHello
type HelloPayload struct {
	Session string `json:"session"`
	Version string `json:"version"`
}

// EventsPayload is the payload for TypeEvents
type EventsPayload struct {
	Events []input.InputEvent `json:"events"`
}

// ActionState is one (action, subpath) slot as published to observers.
type ActionState struct {
	Set     string `json:"set"`
	Action  string `json:"action"`
	Subpath string `json:"subpath,omitempty"`
	Type    string `json:"type"`
	Value   string `json:"value"`
	Active  bool   `json:"active"`
	Changed bool   `json:"changed"`
}

// StatesPayload is the payload for TypeStates
type StatesPayload struct {
	Session string        `json:"session"`
	Frame   uint64        `json:"frame"`
	Actions []ActionState `json:"actions"`
}

// NewMessage wraps payload in an envelope of type t.
func NewMessage(t MessageType, payload any) (Message, error) {
	msg := Message{Type: t}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("protocol: marshal %s payload: %w", t, err)
	}
	msg.Payload = raw
	return msg, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("protocol: %s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("protocol: decode %s payload: %w", m.Type, err)
	}
	return nil
}
