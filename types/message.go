package types

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProtocolMessage is the envelope wrapping a raw payload with its routing metadata.
// It is created once per arriving message and is not modified afterwards.
type ProtocolMessage struct {
	ID           string          `json:"id,omitempty"`
	Protocol     Protocol        `json:"protocol"`
	Direction    Direction       `json:"direction"`
	SourceSystem string          `json:"sourceSystem"`
	TargetSystem string          `json:"targetSystem,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	// Timestamp capture time reported by the source, if any
	Timestamp *time.Time `json:"timestamp,omitempty"`
	// TrustScore confidence in the source set by an upstream authentication layer
	TrustScore *float64 `json:"trustScore,omitempty"`
	// ReceivedAt time the adapter accepted the envelope
	ReceivedAt time.Time `json:"receivedAt"`
}

// NewProtocolMessage creates a stamped envelope
func NewProtocolMessage(protocol Protocol, direction Direction, source string, payload json.RawMessage) *ProtocolMessage {
	m := ProtocolMessage{
		Protocol:     protocol,
		Direction:    direction,
		SourceSystem: source,
		Payload:      payload,
	}
	return m.Stamped()
}

// Stamped returns a copy of the envelope with an ID and a receive time assigned
// when they are missing. Envelopes decoded off the wire go through this once.
func (m ProtocolMessage) Stamped() *ProtocolMessage {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = time.Now().UTC()
	}
	if m.Direction == "" {
		m.Direction = Inbound
	}
	return &m
}

// WithTarget returns a copy addressed to target
func (m ProtocolMessage) WithTarget(target string) *ProtocolMessage {
	m.TargetSystem = target
	return &m
}

// WithTrustScore returns a copy carrying the given trust score
func (m ProtocolMessage) WithTrustScore(score float64) *ProtocolMessage {
	m.TrustScore = &score
	return &m
}

// DecodeMessages decodes either a single envelope or a JSON array of envelopes
func DecodeMessages(data []byte) ([]*ProtocolMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var msgs []*ProtocolMessage
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, err
		}
		return msgs, nil
	}
	msg := new(ProtocolMessage)
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return []*ProtocolMessage{msg}, nil
}
