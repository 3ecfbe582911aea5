package types

import (
	"encoding/json"
	"time"
)

// ProcessingStatus lifecycle state recorded in the audit log
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
	ProcessingRejected   ProcessingStatus = "rejected"
)

// InteropEvent is the audit record written once for every processed message
type InteropEvent struct {
	ID               string           `json:"id" msgpack:"id"`
	MessageID        string           `json:"messageId" msgpack:"message_id"`
	Protocol         Protocol         `json:"protocol" msgpack:"protocol"`
	Direction        Direction        `json:"direction" msgpack:"direction"`
	SourceSystem     string           `json:"sourceSystem" msgpack:"source_system"`
	TargetSystem     string           `json:"targetSystem,omitempty" msgpack:"target_system"`
	RawPayload       json.RawMessage  `json:"rawPayload,omitempty" msgpack:"raw_payload"`
	ParsedData       json.RawMessage  `json:"parsedData,omitempty" msgpack:"parsed_data"`
	ValidationStatus ValidationStatus `json:"validationStatus" msgpack:"validation_status"`
	ValidationErrors []string         `json:"validationErrors" msgpack:"validation_errors"`
	RoutedTo         *string          `json:"routedTo" msgpack:"routed_to"`
	TrustScore       *float64         `json:"trustScore,omitempty" msgpack:"trust_score"`
	Response         json.RawMessage  `json:"response,omitempty" msgpack:"response"`
	LatencyMs        int64            `json:"latencyMs" msgpack:"latency_ms"`
	Status           ProcessingStatus `json:"status" msgpack:"status"`
	Error            string           `json:"error,omitempty" msgpack:"error"`
	// ProcessedAt is only set for completed messages
	ProcessedAt *time.Time `json:"processedAt,omitempty" msgpack:"processed_at"`
	CreatedAt   time.Time  `json:"createdAt" msgpack:"created_at"`
}
