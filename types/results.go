package types

import "encoding/json"

// ValidationStatus outcome of the validator
type ValidationStatus string

const (
	StatusValid   ValidationStatus = "valid"
	StatusInvalid ValidationStatus = "invalid"
	// StatusPending is reserved for asynchronous validation. Nothing produces it yet
	// and it is never terminal.
	StatusPending ValidationStatus = "pending"
	// StatusError means the validator itself failed, as opposed to the message failing validation
	StatusError ValidationStatus = "error"
)

// Rejected returns true for the statuses which must not be routed
func (s ValidationStatus) Rejected() bool {
	return s == StatusInvalid || s == StatusError
}

// ValidationResult is produced by the validator for a parsed message
type ValidationResult struct {
	Status     ValidationStatus `json:"status"`
	Errors     []string         `json:"errors"`
	Warnings   []string         `json:"warnings"`
	TrustScore *float64         `json:"trustScore,omitempty"`
}

const (
	// DestinationNone is the destination of a rejected message
	DestinationNone = "none"
	// DestinationError is the destination of a message whose delivery failed
	DestinationError = "error"
)

// RouteResult is the terminal record of processing one message
type RouteResult struct {
	Success   bool            `json:"success"`
	RoutedTo  string          `json:"routedTo"`
	LatencyMs int64           `json:"latencyMs"`
	Response  json.RawMessage `json:"response,omitempty"`
	Error     string          `json:"error,omitempty"`
}
