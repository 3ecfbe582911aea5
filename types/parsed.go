package types

import (
	"encoding/json"
	"time"
)

// ParsedData is the strongly typed body of a parsed message.
// Only the family structs in this package implement it.
type ParsedData interface {
	Protocol() Protocol
	parsedData()
}

// Metadata describes where and when a message was received
type Metadata struct {
	ReceivedAt   time.Time `json:"receivedAt"`
	Protocol     Protocol  `json:"protocol"`
	SourceSystem string    `json:"sourceSystem"`
	TrustScore   *float64  `json:"trustScore,omitempty"`
}

// ParsedMessage is the structural reading of a ProtocolMessage.
// An invalid ParsedMessage always carries at least one error.
type ParsedMessage struct {
	Protocol Protocol   `json:"protocol"`
	IsValid  bool       `json:"isValid"`
	Data     ParsedData `json:"data,omitempty"`
	Errors   []string   `json:"errors"`
	Metadata Metadata   `json:"metadata"`
}

// RPCRequest is a JSON-RPC style request
type RPCRequest struct {
	Version string `json:"version"`
	Method  string `json:"method"`
	// ID is present on every request but may be the JSON literal null
	ID     json.RawMessage `json:"id"`
	Params json.RawMessage `json:"params,omitempty"`
}

func (*RPCRequest) Protocol() Protocol { return ProtocolRPC }
func (*RPCRequest) parsedData()        {}

// GraphQLRequest is a graph query request
type GraphQLRequest struct {
	Query         string          `json:"query"`
	Variables     json.RawMessage `json:"variables,omitempty"`
	OperationName string          `json:"operationName,omitempty"`
}

func (*GraphQLRequest) Protocol() Protocol { return ProtocolGraphQL }
func (*GraphQLRequest) parsedData()        {}

// AISPosition is a vessel position report
type AISPosition struct {
	VesselID   string   `json:"vesselId"`
	VesselName string   `json:"vesselName,omitempty"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Speed      *float64 `json:"speed,omitempty"`
	Course     *float64 `json:"course,omitempty"`
	Heading    *float64 `json:"heading,omitempty"`
}

func (*AISPosition) Protocol() Protocol { return ProtocolAIS }
func (*AISPosition) parsedData()        {}

// DistressBeacon is a distress or safety transmission. Everything except the
// message type may be missing from a partially received beacon.
type DistressBeacon struct {
	MessageType string   `json:"messageType"`
	BeaconID    string   `json:"beaconId,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Status      string   `json:"status,omitempty"`
}

func (*DistressBeacon) Protocol() Protocol { return ProtocolEPIRB }
func (*DistressBeacon) parsedData()        {}

// TacticalMessage is a classified tactical message. Classification and
// priority are kept exactly as received.
type TacticalMessage struct {
	MessageID      string          `json:"messageId"`
	Classification string          `json:"classification"`
	Priority       string          `json:"priority"`
	Originator     string          `json:"originator,omitempty"`
	Content        json.RawMessage `json:"content,omitempty"`
}

func (*TacticalMessage) Protocol() Protocol { return ProtocolLink16 }
func (*TacticalMessage) parsedData()        {}
