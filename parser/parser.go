// Package parser turns raw protocol payloads into typed parsed messages.
//
// Parsing only checks that fields are present and have the right JSON type.
// Range and business rules are applied later by the validator.
package parser

import (
	"fmt"

	"github.com/netrixframework/interop/types"
)

// RPCVersion is the protocol version marker every rpc request must carry
const RPCVersion = "2.0"

type familyParser func(object) (types.ParsedData, []string)

var families = map[types.Protocol]familyParser{
	types.ProtocolRPC:     parseRPC,
	types.ProtocolGraphQL: parseGraphQL,
	types.ProtocolAIS:     parseAIS,
	types.ProtocolEPIRB:   parseEPIRB,
	types.ProtocolLink16:  parseLink16,
}

// Supports returns true if a parser exists for the protocol family
func Supports(p types.Protocol) bool {
	_, ok := families[p]
	return ok
}

// Parse reads the payload of msg according to its declared protocol family.
// Parse never panics, every failure is reported through IsValid and Errors.
func Parse(msg *types.ProtocolMessage) (parsed *types.ParsedMessage) {
	if msg == nil {
		return &types.ParsedMessage{Errors: []string{"no message"}}
	}
	parsed = &types.ParsedMessage{
		Protocol: msg.Protocol,
		Errors:   []string{},
		Metadata: types.Metadata{
			ReceivedAt:   msg.ReceivedAt,
			Protocol:     msg.Protocol,
			SourceSystem: msg.SourceSystem,
			TrustScore:   msg.TrustScore,
		},
	}
	defer func() {
		if r := recover(); r != nil {
			parsed.IsValid = false
			parsed.Data = nil
			parsed.Errors = []string{fmt.Sprintf("failed to parse %s payload: %v", msg.Protocol, r)}
		}
	}()

	parse, ok := families[msg.Protocol]
	if !ok {
		parsed.Errors = append(parsed.Errors, fmt.Sprintf("unknown protocol: %q", msg.Protocol))
		return parsed
	}
	fields, err := decodeObject(msg.Payload)
	if err != nil {
		parsed.Errors = append(parsed.Errors, err.Error())
		return parsed
	}
	data, errs := parse(fields)
	parsed.Data = data
	parsed.Errors = append(parsed.Errors, errs...)
	parsed.IsValid = len(parsed.Errors) == 0
	return parsed
}

func parseRPC(o object) (types.ParsedData, []string) {
	var errs []string
	req := &types.RPCRequest{}

	if !o.has("version") {
		errs = append(errs, "missing field: version")
	} else if v, err := o.str("version"); err != nil || v != RPCVersion {
		errs = append(errs, fmt.Sprintf("field version must be %q", RPCVersion))
	} else {
		req.Version = v
	}

	if method, err := o.str("method"); err != nil {
		errs = append(errs, err.Error())
	} else {
		req.Method = method
	}

	// id may be null but the key has to be there
	if !o.has("id") {
		errs = append(errs, "missing field: id")
	} else {
		req.ID = o["id"]
	}
	req.Params = o.optRaw("params")
	return req, errs
}

func parseGraphQL(o object) (types.ParsedData, []string) {
	var errs []string
	req := &types.GraphQLRequest{
		Variables:     o.optRaw("variables"),
		OperationName: o.optStr("operationName"),
	}
	if query, err := o.str("query"); err != nil {
		errs = append(errs, err.Error())
	} else {
		req.Query = query
	}
	return req, errs
}

func parseAIS(o object) (types.ParsedData, []string) {
	var errs []string
	pos := &types.AISPosition{
		VesselName: o.optStr("vesselName"),
		Speed:      o.optNum("speed"),
		Course:     o.optNum("course"),
		Heading:    o.optNum("heading"),
	}
	if id, err := o.str("vesselId"); err != nil {
		errs = append(errs, err.Error())
	} else {
		pos.VesselID = id
	}
	if lat, err := o.num("latitude"); err != nil {
		errs = append(errs, err.Error())
	} else {
		pos.Latitude = lat
	}
	if lon, err := o.num("longitude"); err != nil {
		errs = append(errs, err.Error())
	} else {
		pos.Longitude = lon
	}
	return pos, errs
}

// parseEPIRB tolerates garbled beacons: only the message type is required and
// malformed optional fields are dropped.
func parseEPIRB(o object) (types.ParsedData, []string) {
	var errs []string
	beacon := &types.DistressBeacon{
		BeaconID:  o.optStr("beaconId"),
		Latitude:  o.optNum("latitude"),
		Longitude: o.optNum("longitude"),
		Status:    o.optStr("status"),
	}
	if kind, err := o.str("messageType"); err != nil {
		errs = append(errs, err.Error())
	} else {
		beacon.MessageType = kind
	}
	return beacon, errs
}

func parseLink16(o object) (types.ParsedData, []string) {
	var errs []string
	msg := &types.TacticalMessage{
		Originator: o.optStr("originator"),
		Content:    o.optRaw("content"),
	}
	if id, err := o.text("messageId"); err != nil {
		errs = append(errs, err.Error())
	} else {
		msg.MessageID = id
	}
	if c, err := o.text("classification"); err != nil {
		errs = append(errs, err.Error())
	} else {
		msg.Classification = c
	}
	if p, err := o.text("priority"); err != nil {
		errs = append(errs, err.Error())
	} else {
		msg.Priority = p
	}
	return msg, errs
}
