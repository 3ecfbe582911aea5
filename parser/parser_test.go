package parser

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/netrixframework/interop/types"
)

func message(p types.Protocol, payload string) *types.ProtocolMessage {
	return types.NewProtocolMessage(p, types.Inbound, "test-source", json.RawMessage(payload))
}

func hasError(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestEveryProtocolHasParser(t *testing.T) {
	for _, p := range types.AllProtocols() {
		if !Supports(p) {
			t.Errorf("no parser registered for protocol %s", p)
		}
	}
}

func TestParseRPCValid(t *testing.T) {
	parsed := Parse(message(types.ProtocolRPC, `{"version": "2.0", "method": "ping", "id": 1}`))
	if !parsed.IsValid {
		t.Fatalf("expected valid message, got errors %v", parsed.Errors)
	}
	req, ok := parsed.Data.(*types.RPCRequest)
	if !ok {
		t.Fatalf("expected *RPCRequest, got %T", parsed.Data)
	}
	if req.Method != "ping" || string(req.ID) != "1" {
		t.Errorf("unexpected request %+v", req)
	}
	if parsed.Metadata.SourceSystem != "test-source" || parsed.Metadata.Protocol != types.ProtocolRPC {
		t.Errorf("unexpected metadata %+v", parsed.Metadata)
	}
}

func TestParseRPCNullIDIsPresent(t *testing.T) {
	parsed := Parse(message(types.ProtocolRPC, `{"version": "2.0", "method": "notify", "id": null}`))
	if !parsed.IsValid {
		t.Fatalf("null id must be accepted, got errors %v", parsed.Errors)
	}
}

func TestParseRPCMissingFields(t *testing.T) {
	parsed := Parse(message(types.ProtocolRPC, `{"version": "1.0"}`))
	if parsed.IsValid {
		t.Fatal("expected invalid message")
	}
	if len(parsed.Errors) != 3 {
		t.Fatalf("expected one error per bad field, got %v", parsed.Errors)
	}
	for _, field := range []string{"version", "method", "id"} {
		if !hasError(parsed.Errors, field) {
			t.Errorf("expected an error mentioning %s, got %v", field, parsed.Errors)
		}
	}
}

func TestParseRPCEmptyMethod(t *testing.T) {
	parsed := Parse(message(types.ProtocolRPC, `{"version": "2.0", "method": "", "id": "a"}`))
	if parsed.IsValid || !hasError(parsed.Errors, "method") {
		t.Fatalf("expected an error about method, got %v", parsed.Errors)
	}
}

func TestParseGraphQL(t *testing.T) {
	parsed := Parse(message(types.ProtocolGraphQL, `{"query": "{ vessels { id } }", "operationName": 3}`))
	if !parsed.IsValid {
		t.Fatalf("unexpected errors %v", parsed.Errors)
	}
	req := parsed.Data.(*types.GraphQLRequest)
	if req.OperationName != "" {
		t.Errorf("malformed operation name should be ignored, got %q", req.OperationName)
	}

	parsed = Parse(message(types.ProtocolGraphQL, `{"variables": {}}`))
	if parsed.IsValid || !hasError(parsed.Errors, "query") {
		t.Fatalf("expected an error about query, got %v", parsed.Errors)
	}
}

func TestParseAISDoesNotRangeCheck(t *testing.T) {
	parsed := Parse(message(types.ProtocolAIS, `{"vesselId": "X", "latitude": 95, "longitude": 10}`))
	if !parsed.IsValid {
		t.Fatalf("out of range coordinates are a validation concern, got %v", parsed.Errors)
	}
	pos := parsed.Data.(*types.AISPosition)
	if pos.Latitude != 95 || pos.Longitude != 10 {
		t.Errorf("unexpected position %+v", pos)
	}
}

func TestParseAISTypeErrors(t *testing.T) {
	parsed := Parse(message(types.ProtocolAIS, `{"vesselId": "", "latitude": "north", "longitude": 10}`))
	if parsed.IsValid {
		t.Fatal("expected invalid message")
	}
	if !hasError(parsed.Errors, "vesselId") || !hasError(parsed.Errors, "latitude") {
		t.Errorf("unexpected errors %v", parsed.Errors)
	}
	if len(parsed.Errors) != 2 {
		t.Errorf("expected 2 errors, got %v", parsed.Errors)
	}
}

func TestParseEPIRBTolerant(t *testing.T) {
	parsed := Parse(message(types.ProtocolEPIRB, `{"messageType": "DISTRESS", "latitude": "garbled", "beaconId": 12}`))
	if !parsed.IsValid {
		t.Fatalf("garbled optional fields must be tolerated, got %v", parsed.Errors)
	}
	beacon := parsed.Data.(*types.DistressBeacon)
	if beacon.Latitude != nil || beacon.BeaconID != "" {
		t.Errorf("expected malformed fields to be dropped, got %+v", beacon)
	}

	parsed = Parse(message(types.ProtocolEPIRB, `{"beaconId": "B1"}`))
	if parsed.IsValid || !hasError(parsed.Errors, "messageType") {
		t.Fatalf("expected an error about messageType, got %v", parsed.Errors)
	}
}

func TestParseLink16PresenceOnly(t *testing.T) {
	parsed := Parse(message(types.ProtocolLink16, `{"messageId": 42, "classification": "COSMIC", "priority": "FLASH"}`))
	if !parsed.IsValid {
		t.Fatalf("value checks belong to validation, got %v", parsed.Errors)
	}
	msg := parsed.Data.(*types.TacticalMessage)
	if msg.MessageID != "42" || msg.Classification != "COSMIC" {
		t.Errorf("unexpected message %+v", msg)
	}

	parsed = Parse(message(types.ProtocolLink16, `{"messageId": "m1"}`))
	if len(parsed.Errors) != 2 {
		t.Fatalf("expected missing classification and priority, got %v", parsed.Errors)
	}
}

func TestParseUnknownProtocol(t *testing.T) {
	parsed := Parse(message(types.Protocol("smtp"), `{"to": "x"}`))
	if parsed.IsValid {
		t.Fatal("unknown protocol must be invalid")
	}
	if len(parsed.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %v", parsed.Errors)
	}
	if parsed.Data != nil {
		t.Error("unknown protocol must not carry data")
	}
}

func TestParseNonObjectPayload(t *testing.T) {
	for _, payload := range []string{`[1,2]`, `"text"`, `null`, ``, `{"broken"`} {
		parsed := Parse(message(types.ProtocolGraphQL, payload))
		if parsed.IsValid || len(parsed.Errors) != 1 || parsed.Data != nil {
			t.Errorf("payload %q: expected a single structural error, got %+v", payload, parsed)
		}
	}
}

func TestParseDistinguishesMalformedPayload(t *testing.T) {
	for _, payload := range []string{`{"query"`, `[1,`, `{"query": 1,}`} {
		parsed := Parse(message(types.ProtocolGraphQL, payload))
		if len(parsed.Errors) != 1 || !strings.HasPrefix(parsed.Errors[0], "malformed payload") {
			t.Errorf("payload %q: expected a malformed payload error, got %v", payload, parsed.Errors)
		}
	}
	for _, payload := range []string{`[1,2]`, `42`, `null`} {
		parsed := Parse(message(types.ProtocolGraphQL, payload))
		if len(parsed.Errors) != 1 || parsed.Errors[0] != "payload must be a JSON object" {
			t.Errorf("payload %q: expected a not an object error, got %v", payload, parsed.Errors)
		}
	}
}

func TestParseIsIdempotent(t *testing.T) {
	msg := message(types.ProtocolAIS, `{"vesselId": "X", "latitude": 1.5, "longitude": 2.5, "speed": 11}`)
	first := Parse(msg)
	second := Parse(msg)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("parse is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestParseNilMessage(t *testing.T) {
	parsed := Parse(nil)
	if parsed.IsValid || len(parsed.Errors) == 0 {
		t.Fatal("nil message must be invalid with an error")
	}
}
