package validator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/netrixframework/interop/parser"
	"github.com/netrixframework/interop/types"
)

func parse(p types.Protocol, payload string) *types.ParsedMessage {
	return parser.Parse(types.NewProtocolMessage(p, types.Inbound, "test", json.RawMessage(payload)))
}

func TestEveryProtocolHasRules(t *testing.T) {
	for _, p := range types.AllProtocols() {
		if !Covers(p) {
			t.Errorf("no rule set registered for protocol %s", p)
		}
	}
}

func TestInvalidParseIsCarriedForward(t *testing.T) {
	parsed := parse(types.ProtocolRPC, `{"version": "2.0", "id": 1}`)
	result := New().Validate(parsed)
	if result.Status != types.StatusInvalid {
		t.Fatalf("expected invalid, got %s", result.Status)
	}
	if len(result.Errors) != len(parsed.Errors) || !strings.Contains(result.Errors[0], "method") {
		t.Errorf("expected parse errors to be copied, got %v", result.Errors)
	}
}

func TestAISOutOfRange(t *testing.T) {
	cases := []string{
		`{"vesselId": "X", "latitude": 95, "longitude": 10}`,
		`{"vesselId": "X", "latitude": -90.5, "longitude": 10}`,
		`{"vesselId": "X", "latitude": 10, "longitude": 180.01}`,
		`{"vesselId": "X", "latitude": 10, "longitude": -181}`,
	}
	for _, payload := range cases {
		result := New().Validate(parse(types.ProtocolAIS, payload))
		if result.Status != types.StatusInvalid || len(result.Errors) == 0 {
			t.Errorf("payload %s: expected invalid with errors, got %+v", payload, result)
		}
	}
}

func TestAISBoundariesAreValid(t *testing.T) {
	result := New().Validate(parse(types.ProtocolAIS, `{"vesselId": "X", "latitude": -90, "longitude": 180}`))
	if result.Status != types.StatusValid {
		t.Fatalf("boundary coordinates are valid, got %+v", result)
	}
}

func TestSchemaValidationDisabled(t *testing.T) {
	v := New(WithSchemaValidation(false))
	result := v.Validate(parse(types.ProtocolAIS, `{"vesselId": "X", "latitude": 95, "longitude": 10}`))
	if result.Status != types.StatusValid {
		t.Fatalf("range rules must be skipped without schema validation, got %+v", result)
	}
}

func TestEPIRBCoordinatesChecked(t *testing.T) {
	result := New().Validate(parse(types.ProtocolEPIRB, `{"messageType": "DISTRESS", "latitude": 100, "longitude": 0}`))
	if result.Status != types.StatusInvalid {
		t.Fatalf("expected invalid, got %+v", result)
	}
	result = New().Validate(parse(types.ProtocolEPIRB, `{"messageType": "TEST"}`))
	if result.Status != types.StatusValid {
		t.Fatalf("beacon without position is valid, got %+v", result)
	}
}

func TestTopSecretWarns(t *testing.T) {
	parsed := parse(types.ProtocolLink16, `{"messageId": "m1", "classification": "TOP_SECRET", "priority": "FLASH"}`)
	result := New().Validate(parsed)
	if result.Status != types.StatusValid {
		t.Fatalf("expected valid, got %+v", result)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "clearance") {
		t.Fatalf("expected one clearance warning, got %v", result.Warnings)
	}
	if parsed.Data.(*types.TacticalMessage).Classification != "TOP_SECRET" {
		t.Error("validation must not alter the classification")
	}
}

func TestLowerClassificationsHaveNoWarning(t *testing.T) {
	for _, level := range []string{"UNCLASSIFIED", "CONFIDENTIAL", "SECRET"} {
		result := New().Validate(parse(types.ProtocolLink16,
			`{"messageId": "m1", "classification": "`+level+`", "priority": 1}`))
		if result.Status != types.StatusValid || len(result.Warnings) != 0 {
			t.Errorf("%s: unexpected result %+v", level, result)
		}
	}
}

func TestUnknownClassification(t *testing.T) {
	result := New().Validate(parse(types.ProtocolLink16, `{"messageId": "m1", "classification": "COSMIC", "priority": 1}`))
	if result.Status != types.StatusInvalid || len(result.Errors) != 1 {
		t.Fatalf("expected a single error, got %+v", result)
	}
}

func TestTrustScore(t *testing.T) {
	msg := types.NewProtocolMessage(types.ProtocolGraphQL, types.Inbound, "test", json.RawMessage(`{"query": "{a}"}`))

	result := New(WithMinTrustScore(0.5)).Validate(parser.Parse(msg.WithTrustScore(0.2)))
	if result.Status != types.StatusValid || len(result.Warnings) != 1 {
		t.Fatalf("low trust score should warn, got %+v", result)
	}
	if result.TrustScore == nil || *result.TrustScore != 0.2 {
		t.Errorf("expected trust score to be carried, got %v", result.TrustScore)
	}

	result = New(WithMinTrustScore(0.5)).Validate(parser.Parse(msg.WithTrustScore(1.5)))
	if result.Status != types.StatusValid || len(result.Warnings) != 1 ||
		!strings.Contains(result.Warnings[0], "outside") {
		t.Fatalf("out of range trust score should only warn, got %+v", result)
	}

	result = New(WithMinTrustScore(0.5)).Validate(parser.Parse(msg.WithTrustScore(-1)))
	if result.Status != types.StatusValid || len(result.Warnings) != 1 || len(result.Errors) != 0 {
		t.Fatalf("negative trust score should warn once, got %+v", result)
	}
}

func TestNilParsedMessage(t *testing.T) {
	result := New().Validate(nil)
	if result.Status != types.StatusError || len(result.Errors) != 1 {
		t.Fatalf("expected error status, got %+v", result)
	}
}

func TestInvalidParseSkipsFamilyRules(t *testing.T) {
	parsed := parse(types.ProtocolLink16, `{"messageId": "m1", "priority": "P"}`)
	result := New().Validate(parsed)
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "classification") {
		t.Fatalf("expected only the missing field error, got %v", result.Errors)
	}
}
