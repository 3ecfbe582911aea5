package router

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/netrixframework/interop/audit"
	"github.com/netrixframework/interop/log"
	"github.com/netrixframework/interop/parser"
	"github.com/netrixframework/interop/types"
	"github.com/netrixframework/interop/validator"
)

type countingDeliverer struct {
	calls int32
	resp  json.RawMessage
	err   error
	last  atomic.Value
}

func (c *countingDeliverer) Deliver(_ context.Context, dest string, _ *types.ParsedMessage) (json.RawMessage, error) {
	atomic.AddInt32(&c.calls, 1)
	c.last.Store(dest)
	return c.resp, c.err
}

func pipeline(p types.Protocol, payload string) (*types.ProtocolMessage, *types.ParsedMessage, *types.ValidationResult) {
	msg := types.NewProtocolMessage(p, types.Inbound, "test", json.RawMessage(payload))
	parsed := parser.Parse(msg)
	return msg, parsed, validator.New().Validate(parsed)
}

func TestDestinationForEveryProtocol(t *testing.T) {
	samples := map[types.Protocol]types.ParsedData{
		types.ProtocolRPC:     &types.RPCRequest{Method: "ping"},
		types.ProtocolGraphQL: &types.GraphQLRequest{},
		types.ProtocolAIS:     &types.AISPosition{},
		types.ProtocolEPIRB:   &types.DistressBeacon{},
		types.ProtocolLink16:  &types.TacticalMessage{},
	}
	for _, p := range types.AllProtocols() {
		data, ok := samples[p]
		if !ok {
			t.Errorf("no sample data for protocol %s", p)
			continue
		}
		dest, err := Destination(p, data)
		if err != nil || dest == "" {
			t.Errorf("protocol %s has no destination: %v", p, err)
		}
	}
	if _, err := Destination("smtp", nil); !errors.Is(err, ErrNoDestination) {
		t.Errorf("expected ErrNoDestination, got %v", err)
	}
}

func TestDestinationFansOutRPCMethods(t *testing.T) {
	a, _ := Destination(types.ProtocolRPC, &types.RPCRequest{Method: "ping"})
	b, _ := Destination(types.ProtocolRPC, &types.RPCRequest{Method: "status"})
	if a != "rpc-handler:ping" || b != "rpc-handler:status" {
		t.Fatalf("unexpected destinations %s %s", a, b)
	}
}

func route(r *Router, p types.Protocol, payload string) *types.RouteResult {
	msg, parsed, validation := pipeline(p, payload)
	return r.Route(context.Background(), msg, parsed, validation)
}

func TestRouteSuccess(t *testing.T) {
	sink := audit.NewMemorySink()
	d := &countingDeliverer{resp: json.RawMessage(`{"pong":true}`)}
	r := New(d, sink, log.NewDiscardLogger())

	result := route(r, types.ProtocolRPC, `{"version": "2.0", "method": "ping", "id": 1}`)
	if !result.Success || result.RoutedTo != "rpc-handler:ping" {
		t.Fatalf("unexpected result %+v", result)
	}
	if string(result.Response) != `{"pong":true}` {
		t.Errorf("unexpected response %s", result.Response)
	}

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(events))
	}
	e := events[0]
	if e.Status != types.ProcessingCompleted || e.ProcessedAt == nil {
		t.Errorf("expected a completed event with processed time, got %+v", e)
	}
	if e.RoutedTo == nil || *e.RoutedTo != "rpc-handler:ping" {
		t.Errorf("unexpected routed to %v", e.RoutedTo)
	}
	if len(e.ParsedData) == 0 || e.ValidationStatus != types.StatusValid {
		t.Errorf("event is missing parse or validation details: %+v", e)
	}
}

func TestRouteRejectsWithoutDelivery(t *testing.T) {
	sink := audit.NewMemorySink()
	d := &countingDeliverer{}
	r := New(d, sink, log.NewDiscardLogger())

	result := route(r, types.ProtocolAIS, `{"vesselId": "X", "latitude": 95, "longitude": 10}`)
	if result.Success || result.RoutedTo != types.DestinationNone {
		t.Fatalf("expected rejection, got %+v", result)
	}
	if !strings.Contains(result.Error, "latitude") {
		t.Errorf("expected the validation error in the result, got %q", result.Error)
	}
	if atomic.LoadInt32(&d.calls) != 0 {
		t.Fatal("rejected messages must not be delivered")
	}
	events := sink.Events()
	if len(events) != 1 || events[0].Status != types.ProcessingRejected {
		t.Fatalf("expected one rejected event, got %+v", events)
	}
	if events[0].RoutedTo != nil || events[0].ProcessedAt != nil {
		t.Errorf("rejected event must not carry a destination or processed time: %+v", events[0])
	}
}

func TestRouteJoinsValidationErrors(t *testing.T) {
	r := New(&countingDeliverer{}, audit.NewMemorySink(), log.NewDiscardLogger())
	result := route(r, types.ProtocolAIS, `{"vesselId": "X", "latitude": 95, "longitude": 200}`)
	if strings.Count(result.Error, "; ") != 1 {
		t.Fatalf("expected two joined errors, got %q", result.Error)
	}
}

func TestRouteRejectsValidatorError(t *testing.T) {
	sink := audit.NewMemorySink()
	d := &countingDeliverer{}
	r := New(d, sink, log.NewDiscardLogger())
	msg, parsed, _ := pipeline(types.ProtocolGraphQL, `{"query": "{a}"}`)
	validation := &types.ValidationResult{Status: types.StatusError, Errors: []string{"validator crashed"}}

	result := r.Route(context.Background(), msg, parsed, validation)
	if result.Success || result.RoutedTo != types.DestinationNone || result.Error != "validator crashed" {
		t.Fatalf("unexpected result %+v", result)
	}
	if d.calls != 0 || sink.Events()[0].Status != types.ProcessingRejected {
		t.Fatal("validator errors must be rejected without delivery")
	}
}

func TestRouteWarningsDoNotBlock(t *testing.T) {
	d := &countingDeliverer{}
	r := New(d, audit.NewMemorySink(), log.NewDiscardLogger())
	result := route(r, types.ProtocolLink16, `{"messageId": "m1", "classification": "TOP_SECRET", "priority": "FLASH"}`)
	if !result.Success || result.RoutedTo != TacticalCommand {
		t.Fatalf("warnings must not block routing, got %+v", result)
	}
}

func TestRouteDeliveryFailure(t *testing.T) {
	sink := audit.NewMemorySink()
	d := &countingDeliverer{err: errors.New("connection refused")}
	r := New(d, sink, log.NewDiscardLogger())

	result := route(r, types.ProtocolEPIRB, `{"messageType": "DISTRESS"}`)
	if result.Success || result.RoutedTo != types.DestinationError {
		t.Fatalf("expected failure, got %+v", result)
	}
	if result.Error != "connection refused" {
		t.Errorf("unexpected error %q", result.Error)
	}
	if d.calls != 1 {
		t.Errorf("failed deliveries must not be retried, got %d calls", d.calls)
	}
	e := sink.Events()[0]
	if e.Status != types.ProcessingFailed || e.ProcessedAt != nil {
		t.Errorf("unexpected event %+v", e)
	}
	if e.RoutedTo == nil || *e.RoutedTo != EmergencyResponse {
		t.Errorf("failed event should name the attempted destination, got %v", e.RoutedTo)
	}
}

func TestRouteDeliveryTimeout(t *testing.T) {
	sink := audit.NewMemorySink()
	block := make(chan struct{})
	defer close(block)
	d := DelivererFunc(func(context.Context, string, *types.ParsedMessage) (json.RawMessage, error) {
		<-block
		return nil, nil
	})
	r := New(d, sink, log.NewDiscardLogger(), WithTimeout(20*time.Millisecond))

	start := time.Now()
	result := route(r, types.ProtocolGraphQL, `{"query": "{a}"}`)
	if time.Since(start) > time.Second {
		t.Fatal("delivery timeout was not enforced")
	}
	if result.Success || result.RoutedTo != types.DestinationError || !strings.Contains(result.Error, "timed out") {
		t.Fatalf("expected a timeout failure, got %+v", result)
	}
	if sink.Events()[0].Status != types.ProcessingFailed {
		t.Error("a timeout is recorded as a failed delivery")
	}
}

func TestRouteDeliveryPanic(t *testing.T) {
	d := DelivererFunc(func(context.Context, string, *types.ParsedMessage) (json.RawMessage, error) {
		panic("handler bug")
	})
	r := New(d, audit.NewMemorySink(), log.NewDiscardLogger())
	result := route(r, types.ProtocolGraphQL, `{"query": "{a}"}`)
	if result.Success || !strings.Contains(result.Error, "handler bug") {
		t.Fatalf("expected the panic to surface as a failure, got %+v", result)
	}
}

func TestRouteAuditFailureIsNotFatal(t *testing.T) {
	failing := audit.SinkFunc(func(context.Context, *types.InteropEvent) error {
		return errors.New("database down")
	})
	r := New(&countingDeliverer{}, failing, log.NewDiscardLogger())
	result := route(r, types.ProtocolGraphQL, `{"query": "{a}"}`)
	if !result.Success {
		t.Fatalf("audit failures must not fail routing, got %+v", result)
	}
}

func TestRouteAuditPanicIsNotFatal(t *testing.T) {
	d := &countingDeliverer{}
	panicking := audit.SinkFunc(func(context.Context, *types.InteropEvent) error {
		panic("sink exploded")
	})
	r := New(d, panicking, log.NewDiscardLogger())
	result := route(r, types.ProtocolGraphQL, `{"query": "{a}"}`)
	if !result.Success || result.RoutedTo != GraphQLHandler {
		t.Fatalf("a panicking sink must not fail routing, got %+v", result)
	}

	rejected := route(r, types.ProtocolRPC, `{"version": "1.0"}`)
	if rejected.Success || rejected.RoutedTo != types.DestinationNone {
		t.Errorf("expected a rejection, got %+v", rejected)
	}
}

func TestRouteInvalidPayloadIsRecordable(t *testing.T) {
	sink := audit.NewMemorySink()
	r := New(&countingDeliverer{}, sink, log.NewDiscardLogger())
	route(r, types.ProtocolGraphQL, `{"query"`)
	e := sink.Events()[0]
	if !json.Valid(e.RawPayload) {
		t.Fatalf("raw payload must stay valid JSON, got %s", e.RawPayload)
	}
}
