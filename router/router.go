// Package router hands validated messages to their destination and records
// the outcome of every message in the audit sink.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/netrixframework/interop/audit"
	"github.com/netrixframework/interop/log"
	"github.com/netrixframework/interop/types"
)

// DefaultTimeout bounds a single delivery when no timeout is configured
const DefaultTimeout = 10 * time.Second

var (
	// ErrDeliveryTimeout is returned when a destination does not answer in time
	ErrDeliveryTimeout = errors.New("delivery timed out")
	// ErrDeliveryPanic is returned when a destination handler panics
	ErrDeliveryPanic = errors.New("destination handler panicked")
)

// Deliverer hands a message to a named destination and returns its response.
// Errors are reported as return values.
type Deliverer interface {
	Deliver(ctx context.Context, destination string, parsed *types.ParsedMessage) (json.RawMessage, error)
}

// DelivererFunc adapts a function to the Deliverer interface
type DelivererFunc func(ctx context.Context, destination string, parsed *types.ParsedMessage) (json.RawMessage, error)

// Deliver implements Deliverer
func (f DelivererFunc) Deliver(ctx context.Context, destination string, parsed *types.ParsedMessage) (json.RawMessage, error) {
	return f(ctx, destination, parsed)
}

// Router routes validated messages. It never retries a failed delivery.
type Router struct {
	deliverer Deliverer
	sink      audit.Sink
	timeout   time.Duration
	logger    *log.Logger
}

// Option configures a Router
type Option func(*Router)

// WithTimeout bounds every delivery by d
func WithTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New creates a Router delivering through deliverer and recording to sink
func New(deliverer Deliverer, sink audit.Sink, logger *log.Logger, opts ...Option) *Router {
	r := &Router{
		deliverer: deliverer,
		sink:      sink,
		timeout:   DefaultTimeout,
		logger:    logger.With(log.LogParams{"service": "router"}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Route delivers an accepted message or rejects it. Exactly one interop event
// is recorded for every call and a result is always returned.
func (r *Router) Route(ctx context.Context, msg *types.ProtocolMessage, parsed *types.ParsedMessage, validation *types.ValidationResult) *types.RouteResult {
	start := time.Now()
	if msg == nil {
		msg = &types.ProtocolMessage{}
	}
	event := newEvent(msg, parsed, validation)

	if validation == nil || validation.Status != types.StatusValid {
		result := &types.RouteResult{
			Success:   false,
			RoutedTo:  types.DestinationNone,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     rejectionReason(validation),
		}
		event.Status = types.ProcessingRejected
		event.Error = result.Error
		event.LatencyMs = result.LatencyMs
		r.record(ctx, event)
		return result
	}

	if parsed == nil {
		return r.fail(ctx, event, start, fmt.Errorf("%w: message was not parsed", ErrNoDestination))
	}
	dest, err := Destination(msg.Protocol, parsed.Data)
	if err != nil {
		return r.fail(ctx, event, start, err)
	}
	event.RoutedTo = &dest

	r.logger.With(log.LogParams{
		"message_id":  msg.ID,
		"destination": dest,
	}).Debug("Delivering message")
	resp, err := r.deliver(ctx, dest, parsed)
	if err != nil {
		return r.fail(ctx, event, start, err)
	}
	resp = rawJSON(resp)

	latency := time.Since(start).Milliseconds()
	processedAt := time.Now().UTC()
	event.Status = types.ProcessingCompleted
	event.Response = resp
	event.LatencyMs = latency
	event.ProcessedAt = &processedAt
	r.record(ctx, event)

	return &types.RouteResult{
		Success:   true,
		RoutedTo:  dest,
		LatencyMs: latency,
		Response:  resp,
	}
}

func (r *Router) fail(ctx context.Context, event *types.InteropEvent, start time.Time, err error) *types.RouteResult {
	result := &types.RouteResult{
		Success:   false,
		RoutedTo:  types.DestinationError,
		LatencyMs: time.Since(start).Milliseconds(),
		Error:     err.Error(),
	}
	event.Status = types.ProcessingFailed
	event.Error = result.Error
	event.LatencyMs = result.LatencyMs
	r.record(ctx, event)
	return result
}

// deliver runs the handoff under the router timeout. A deliverer that ignores
// its context is abandoned once the deadline passes.
func (r *Router) deliver(ctx context.Context, dest string, parsed *types.ParsedMessage) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		resp json.RawMessage
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrDeliveryPanic, rec)}
			}
		}()
		resp, err := r.deliverer.Deliver(ctx, dest, parsed)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case o := <-done:
		if errors.Is(o.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %s", ErrDeliveryTimeout, r.timeout, o.err)
		}
		return o.resp, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrDeliveryTimeout, r.timeout)
		}
		return nil, ctx.Err()
	}
}

// record writes the event. Audit failures are logged and otherwise ignored.
func (r *Router) record(ctx context.Context, event *types.InteropEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.With(log.LogParams{
				"event_id": event.ID,
				"panic":    fmt.Sprint(rec),
			}).Error("Audit sink panicked")
		}
	}()
	if err := r.sink.Record(context.WithoutCancel(ctx), event); err != nil {
		r.logger.With(log.LogParams{
			"event_id":   event.ID,
			"message_id": event.MessageID,
			"error":      err.Error(),
		}).Error("Failed to record interop event")
	}
}

func rejectionReason(validation *types.ValidationResult) string {
	if validation == nil {
		return "message was not validated"
	}
	if len(validation.Errors) == 0 {
		return fmt.Sprintf("validation status %s", validation.Status)
	}
	return strings.Join(validation.Errors, "; ")
}

func newEvent(msg *types.ProtocolMessage, parsed *types.ParsedMessage, validation *types.ValidationResult) *types.InteropEvent {
	event := &types.InteropEvent{
		ID:               uuid.NewString(),
		MessageID:        msg.ID,
		Protocol:         msg.Protocol,
		Direction:        msg.Direction,
		SourceSystem:     msg.SourceSystem,
		TargetSystem:     msg.TargetSystem,
		RawPayload:       rawJSON(msg.Payload),
		TrustScore:       msg.TrustScore,
		ValidationErrors: []string{},
		Status:           types.ProcessingInProgress,
		CreatedAt:        time.Now().UTC(),
	}
	if parsed != nil && parsed.Data != nil {
		if b, err := json.Marshal(parsed.Data); err == nil {
			event.ParsedData = b
		}
	}
	if validation != nil {
		event.ValidationStatus = validation.Status
		event.ValidationErrors = append(event.ValidationErrors, validation.Errors...)
	}
	return event
}

// rawJSON keeps a payload which is not valid JSON as a JSON string so that
// the event stays encodable
func rawJSON(b json.RawMessage) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	if json.Valid(b) {
		return b
	}
	quoted, _ := json.Marshal(string(b))
	return quoted
}
