package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/netrixframework/interop/config"
	"github.com/netrixframework/interop/log"
	"github.com/netrixframework/interop/router"
	"github.com/netrixframework/interop/types"
)

var (
	// ErrDestUnknown is returned when a message is asked to be dispatched to an unknown destination
	ErrDestUnknown = errors.New("destination unknown")
	// ErrFailedMarshal is returned when the delivery could not be marshalled
	ErrFailedMarshal = errors.New("failed to marshal data")
	// ErrSendFailed is returned when the request could not be created or sent
	ErrSendFailed = errors.New("sending failed")
	// ErrResponseReadFail is returned when the response to the request could not be read
	ErrResponseReadFail = errors.New("failed to read response")
	// ErrBadResponse is returned when the request did not receive a 2** response
	ErrBadResponse = errors.New("bad response")
	// ErrUnknownHandlerType is returned for a destination config with an unsupported type
	ErrUnknownHandlerType = errors.New("unknown handler type")
)

// Delivery is the record handed to a downstream system
type Delivery struct {
	ID           string          `json:"id" msgpack:"id"`
	Destination  string          `json:"destination" msgpack:"destination"`
	Protocol     types.Protocol  `json:"protocol" msgpack:"protocol"`
	SourceSystem string          `json:"source_system" msgpack:"source_system"`
	Data         json.RawMessage `json:"data" msgpack:"data"`
	ReceivedAt   time.Time       `json:"received_at" msgpack:"received_at"`
}

// Handler receives messages for one destination
type Handler interface {
	Handle(ctx context.Context, delivery *Delivery) (json.RawMessage, error)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, delivery *Delivery) (json.RawMessage, error)

// Handle implements Handler
func (f HandlerFunc) Handle(ctx context.Context, delivery *Delivery) (json.RawMessage, error) {
	return f(ctx, delivery)
}

// Dispatcher maps destination identifiers to handlers. It implements router.Deliverer.
type Dispatcher struct {
	handlers *types.Map[string, Handler]
	logger   *log.Logger
}

var _ router.Deliverer = (*Dispatcher)(nil)

// NewDispatcher instantiates a new instance of Dispatcher with an empty table
func NewDispatcher(logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: types.NewMap[string, Handler](),
		logger:   logger.With(log.LogParams{"service": "dispatcher"}),
	}
}

// Register adds or replaces the handler of a destination
func (d *Dispatcher) Register(id string, h Handler) {
	d.handlers.Add(id, h)
}

// Destinations returns the registered destination identifiers, sorted
func (d *Dispatcher) Destinations() []string {
	return d.handlers.Keys()
}

// Handler returns the handler serving dest. `rpc-handler:<method>` falls back to `rpc-handler`.
func (d *Dispatcher) Handler(dest string) (Handler, bool) {
	if h, ok := d.handlers.Get(dest); ok {
		return h, true
	}
	if i := strings.IndexByte(dest, ':'); i > 0 {
		return d.handlers.Get(dest[:i])
	}
	return nil, false
}

// Deliver should be called to hand a parsed message to a destination
func (d *Dispatcher) Deliver(ctx context.Context, dest string, parsed *types.ParsedMessage) (json.RawMessage, error) {
	h, ok := d.Handler(dest)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDestUnknown, dest)
	}
	delivery, err := NewDelivery(dest, parsed)
	if err != nil {
		return nil, err
	}
	d.logger.With(log.LogParams{
		"delivery_id": delivery.ID,
		"destination": dest,
	}).Debug("Dispatching message")
	return h.Handle(ctx, delivery)
}

// NewDelivery builds the downstream record of a parsed message
func NewDelivery(dest string, parsed *types.ParsedMessage) (*Delivery, error) {
	delivery := &Delivery{
		ID:           newID(),
		Destination:  dest,
		Protocol:     parsed.Protocol,
		SourceSystem: parsed.Metadata.SourceSystem,
		ReceivedAt:   parsed.Metadata.ReceivedAt,
	}
	if parsed.Data != nil {
		b, err := json.Marshal(parsed.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrFailedMarshal, err)
		}
		delivery.Data = b
	}
	return delivery, nil
}

// Close releases the resources held by handlers
func (d *Dispatcher) Close() error {
	var errs []error
	for _, h := range d.handlers.ToMap() {
		if c, ok := h.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// DefaultDestinations are served by echo handlers when no destination is configured
func DefaultDestinations() []string {
	return []string{
		router.RPCHandlerPrefix,
		router.GraphQLHandler,
		router.MaritimeTracking,
		router.EmergencyResponse,
		router.TacticalCommand,
	}
}

// FromConfig builds the dispatch table from the destination configs.
// An empty list yields echo handlers for DefaultDestinations.
func FromConfig(ctx context.Context, dests []config.DestinationConfig, logger *log.Logger) (*Dispatcher, error) {
	d := NewDispatcher(logger)
	if len(dests) == 0 {
		for _, id := range DefaultDestinations() {
			d.Register(id, EchoHandler{})
		}
		return d, nil
	}
	for _, c := range dests {
		h, err := newHandler(ctx, c)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("destination %s: %w", c.ID, err)
		}
		d.Register(c.ID, h)
	}
	return d, nil
}

func newHandler(ctx context.Context, c config.DestinationConfig) (Handler, error) {
	switch c.Type {
	case "http":
		return NewHTTPHandler(c.Addr, c.Path), nil
	case "redis":
		return DialRedisHandler(ctx, c.Addr, c.Queue)
	case "echo", "":
		return EchoHandler{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownHandlerType, c.Type)
}
