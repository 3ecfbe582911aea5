// Package adapter runs protocol messages through parsing, validation and
// routing. An Adapter is built once at startup and shared by every caller.
package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/netrixframework/interop/log"
	"github.com/netrixframework/interop/parser"
	"github.com/netrixframework/interop/router"
	"github.com/netrixframework/interop/types"
	"github.com/netrixframework/interop/validator"
)

// DefaultWorkers number of messages of a batch processed concurrently
const DefaultWorkers = 8

// Adapter is the parse, validate and route pipeline
type Adapter struct {
	validator *validator.Validator
	router    *router.Router
	workers   int
	ordered   bool
	sequencer *Sequencer
	logger    *log.Logger
}

// Option configures an Adapter
type Option func(*Adapter)

// WithWorkers bounds the concurrency of ProcessBatch
func WithWorkers(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithOrderedSources serializes processing of messages sharing a source system
func WithOrderedSources(ordered bool) Option {
	return func(a *Adapter) {
		a.ordered = ordered
	}
}

// New creates an Adapter validating with v and routing through r
func New(v *validator.Validator, r *router.Router, logger *log.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		validator: v,
		router:    r,
		workers:   DefaultWorkers,
		logger:    logger.With(log.LogParams{"service": "adapter"}),
	}
	for _, o := range opts {
		o(a)
	}
	if a.ordered {
		a.sequencer = NewSequencer(a.process)
	}
	return a
}

// Parse stamps and parses msg without validating or routing it
func (a *Adapter) Parse(msg *types.ProtocolMessage) (*types.ProtocolMessage, *types.ParsedMessage) {
	msg = stamp(msg)
	return msg, parser.Parse(msg)
}

// Validate parses and validates msg without routing it
func (a *Adapter) Validate(msg *types.ProtocolMessage) (*types.ParsedMessage, *types.ValidationResult) {
	_, parsed := a.Parse(msg)
	return parsed, a.validator.Validate(parsed)
}

// Process runs msg through the full pipeline. It always returns a result and
// records exactly one interop event.
func (a *Adapter) Process(ctx context.Context, msg *types.ProtocolMessage) *types.RouteResult {
	if a.sequencer != nil {
		return a.sequencer.Process(ctx, msg)
	}
	return a.process(ctx, msg)
}

func (a *Adapter) process(ctx context.Context, msg *types.ProtocolMessage) *types.RouteResult {
	msg, parsed := a.Parse(msg)
	validation := a.validator.Validate(parsed)
	result := a.router.Route(ctx, msg, parsed, validation)

	a.logger.With(log.LogParams{
		"message_id":  msg.ID,
		"protocol":    msg.Protocol,
		"source":      msg.SourceSystem,
		"validation":  validation.Status,
		"routed_to":   result.RoutedTo,
		"success":     result.Success,
		"latency_ms":  result.LatencyMs,
		"warnings":    len(validation.Warnings),
		"parse_valid": parsed.IsValid,
	}).Debug("Processed message")
	return result
}

// ProcessBatch processes msgs concurrently and returns the results in input order.
// With ordered sources, messages of one source system are processed in input order.
func (a *Adapter) ProcessBatch(ctx context.Context, msgs []*types.ProtocolMessage) []*types.RouteResult {
	results := make([]*types.RouteResult, len(msgs))
	if len(msgs) == 0 {
		return results
	}
	// Each group is processed sequentially by one worker
	groups := a.groups(msgs)
	work := make(chan []int, len(groups))
	for _, g := range groups {
		work <- g
	}
	close(work)

	workers := a.workers
	if workers > len(groups) {
		workers = len(groups)
	}
	wg := new(sync.WaitGroup)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := range work {
				for _, idx := range g {
					results[idx] = a.safeProcess(ctx, msgs[idx])
				}
			}
		}()
	}
	wg.Wait()
	return results
}

func (a *Adapter) groups(msgs []*types.ProtocolMessage) [][]int {
	if !a.ordered {
		groups := make([][]int, len(msgs))
		for i := range msgs {
			groups[i] = []int{i}
		}
		return groups
	}
	bySource := make(map[string]int)
	groups := make([][]int, 0)
	for i, m := range msgs {
		source := ""
		if m != nil {
			source = m.SourceSystem
		}
		g, ok := bySource[source]
		if !ok {
			g = len(groups)
			bySource[source] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// safeProcess keeps a panic in one message from taking down the batch
func (a *Adapter) safeProcess(ctx context.Context, msg *types.ProtocolMessage) (result *types.RouteResult) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.With(log.LogParams{"panic": fmt.Sprint(r)}).Error("Processing panicked")
			result = &types.RouteResult{
				Success:  false,
				RoutedTo: types.DestinationError,
				Error:    fmt.Sprintf("processing failed: %v", r),
			}
		}
	}()
	return a.Process(ctx, msg)
}

func stamp(msg *types.ProtocolMessage) *types.ProtocolMessage {
	if msg == nil {
		return (types.ProtocolMessage{}).Stamped()
	}
	return msg.Stamped()
}
