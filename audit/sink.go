// Package audit records one interop event for every processed message.
//
// Sinks must accept concurrent calls to Record. A failing sink never fails
// message processing, callers only log the error.
package audit

import (
	"context"
	"errors"
	"sync"

	"github.com/netrixframework/interop/types"
)

// ErrClosed is returned by sinks which have been closed
var ErrClosed = errors.New("audit: sink closed")

// Sink receives interop events
type Sink interface {
	Record(ctx context.Context, event *types.InteropEvent) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ctx context.Context, event *types.InteropEvent) error

// Record implements Sink
func (f SinkFunc) Record(ctx context.Context, event *types.InteropEvent) error {
	return f(ctx, event)
}

// MultiSink fans an event out to every sink. All sinks are attempted and
// their errors are joined.
type MultiSink []Sink

// Record implements Sink
func (m MultiSink) Record(ctx context.Context, event *types.InteropEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink which holds resources
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// MemorySink keeps events in memory
type MemorySink struct {
	events []types.InteropEvent
	lock   *sync.Mutex
}

// NewMemorySink creates an empty MemorySink
func NewMemorySink() *MemorySink {
	return &MemorySink{
		events: make([]types.InteropEvent, 0),
		lock:   new(sync.Mutex),
	}
}

// Record implements Sink
func (m *MemorySink) Record(_ context.Context, event *types.InteropEvent) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.events = append(m.events, *event)
	return nil
}

// Events returns a copy of the recorded events
func (m *MemorySink) Events() []types.InteropEvent {
	m.lock.Lock()
	defer m.lock.Unlock()
	events := make([]types.InteropEvent, len(m.events))
	copy(events, m.events)
	return events
}

// Len returns the number of recorded events
func (m *MemorySink) Len() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.events)
}
