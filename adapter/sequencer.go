package adapter

import (
	"context"
	"sync"

	"github.com/netrixframework/interop/types"
)

// ProcessFunc processes one message
type ProcessFunc func(ctx context.Context, msg *types.ProtocolMessage) *types.RouteResult

type sourceLock struct {
	sync.Mutex
	// refs goroutines holding or waiting for the lock, guarded by Sequencer.lock
	refs int
}

// Sequencer serializes processing per source system. Messages of different
// sources are still processed concurrently. A source is forgotten once no
// message of it is in flight.
type Sequencer struct {
	process ProcessFunc
	lock    *sync.Mutex
	locks   *types.Map[string, *sourceLock]
}

// NewSequencer wraps process
func NewSequencer(process ProcessFunc) *Sequencer {
	return &Sequencer{
		process: process,
		lock:    new(sync.Mutex),
		locks:   types.NewMap[string, *sourceLock](),
	}
}

// Process waits for earlier messages of the same source to finish
func (s *Sequencer) Process(ctx context.Context, msg *types.ProtocolMessage) *types.RouteResult {
	source := ""
	if msg != nil {
		source = msg.SourceSystem
	}
	l := s.acquire(source)
	l.Lock()
	defer s.release(source, l)
	return s.process(ctx, msg)
}

func (s *Sequencer) acquire(source string) *sourceLock {
	s.lock.Lock()
	defer s.lock.Unlock()
	l := s.locks.GetOrAdd(source, func() *sourceLock { return new(sourceLock) })
	l.refs++
	return l
}

func (s *Sequencer) release(source string, l *sourceLock) {
	l.Unlock()
	s.lock.Lock()
	defer s.lock.Unlock()
	l.refs--
	if l.refs == 0 {
		s.locks.Remove(source)
	}
}

// Sources returns the source systems with messages in flight
func (s *Sequencer) Sources() []string {
	return s.locks.Keys()
}

// InFlight reports whether a message of source is being processed or waiting
func (s *Sequencer) InFlight(source string) bool {
	return s.locks.Exists(source)
}
