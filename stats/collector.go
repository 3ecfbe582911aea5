// Package stats keeps per destination latency and outcome statistics.
package stats

import (
	"context"
	"sort"
	"sync"

	"github.com/netrixframework/interop/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultWindow number of latency samples kept per destination
const DefaultWindow = 1024

// DefaultMaxDestinations number of destinations tracked separately
const DefaultMaxDestinations = 256

const (
	// Unrouted is the bucket of messages rejected before a destination was chosen
	Unrouted = types.DestinationNone
	// Overflow is the bucket of destinations seen after the limit was reached
	Overflow = "other"
)

// DestinationStats summarises the traffic sent to one destination
type DestinationStats struct {
	Destination string                         `json:"destination"`
	Counts      map[types.ProcessingStatus]int `json:"counts"`
	Samples     int                            `json:"samples"`
	MeanMs      float64                        `json:"mean_ms"`
	StdDevMs    float64                        `json:"stddev_ms"`
	P50Ms       float64                        `json:"p50_ms"`
	P95Ms       float64                        `json:"p95_ms"`
	MaxMs       float64                        `json:"max_ms"`
}

type bucket struct {
	lock      sync.Mutex
	latencies []float64
	next      int
	counts    map[types.ProcessingStatus]int
}

// Collector is an audit sink computing statistics from interop events
type Collector struct {
	window          int
	maxDestinations int
	lock            *sync.Mutex
	buckets         *types.Map[string, *bucket]
}

// Option configures a Collector
type Option func(*Collector)

// WithMaxDestinations bounds the number of destinations tracked separately
func WithMaxDestinations(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.maxDestinations = n
		}
	}
}

// NewCollector creates a Collector keeping window latency samples per destination
func NewCollector(window int, opts ...Option) *Collector {
	if window <= 0 {
		window = DefaultWindow
	}
	c := &Collector{
		window:          window,
		maxDestinations: DefaultMaxDestinations,
		lock:            new(sync.Mutex),
		buckets:         types.NewMap[string, *bucket](),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// bucketFor returns the bucket of dest. Once maxDestinations buckets exist,
// new destinations share the Overflow bucket.
func (c *Collector) bucketFor(dest string) *bucket {
	if b, ok := c.buckets.Get(dest); ok {
		return b
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.buckets.Exists(dest) && c.buckets.Size() >= c.maxDestinations {
		dest = Overflow
	}
	return c.buckets.GetOrAdd(dest, func() *bucket {
		return &bucket{counts: make(map[types.ProcessingStatus]int)}
	})
}

// Record implements audit.Sink
func (c *Collector) Record(_ context.Context, event *types.InteropEvent) error {
	dest := Unrouted
	if event.RoutedTo != nil {
		dest = *event.RoutedTo
	}
	b := c.bucketFor(dest)

	b.lock.Lock()
	defer b.lock.Unlock()
	b.counts[event.Status]++
	if event.Status == types.ProcessingRejected {
		return nil
	}
	if len(b.latencies) < c.window {
		b.latencies = append(b.latencies, float64(event.LatencyMs))
	} else {
		b.latencies[b.next] = float64(event.LatencyMs)
		b.next = (b.next + 1) % c.window
	}
	return nil
}

// Snapshot returns the statistics of every destination seen so far, sorted by destination
func (c *Collector) Snapshot() []DestinationStats {
	result := make([]DestinationStats, 0, c.buckets.Size())
	for _, dest := range c.buckets.Keys() {
		b, ok := c.buckets.Get(dest)
		if !ok {
			continue
		}
		result = append(result, b.summary(dest))
	}
	return result
}

func (b *bucket) summary(dest string) DestinationStats {
	b.lock.Lock()
	counts := make(map[types.ProcessingStatus]int, len(b.counts))
	for k, v := range b.counts {
		counts[k] = v
	}
	samples := make([]float64, len(b.latencies))
	copy(samples, b.latencies)
	b.lock.Unlock()

	s := DestinationStats{
		Destination: dest,
		Counts:      counts,
		Samples:     len(samples),
	}
	if len(samples) == 0 {
		return s
	}
	sort.Float64s(samples)
	s.MeanMs = stat.Mean(samples, nil)
	if len(samples) > 1 {
		s.StdDevMs = stat.StdDev(samples, nil)
	}
	s.P50Ms = stat.Quantile(0.5, stat.Empirical, samples, nil)
	s.P95Ms = stat.Quantile(0.95, stat.Empirical, samples, nil)
	s.MaxMs = floats.Max(samples)
	return s
}
