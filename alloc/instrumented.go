package alloc

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	koolrt "github.com/wippyai/kool-runtime"
)

// Metrics holds the prometheus collectors shared by instrumented allocators.
type Metrics struct {
	allocations *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	failures    *prometheus.CounterVec
	sizes       *prometheus.HistogramVec
}

// NewMetrics creates the allocator collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kool",
			Name:      "heap_allocations_total",
			Help:      "Total number of heap allocations.",
		}, []string{"allocator"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kool",
			Name:      "heap_allocated_bytes_total",
			Help:      "Total bytes handed out by heap allocators.",
		}, []string{"allocator"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kool",
			Name:      "heap_allocation_failures_total",
			Help:      "Total number of allocations that could not be satisfied.",
		}, []string{"allocator"}),
		// Records are mostly short strings: 8 bytes to 512KiB.
		sizes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kool",
			Name:      "heap_allocation_size_bytes",
			Help:      "Size of individual heap allocations.",
			Buckets:   prometheus.ExponentialBuckets(8, 4, 9),
		}, []string{"allocator"}),
	}
	if reg != nil {
		reg.MustRegister(m.allocations, m.bytes, m.failures, m.sizes)
	}
	return m
}

// Allocations returns the allocation counter, labeled by allocator.
func (m *Metrics) Allocations() *prometheus.CounterVec { return m.allocations }

// Bytes returns the allocated bytes counter, labeled by allocator.
func (m *Metrics) Bytes() *prometheus.CounterVec { return m.bytes }

// Failures returns the failed allocation counter, labeled by allocator.
func (m *Metrics) Failures() *prometheus.CounterVec { return m.failures }

// Instrument returns an allocator that records metrics for a under name.
func Instrument(name string, a koolrt.Allocator, m *Metrics) koolrt.Allocator {
	return &instrumented{
		name:        name,
		next:        a,
		allocations: m.allocations.WithLabelValues(name),
		bytes:       m.bytes.WithLabelValues(name),
		failures:    m.failures.WithLabelValues(name),
		sizes:       m.sizes.WithLabelValues(name),
	}
}

type instrumented struct {
	next                         koolrt.Allocator
	allocations, bytes, failures prometheus.Counter
	sizes                        prometheus.Observer
	name                         string
}

func (i *instrumented) Alloc(size uint32) (uint32, error) {
	ptr, err := i.next.Alloc(size)
	if err != nil {
		i.failures.Inc()
		Logger().Debug("allocation failed",
			zap.String("allocator", i.name),
			zap.Uint32("size", size),
			zap.Error(err))
		return 0, err
	}
	i.allocations.Inc()
	i.bytes.Add(float64(size))
	i.sizes.Observe(float64(size))
	return ptr, nil
}

// SetContext forwards to the wrapped allocator when it takes one.
func (i *instrumented) SetContext(ctx context.Context) {
	if cs, ok := i.next.(ContextSetter); ok {
		cs.SetContext(ctx)
	}
}

// Stats forwards to the wrapped allocator when it keeps statistics.
func (i *instrumented) Stats() Stats {
	if sp, ok := i.next.(StatsProvider); ok {
		return sp.Stats()
	}
	return Stats{}
}
