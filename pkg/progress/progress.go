package progress

import (
	"sync"
	"sync/atomic"

	"foodcatalog_api/pkg/logger"
)

// Sink accepts fractional progress values in [0, 1]. Sampling and
// de-duplication are the consumer's concern.
type Sink interface {
	Report(fraction float64)
}

// Func adapts a function to the Sink interface.
type Func func(float64)

func (f Func) Report(fraction float64) { f(fraction) }

// Discard drops every report.
var Discard Sink = Func(func(float64) {})

// Monotonic serializes delivery to the wrapped sink and drops any report
// that does not increase the last delivered value, so the consumer observes
// a non-decreasing sequence even when producers report concurrently.
type Monotonic struct {
	mu   sync.Mutex
	last float64
	sink Sink
}

func NewMonotonic(sink Sink) *Monotonic {
	return &Monotonic{sink: sink}
}

func (m *Monotonic) Report(fraction float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fraction <= m.last {
		return
	}
	m.last = fraction
	m.sink.Report(fraction)
}

// Mean aggregates the fractional progress of n independent parts into their
// equally weighted mean. Parts only move forward: a report lower than the
// part's current value is ignored, so the mean stays monotonic.
type Mean struct {
	mu    sync.Mutex
	parts []float64
	sink  Sink
}

func NewMean(sink Sink, n int) *Mean {
	return &Mean{parts: make([]float64, n), sink: sink}
}

// Child returns the sink for part i.
func (m *Mean) Child(i int) Sink {
	return Func(func(fraction float64) {
		m.report(i, fraction)
	})
}

func (m *Mean) report(i int, fraction float64) {
	if fraction > 1 {
		fraction = 1
	}

	// delivery stays under the lock: an unlocked Report could overtake a
	// larger mean computed by a concurrent part and arrive out of order
	m.mu.Lock()
	defer m.mu.Unlock()
	if fraction > m.parts[i] {
		m.parts[i] = fraction
	}
	var sum float64
	for _, p := range m.parts {
		sum += p
	}
	m.sink.Report(sum / float64(len(m.parts)))
}

// LogSink logs whole-percent progress, skipping repeats of the last value.
type LogSink struct {
	log   logger.Logger
	label string
	last  atomic.Int32
}

func NewLogSink(log logger.Logger, label string) *LogSink {
	s := &LogSink{log: log, label: label}
	s.last.Store(-1)
	return s
}

func (s *LogSink) Report(fraction float64) {
	percent := int32(fraction * 100)
	if previous := s.last.Swap(percent); percent != previous {
		s.log.Log("%s progress: %d%%", s.label, percent)
	}
}
