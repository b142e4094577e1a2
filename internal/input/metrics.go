package input

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const latencySamples = 1000

// Metrics tracks dispatch counters and latency.
type Metrics struct {
	keyEvents        atomic.Uint64
	dispatched       atomic.Uint64
	sequenceMatches  atomic.Uint64
	sequenceTimeouts atomic.Uint64
	handlerErrors    atomic.Uint64
	skippedInInputs  atomic.Uint64
	hookConsumptions atomic.Uint64

	mu               sync.RWMutex
	keyLatencies     []time.Duration
	actionLatencies  []time.Duration
	keyLatencyIdx    int
	actionLatencyIdx int

	peakKeyLatency    atomic.Int64
	peakActionLatency atomic.Int64

	startTime time.Time

	enabled atomic.Bool
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{
		keyLatencies:    make([]time.Duration, latencySamples),
		actionLatencies: make([]time.Duration, latencySamples),
		startTime:       time.Now(),
	}
	m.enabled.Store(true)
	return m
}

// SetEnabled enables or disables metrics collection.
func (m *Metrics) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// IsEnabled returns whether metrics collection is enabled.
func (m *Metrics) IsEnabled() bool {
	return m.enabled.Load()
}

// RecordKeyEvent records a processed keydown and its latency.
func (m *Metrics) RecordKeyEvent(latency time.Duration) {
	if !m.enabled.Load() {
		return
	}
	m.keyEvents.Add(1)
	storePeak(&m.peakKeyLatency, latency)

	m.mu.Lock()
	m.keyLatencies[m.keyLatencyIdx] = latency
	m.keyLatencyIdx = (m.keyLatencyIdx + 1) % latencySamples
	m.mu.Unlock()
}

// RecordAction records one handler invocation and its latency.
func (m *Metrics) RecordAction(latency time.Duration) {
	if !m.enabled.Load() {
		return
	}
	m.dispatched.Add(1)
	storePeak(&m.peakActionLatency, latency)

	m.mu.Lock()
	m.actionLatencies[m.actionLatencyIdx] = latency
	m.actionLatencyIdx = (m.actionLatencyIdx + 1) % latencySamples
	m.mu.Unlock()
}

func storePeak(peak *atomic.Int64, latency time.Duration) {
	ns := latency.Nanoseconds()
	for {
		current := peak.Load()
		if ns <= current || peak.CompareAndSwap(current, ns) {
			return
		}
	}
}

// RecordSequenceMatch records a completed sequence.
func (m *Metrics) RecordSequenceMatch() {
	if m.enabled.Load() {
		m.sequenceMatches.Add(1)
	}
}

// RecordSequenceTimeout records an abandoned sequence.
func (m *Metrics) RecordSequenceTimeout() {
	if m.enabled.Load() {
		m.sequenceTimeouts.Add(1)
	}
}

// RecordHandlerError records a handler that returned an error or panicked.
func (m *Metrics) RecordHandlerError() {
	if m.enabled.Load() {
		m.handlerErrors.Add(1)
	}
}

// RecordSkippedInInput records a keydown that arrived in an editable target.
func (m *Metrics) RecordSkippedInInput() {
	if m.enabled.Load() {
		m.skippedInInputs.Add(1)
	}
}

// RecordHookConsumption records a keydown consumed by a hook.
func (m *Metrics) RecordHookConsumption() {
	if m.enabled.Load() {
		m.hookConsumptions.Add(1)
	}
}

// MetricsSnapshot holds a point-in-time view of metrics.
type MetricsSnapshot struct {
	KeyEvents        uint64
	Dispatched       uint64
	SequenceMatches  uint64
	SequenceTimeouts uint64
	HandlerErrors    uint64
	SkippedInInputs  uint64
	HookConsumptions uint64

	AvgKeyLatency  time.Duration
	MaxKeyLatency  time.Duration
	P99KeyLatency  time.Duration
	PeakKeyLatency time.Duration

	AvgActionLatency  time.Duration
	MaxActionLatency  time.Duration
	P99ActionLatency  time.Duration
	PeakActionLatency time.Duration

	Uptime time.Duration
}

// Snapshot returns a point-in-time view of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	keyLatencies := append([]time.Duration(nil), m.keyLatencies...)
	actionLatencies := append([]time.Duration(nil), m.actionLatencies...)
	start := m.startTime
	m.mu.RUnlock()

	snap := MetricsSnapshot{
		KeyEvents:         m.keyEvents.Load(),
		Dispatched:        m.dispatched.Load(),
		SequenceMatches:   m.sequenceMatches.Load(),
		SequenceTimeouts:  m.sequenceTimeouts.Load(),
		HandlerErrors:     m.handlerErrors.Load(),
		SkippedInInputs:   m.skippedInInputs.Load(),
		HookConsumptions:  m.hookConsumptions.Load(),
		PeakKeyLatency:    time.Duration(m.peakKeyLatency.Load()),
		PeakActionLatency: time.Duration(m.peakActionLatency.Load()),
		Uptime:            time.Since(start),
	}
	snap.AvgKeyLatency, snap.MaxKeyLatency, snap.P99KeyLatency = latencyStats(keyLatencies)
	snap.AvgActionLatency, snap.MaxActionLatency, snap.P99ActionLatency = latencyStats(actionLatencies)
	return snap
}

// latencyStats computes average, max and p99 over the non-zero samples.
func latencyStats(samples []time.Duration) (avg, maxLat, p99 time.Duration) {
	valid := make([]time.Duration, 0, len(samples))
	for _, l := range samples {
		if l > 0 {
			valid = append(valid, l)
		}
	}
	if len(valid) == 0 {
		return 0, 0, 0
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i] < valid[j] })

	var sum time.Duration
	for _, l := range valid {
		sum += l
	}
	avg = sum / time.Duration(len(valid))
	maxLat = valid[len(valid)-1]

	idx := int(float64(len(valid)) * 0.99)
	if idx >= len(valid) {
		idx = len(valid) - 1
	}
	return avg, maxLat, valid[idx]
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.keyEvents.Store(0)
	m.dispatched.Store(0)
	m.sequenceMatches.Store(0)
	m.sequenceTimeouts.Store(0)
	m.handlerErrors.Store(0)
	m.skippedInInputs.Store(0)
	m.hookConsumptions.Store(0)
	m.peakKeyLatency.Store(0)
	m.peakActionLatency.Store(0)

	m.mu.Lock()
	m.keyLatencies = make([]time.Duration, latencySamples)
	m.actionLatencies = make([]time.Duration, latencySamples)
	m.keyLatencyIdx = 0
	m.actionLatencyIdx = 0
	m.startTime = time.Now()
	m.mu.Unlock()
}

// HealthStatus reports whether dispatch is keeping up.
type HealthStatus struct {
	Healthy          bool
	HandlerErrors    uint64
	PeakLatency      time.Duration
	LatencyThreshold time.Duration
	Message          string
}

// HealthCheck compares peak keydown latency against a threshold. Handler
// errors are reported but do not make the engine unhealthy.
func (m *Metrics) HealthCheck(latencyThreshold time.Duration) HealthStatus {
	status := HealthStatus{
		Healthy:          true,
		HandlerErrors:    m.handlerErrors.Load(),
		PeakLatency:      time.Duration(m.peakKeyLatency.Load()),
		LatencyThreshold: latencyThreshold,
		Message:          "healthy",
	}
	if status.PeakLatency > latencyThreshold {
		status.Healthy = false
		status.Message = "latency threshold exceeded"
	}
	return status
}
