package authgate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a single counter or histogram maintained by the engine.
type MetricID uint16

const (
	// MetricLoginSuccess counts fully verified password logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected password attempts.
	MetricLoginFailure
	// MetricLoginLocked counts attempts refused due to an active lockout.
	MetricLoginLocked
	// MetricLoginAutoUnlock counts expired lockouts cleared during login.
	MetricLoginAutoUnlock
	// MetricLoginNotActive counts attempts against non-active accounts.
	MetricLoginNotActive
	// MetricOTPIssued counts one-time codes generated and recorded.
	MetricOTPIssued
	// MetricOTPDeliveryFailed counts email channel failures during issuance.
	MetricOTPDeliveryFailed
	// MetricOTPVerified counts successful code verifications.
	MetricOTPVerified
	// MetricOTPRejected counts failed code verifications.
	MetricOTPRejected
	// MetricPatchApplied counts successful optimistic-concurrency updates.
	MetricPatchApplied
	// MetricPatchConflict counts updates refused due to a version conflict.
	MetricPatchConflict
	// MetricPatchRejected counts updates refused before any write.
	MetricPatchRejected
	// MetricVerifyLatency is the password verification latency histogram.
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics stores lock-free counters and the password-verify latency
// histogram. A nil or disabled Metrics is safe to use; every method
// becomes a no-op.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// NewMetrics creates a Metrics registry from configuration.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are live.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one latency sample. Only MetricVerifyLatency carries a
// histogram; other IDs are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of a counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of all engine metrics. Histogram
// slices hold non-cumulative per-bucket counts.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// Snapshot copies the current metric values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
