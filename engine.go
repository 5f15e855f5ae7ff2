package authgate

import (
	"log/slog"
	"time"

	"github.com/registryops/authgate/docstore"
	"github.com/registryops/authgate/token"
)

// Engine is the authentication and record-update core. Construct one
// through [Builder]; the zero value is not usable. All methods are safe
// for concurrent use.
type Engine struct {
	config     Config
	store      docstore.Store
	classifier *Classifier
	mailer     Mailer
	tokens     *token.Manager
	audit      *auditDispatcher
	metrics    *Metrics
	logger     *slog.Logger
	now        Clock
}

// Close stops the audit dispatcher, draining queued events. The engine
// must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports audit events shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current metric values for export.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeLatency(id MetricID, start time.Time) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

// ready reports whether the engine has its required collaborators.
func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.classifier != nil && e.now != nil
}
