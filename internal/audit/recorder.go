package audit

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"workflow-governance/backend/internal/logging"
	"workflow-governance/backend/pkg/models"
)

// DefaultQueueSize bounds the Dispatcher queue when none is configured.
const DefaultQueueSize = 256

// Writer persists a single entry. *Log implements it.
type Writer interface {
	Write(ctx context.Context, e models.AuditEntry) (models.AuditEntry, error)
}

// Recorder accepts entries on behalf of a mutation. Implementations never
// report failures back to the caller.
type Recorder interface {
	Record(ctx context.Context, e models.AuditEntry)
}

// Metrics counts ledger outcomes.
type Metrics struct {
	Written prometheus.Counter
	Failed  prometheus.Counter
	Dropped prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg, if given.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Written: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "governance",
			Subsystem: "audit",
			Name:      "entries_written_total",
			Help:      "Audit entries persisted to the ledger",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "governance",
			Subsystem: "audit",
			Name:      "entries_failed_total",
			Help:      "Audit entries the ledger failed to persist",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "governance",
			Subsystem: "audit",
			Name:      "entries_dropped_total",
			Help:      "Audit entries discarded because the queue was full or closed",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Written, m.Failed, m.Dropped)
	}
	return m
}

// SyncRecorder writes each entry before returning. Failures are logged.
type SyncRecorder struct {
	w       Writer
	logger  *logging.Logger
	metrics *Metrics
}

// NewSyncRecorder creates a synchronous recorder.
func NewSyncRecorder(w Writer, logger *logging.Logger, metrics *Metrics) *SyncRecorder {
	if logger == nil {
		logger = logging.NewDiscard()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &SyncRecorder{w: w, logger: logger, metrics: metrics}
}

// Record implements Recorder.
func (r *SyncRecorder) Record(ctx context.Context, e models.AuditEntry) {
	write(ctx, r.w, e, r.logger, r.metrics)
}

// Dispatcher writes entries on a background worker. Record never blocks:
// when the queue is full the entry is dropped and counted.
type Dispatcher struct {
	w       Writer
	logger  *logging.Logger
	metrics *Metrics

	mu     sync.Mutex
	closed bool
	queue  chan job
	done   chan struct{}
}

type job struct {
	ctx   context.Context
	entry models.AuditEntry
}

// NewDispatcher starts a dispatcher with a queue of queueSize entries.
func NewDispatcher(w Writer, logger *logging.Logger, metrics *Metrics, queueSize int) *Dispatcher {
	if logger == nil {
		logger = logging.NewDiscard()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &Dispatcher{
		w:       w,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan job, queueSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Record implements Recorder. The entry outlives ctx cancellation.
func (d *Dispatcher) Record(ctx context.Context, e models.AuditEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.drop(e, "dispatcher closed")
		return
	}
	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), entry: e}:
	default:
		d.drop(e, "queue full")
	}
}

func (d *Dispatcher) drop(e models.AuditEntry, reason string) {
	d.metrics.Dropped.Inc()
	d.logger.Warn("audit entry dropped", "reason", reason, "workflow_id", e.WorkflowID, "action", e.Action)
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for j := range d.queue {
		write(j.ctx, d.w, j.entry, d.logger, d.metrics)
	}
}

// Close stops accepting entries and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

func write(ctx context.Context, w Writer, e models.AuditEntry, logger *logging.Logger, m *Metrics) {
	if _, err := w.Write(ctx, e); err != nil {
		m.Failed.Inc()
		logger.Error("failed to write audit entry", "workflow_id", e.WorkflowID, "action", e.Action, "error", err)
		return
	}
	m.Written.Inc()
}
