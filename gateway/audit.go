package gateway

import (
	"sync"

	"github.com/relaygate/gateway/model"
)

// AuditSink records one AuditRecord per terminal request outcome,
// independent of the tracing span so audit history survives even when
// the tracing backend is unreachable. Grounded on the structured
// per-event log calls in core/redis_registry.go (logHeartbeatSummary)
// — here specialized to a one-shot record instead of a periodic
// summary.
type AuditSink interface {
	Record(model.AuditRecord)
}

// InMemoryAuditLog is a bounded in-memory AuditSink for tests and demo
// runs: a ring buffer keeping at most capacity entries.
type InMemoryAuditLog struct {
	mu       sync.Mutex
	capacity int
	records  []model.AuditRecord
}

var _ AuditSink = (*InMemoryAuditLog)(nil)

// NewInMemoryAuditLog builds a log retaining at most capacity records.
func NewInMemoryAuditLog(capacity int) *InMemoryAuditLog {
	if capacity <= 0 {
		capacity = 1000
	}
	return &InMemoryAuditLog{capacity: capacity}
}

// Record implements AuditSink.
func (l *InMemoryAuditLog) Record(rec model.AuditRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	if len(l.records) > l.capacity {
		l.records = l.records[len(l.records)-l.capacity:]
	}
}

// Records returns a snapshot of everything retained, oldest first.
func (l *InMemoryAuditLog) Records() []model.AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.AuditRecord, len(l.records))
	copy(out, l.records)
	return out
}

// noOpAuditLog discards every record, used when the caller doesn't
// wire an AuditSink.
type noOpAuditLog struct{}

func (noOpAuditLog) Record(model.AuditRecord) {}
