// Package reliability implements the Reliability Tracker: per-
// (provider,model) online stats (EMA latency, success rate, recent-
// error counter) mutated under a fine-grained per-key lock, the same
// sharded-map-of-locks idiom used for per-provider circuit breaker
// state in resilience/circuit_breaker.go.
package reliability

import (
	"sync"

	"github.com/relaygate/gateway/model"
)

const (
	latencyEMAAlpha  = 0.1
	recentErrorsCeil = 10
	minSuccessRate   = 0.1
)

type entry struct {
	mu     sync.Mutex
	record model.ReliabilityRecord
}

// Tracker holds one entry per (provider, model) key, growing safely
// under concurrent insertion via sync.Map, with per-key mutation
// serialized by that key's own mutex.
type Tracker struct {
	entries sync.Map // key string -> *entry
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

func key(provider, modelName string) string {
	return provider + "\x00" + modelName
}

func (t *Tracker) entryFor(provider, modelName string) *entry {
	k := key(provider, modelName)
	if v, ok := t.entries.Load(k); ok {
		return v.(*entry)
	}
	e := &entry{record: model.ReliabilityRecord{SuccessRate: 1.0}}
	actual, _ := t.entries.LoadOrStore(k, e)
	return actual.(*entry)
}

// Record updates the (provider,model) record atomically:
// totalRequests += 1; avgLatencyMs is an EMA toward latencyMs;
// recentErrors decrements on success (floored at 0) and increments on
// failure (ceiled at 10); successRate = max(0.1, 1 - recentErrors/10).
func (t *Tracker) Record(provider, modelName string, success bool, latencyMs float64) {
	e := t.entryFor(provider, modelName)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record.TotalRequests++
	e.record.AvgLatencyMs = (1-latencyEMAAlpha)*e.record.AvgLatencyMs + latencyEMAAlpha*latencyMs

	if success {
		if e.record.RecentErrors > 0 {
			e.record.RecentErrors--
		}
	} else {
		if e.record.RecentErrors < recentErrorsCeil {
			e.record.RecentErrors++
		}
	}

	rate := 1 - float64(e.record.RecentErrors)/recentErrorsCeil
	if rate < minSuccessRate {
		rate = minSuccessRate
	}
	e.record.SuccessRate = rate
}

// Get returns a snapshot of the (provider,model) record. Absent keys
// return the default record (successRate 1.0), matching the router's
// "default 1.0 when absent" rule for reliabilityScore.
func (t *Tracker) Get(provider, modelName string) model.ReliabilityRecord {
	k := key(provider, modelName)
	v, ok := t.entries.Load(k)
	if !ok {
		return model.ReliabilityRecord{SuccessRate: 1.0}
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record
}
