package replication

import (
	"time"

	"minigolf/server/internal/sim"
	"minigolf/server/internal/telemetry"
)

// Metric keys surfaced by the replicator.
const (
	MetricFullSnapshots = "replication_full_snapshots_total"
	MetricDeltas        = "replication_deltas_total"
	MetricEvictions     = "replication_history_evictions_total"
)

// Update is what one client receives for one tick. Exactly one of Patches
// or Snapshot is meaningful, selected by Full.
type Update struct {
	Tick     uint64
	Baseline uint64
	Full     bool
	Patches  []sim.Patch
	Snapshot sim.Snapshot
}

// Replicator owns the patch history and per-client baselines for one
// session. Record and ForClient run on the tick goroutine; Ack and Drop may
// be called from connection readers.
type Replicator struct {
	history   *History
	baselines *Baselines
	metrics   telemetry.Metrics
}

// NewReplicator builds a replicator retaining horizon ticks of patches.
func NewReplicator(horizon int, metrics telemetry.Metrics) *Replicator {
	if metrics == nil {
		metrics = telemetry.NopMetrics{}
	}
	return &Replicator{
		history:   NewHistory(horizon),
		baselines: NewBaselines(),
		metrics:   metrics,
	}
}

// Record stores a tick's patches into the history.
func (r *Replicator) Record(tick uint64, patches []sim.Patch, now time.Time) {
	result := r.history.Record(tick, patches, now)
	if len(result.Evicted) > 0 {
		r.metrics.Add(MetricEvictions, uint64(len(result.Evicted)))
	}
}

// Ack advances a client's baseline. Stale acks are ignored.
func (r *Replicator) Ack(clientID string, tick uint64) bool {
	return r.baselines.Ack(clientID, tick)
}

// Drop forgets a client's baseline.
func (r *Replicator) Drop(clientID string) {
	r.baselines.Drop(clientID)
}

// ForClient builds the update for one client at the given tick. snapshot is
// evaluated lazily so the full state is only rendered when the delta path
// fails.
func (r *Replicator) ForClient(clientID string, tick uint64, snapshot func() sim.Snapshot) Update {
	baseline, ok := r.baselines.Baseline(clientID)
	if ok && baseline <= tick {
		patches, retained := r.history.Since(baseline)
		if retained {
			r.metrics.Add(MetricDeltas, 1)
			return Update{Tick: tick, Baseline: baseline, Patches: patches}
		}
	}
	r.metrics.Add(MetricFullSnapshots, 1)
	return Update{Tick: tick, Full: true, Snapshot: snapshot()}
}

// Window reports the retained history range.
func (r *Replicator) Window() (size int, oldest, newest uint64) {
	return r.history.Window()
}
