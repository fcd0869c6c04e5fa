package replication

import (
	"reflect"
	"testing"
	"time"

	"minigolf/server/internal/sim"
)

func motionPatch(player string, tick uint64) sim.Patch {
	return sim.Patch{
		Kind:     sim.PatchBallMotion,
		EntityID: player,
		Payload:  sim.BallMotionPayload{AtRest: tick%2 == 0},
	}
}

func TestBaselineAcksAreMonotonic(t *testing.T) {
	b := NewBaselines()

	if !b.Ack("c1", 5) {
		t.Fatalf("first ack rejected")
	}
	if b.Ack("c1", 3) {
		t.Fatalf("stale ack advanced baseline")
	}
	if b.Ack("c1", 5) {
		t.Fatalf("duplicate ack advanced baseline")
	}
	if tick, ok := b.Baseline("c1"); !ok || tick != 5 {
		t.Fatalf("baseline = %d,%v, want 5,true", tick, ok)
	}
	if !b.Ack("c1", 9) {
		t.Fatalf("newer ack rejected")
	}
}

func TestBaselineDropForgetsClient(t *testing.T) {
	b := NewBaselines()
	b.Ack("c1", 4)
	b.Drop("c1")
	if _, ok := b.Baseline("c1"); ok {
		t.Fatalf("dropped client still has baseline")
	}
}

func TestHistoryEvictsBeyondHorizon(t *testing.T) {
	h := NewHistory(3)
	now := time.Now()

	for tick := uint64(1); tick <= 5; tick++ {
		result := h.Record(tick, []sim.Patch{motionPatch("p1", tick)}, now)
		if result.Size > 3 {
			t.Fatalf("ring grew past horizon: %d", result.Size)
		}
	}
	size, oldest, newest := h.Window()
	if size != 3 || oldest != 3 || newest != 5 {
		t.Fatalf("window = %d [%d,%d], want 3 [3,5]", size, oldest, newest)
	}
}

func TestHistoryIgnoresRepeatedTick(t *testing.T) {
	h := NewHistory(4)
	now := time.Now()
	h.Record(1, []sim.Patch{motionPatch("p1", 1)}, now)
	result := h.Record(1, []sim.Patch{motionPatch("p1", 99)}, now)
	if result.Size != 1 || result.NewestTick != 1 {
		t.Fatalf("repeated tick changed ring: %+v", result)
	}
	patches, ok := h.Since(0)
	if !ok || len(patches) != 1 {
		t.Fatalf("patches = %+v ok=%v, want the single original entry", patches, ok)
	}
}

func TestHistorySinceConcatenatesRetainedTicks(t *testing.T) {
	h := NewHistory(8)
	now := time.Now()
	for tick := uint64(1); tick <= 4; tick++ {
		h.Record(tick, []sim.Patch{motionPatch("p1", tick)}, now)
	}

	patches, ok := h.Since(2)
	if !ok {
		t.Fatalf("delta rejected for retained baseline")
	}
	want := []sim.Patch{motionPatch("p1", 3), motionPatch("p1", 4)}
	if !reflect.DeepEqual(patches, want) {
		t.Fatalf("patches = %+v, want %+v", patches, want)
	}
}

func TestHistorySinceRejectsEvictedBaseline(t *testing.T) {
	h := NewHistory(2)
	now := time.Now()
	for tick := uint64(1); tick <= 5; tick++ {
		h.Record(tick, nil, now)
	}
	if _, ok := h.Since(2); ok {
		t.Fatalf("delta accepted for evicted baseline")
	}
}

func TestReplicatorSendsFullSnapshotWithoutBaseline(t *testing.T) {
	r := NewReplicator(8, nil)
	r.Record(1, []sim.Patch{motionPatch("p1", 1)}, time.Now())

	rendered := false
	update := r.ForClient("c1", 1, func() sim.Snapshot {
		rendered = true
		return sim.Snapshot{SessionID: "s1", Tick: 1}
	})
	if !update.Full {
		t.Fatalf("expected full snapshot for unacked client")
	}
	if !rendered {
		t.Fatalf("snapshot provider not invoked")
	}
	if update.Snapshot.SessionID != "s1" {
		t.Fatalf("snapshot = %+v", update.Snapshot)
	}
}

func TestReplicatorSendsDeltaForAckedClient(t *testing.T) {
	r := NewReplicator(8, nil)
	now := time.Now()
	r.Record(1, []sim.Patch{motionPatch("p1", 1)}, now)
	r.Record(2, []sim.Patch{motionPatch("p1", 2)}, now)
	r.Ack("c1", 1)

	update := r.ForClient("c1", 2, func() sim.Snapshot {
		t.Fatalf("snapshot rendered on delta path")
		return sim.Snapshot{}
	})
	if update.Full {
		t.Fatalf("expected delta for acked client")
	}
	if update.Baseline != 1 {
		t.Fatalf("baseline = %d, want 1", update.Baseline)
	}
	want := []sim.Patch{motionPatch("p1", 2)}
	if !reflect.DeepEqual(update.Patches, want) {
		t.Fatalf("patches = %+v, want %+v", update.Patches, want)
	}
}

func TestReplicatorFallsBackAfterEviction(t *testing.T) {
	r := NewReplicator(2, nil)
	now := time.Now()
	r.Ack("c1", 1)
	for tick := uint64(1); tick <= 6; tick++ {
		r.Record(tick, []sim.Patch{motionPatch("p1", tick)}, now)
	}

	update := r.ForClient("c1", 6, func() sim.Snapshot {
		return sim.Snapshot{Tick: 6}
	})
	if !update.Full {
		t.Fatalf("expected full snapshot after history eviction")
	}
}

func TestReplicatorDropForcesFullSnapshot(t *testing.T) {
	r := NewReplicator(8, nil)
	r.Record(1, nil, time.Now())
	r.Ack("c1", 1)
	r.Drop("c1")

	update := r.ForClient("c1", 1, func() sim.Snapshot { return sim.Snapshot{} })
	if !update.Full {
		t.Fatalf("expected full snapshot after drop")
	}
}
