// Package replication decides what each client receives per tick: a delta
// against its acknowledged baseline, or a full snapshot when the baseline
// fell out of the retained history.
package replication

import (
	"time"

	"minigolf/server/internal/sim"
)

// HistoryEntry stores the patches one tick produced.
type HistoryEntry struct {
	Tick       uint64
	Patches    []sim.Patch
	RecordedAt time.Time
}

// HistoryEviction describes an entry dropped from the ring and why.
type HistoryEviction struct {
	Tick   uint64
	Reason string
}

// HistoryRecordResult reports ring state after storing an entry.
type HistoryRecordResult struct {
	Size       int
	OldestTick uint64
	NewestTick uint64
	Evicted    []HistoryEviction
}

// History retains the patch batches of the most recent ticks. It is not
// safe for concurrent use; the replicator serialises access.
type History struct {
	horizon int
	entries []HistoryEntry
}

// NewHistory returns a ring retaining at most horizon ticks of patches.
func NewHistory(horizon int) *History {
	if horizon < 1 {
		horizon = 1
	}
	return &History{horizon: horizon}
}

// Record stores the patches for a tick, evicting entries beyond the horizon.
// A tick at or below the newest retained one is ignored; the simulation
// re-reports its current tick while it is not advancing.
func (h *History) Record(tick uint64, patches []sim.Patch, now time.Time) HistoryRecordResult {
	if n := len(h.entries); n > 0 && tick <= h.entries[n-1].Tick {
		result := HistoryRecordResult{Size: n, OldestTick: h.entries[0].Tick, NewestTick: h.entries[n-1].Tick}
		return result
	}
	h.entries = append(h.entries, HistoryEntry{
		Tick:       tick,
		Patches:    append([]sim.Patch(nil), patches...),
		RecordedAt: now,
	})

	var evicted []HistoryEviction
	for len(h.entries) > h.horizon {
		evicted = append(evicted, HistoryEviction{Tick: h.entries[0].Tick, Reason: "horizon"})
		h.entries = h.entries[1:]
	}

	result := HistoryRecordResult{Size: len(h.entries), Evicted: evicted}
	if len(h.entries) > 0 {
		result.OldestTick = h.entries[0].Tick
		result.NewestTick = h.entries[len(h.entries)-1].Tick
	}
	return result
}

// Since returns the concatenated patches for every retained tick after the
// baseline, up to and including latest. The second result is false when the
// baseline has already been evicted, meaning a delta cannot be built.
func (h *History) Since(baseline uint64) ([]sim.Patch, bool) {
	if len(h.entries) == 0 {
		// Nothing retained; only a full snapshot is provably correct.
		return nil, false
	}
	oldest := h.entries[0].Tick
	if baseline+1 < oldest {
		return nil, false
	}
	var patches []sim.Patch
	for _, entry := range h.entries {
		if entry.Tick <= baseline {
			continue
		}
		patches = append(patches, entry.Patches...)
	}
	return patches, true
}

// Window reports the retained tick range.
func (h *History) Window() (size int, oldest, newest uint64) {
	if len(h.entries) == 0 {
		return 0, 0, 0
	}
	return len(h.entries), h.entries[0].Tick, h.entries[len(h.entries)-1].Tick
}

// Reset drops all retained entries, for course transitions and tests.
func (h *History) Reset() {
	h.entries = nil
}
