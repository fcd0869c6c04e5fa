package results

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"minigolf/server/internal/sim"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndReadBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	archived := []sim.CourseResult{
		{CourseID: "0001", Strokes: map[string][]int{
			"p1": {2, 3},
			"p2": {4, 1},
		}},
		{CourseID: "0002", Strokes: map[string][]int{
			"p1": {5},
			"p2": {2},
		}},
	}
	if err := store.RecordSession(ctx, "sess-1", sim.PhaseCompleted, archived); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}

	got, err := store.SessionResults(ctx, "sess-1")
	if err != nil {
		t.Fatalf("SessionResults: %v", err)
	}
	if !reflect.DeepEqual(got, archived) {
		t.Fatalf("results = %+v, want %+v", got, archived)
	}

	phase, err := store.SessionPhase(ctx, "sess-1")
	if err != nil {
		t.Fatalf("SessionPhase: %v", err)
	}
	if phase != sim.PhaseCompleted {
		t.Fatalf("phase = %s, want completed", phase)
	}
}

func TestRecordRejectsDuplicateSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordSession(ctx, "sess-1", sim.PhaseCompleted, nil); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if err := store.RecordSession(ctx, "sess-1", sim.PhaseCompleted, nil); err == nil {
		t.Fatalf("duplicate session id accepted")
	}
}

func TestResultsForUnknownSessionAreEmpty(t *testing.T) {
	store := openTestStore(t)
	got, err := store.SessionResults(context.Background(), "missing")
	if err != nil {
		t.Fatalf("SessionResults: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("results = %+v, want none", got)
	}
}
