package telemetry

import (
	"sync"
	"testing"
)

func TestCountersAddAndStore(t *testing.T) {
	c := NewCounters()
	c.Add("ticks_total", 2)
	c.Add("ticks_total", 3)
	c.Store("history_size", 64)

	snap := c.Snapshot()
	if snap["ticks_total"] != 5 {
		t.Fatalf("ticks_total = %d, want 5", snap["ticks_total"])
	}
	if snap["history_size"] != 64 {
		t.Fatalf("history_size = %d, want 64", snap["history_size"])
	}
}

func TestCountersSnapshotIsACopy(t *testing.T) {
	c := NewCounters()
	c.Add("a", 1)
	snap := c.Snapshot()
	snap["a"] = 99
	if got := c.Snapshot()["a"]; got != 1 {
		t.Fatalf("snapshot mutation leaked, a = %d", got)
	}
}

func TestCountersConcurrentAdds(t *testing.T) {
	c := NewCounters()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Add("events", 1)
			}
		}()
	}
	wg.Wait()
	if got := c.Snapshot()["events"]; got != 800 {
		t.Fatalf("events = %d, want 800", got)
	}
}
