package sim

import "sync"

const (
	commandQueueDepthMetricKey    = "sim_command_queue_depth"
	commandQueueOverflowMetricKey = "sim_command_queue_overflow_total"
)

type telemetryMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// CommandBuffer is a bounded FIFO for staged commands, safe for concurrent
// producers with a single draining consumer. Draining hands the backing
// slice to the caller and starts a fresh one, so the loop never copies.
type CommandBuffer struct {
	mu      sync.Mutex
	staged  []Command
	limit   int
	metrics telemetryMetrics
}

// NewCommandBuffer builds a buffer holding at most capacity commands.
func NewCommandBuffer(capacity int, metrics telemetryMetrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{
		staged:  make([]Command, 0, capacity),
		limit:   capacity,
		metrics: metrics,
	}
}

// Len reports the number of staged commands.
func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.staged)
}

// Push stages a command, returning false if the buffer is full.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.staged) >= b.limit {
		if b.metrics != nil {
			b.metrics.Add(commandQueueOverflowMetricKey, 1)
		}
		return false
	}
	b.staged = append(b.staged, cmd)
	b.recordDepthLocked()
	return true
}

// Drain returns every staged command in arrival order and empties the
// buffer.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.staged) == 0 {
		return nil
	}
	drained := b.staged
	b.staged = make([]Command, 0, b.limit)
	b.recordDepthLocked()
	return drained
}

func (b *CommandBuffer) recordDepthLocked() {
	if b.metrics != nil {
		b.metrics.Store(commandQueueDepthMetricKey, uint64(len(b.staged)))
	}
}
