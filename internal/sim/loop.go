package sim

import (
	"sync"
	"time"

	"minigolf/server/internal/telemetry"
	"minigolf/server/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to
	// per-actor queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is
	// saturated.
	CommandRejectQueueFull = "queue_full"
)

// EngineCore is the surface the loop drives. *Session satisfies it.
type EngineCore interface {
	Apply([]Command) error
	Step()
	Tick() uint64
	Phase() Phase
	Snapshot() Snapshot
	DrainPatches() []Patch
	DrainEvents() []GameEvent
}

// LoopTickContext carries the timing facts of one scheduled tick.
type LoopTickContext struct {
	Tick  uint64
	Now   time.Time
	Delta float64
}

// LoopStepResult is handed to AfterStep once a tick has fully run. Patches
// and Events are drained into it, so the hook owns their delivery.
type LoopStepResult struct {
	Tick     uint64
	Now      time.Time
	Delta    float64
	Phase    Phase
	Patches  []Patch
	Events   []GameEvent
	Commands []Command
	Duration time.Duration
	Budget   time.Duration
}

// LoopHooks lets the hub observe tick sequencing without reaching into the
// engine.
type LoopHooks struct {
	// Prepare runs before the staged commands are applied.
	Prepare func(LoopTickContext)
	// AfterStep runs after the tick completes, with the drained replication
	// output.
	AfterStep func(LoopStepResult)
	// OnCommandDrop fires when Enqueue rejects a command.
	OnCommandDrop func(reason string, cmd Command)
	// OnQueueWarning fires when the staged queue crosses a warning step.
	OnQueueWarning func(length int)
}

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

// Loop coordinates command ingestion and the fixed-timestep simulation
// runner. Enqueue is safe for concurrent use; Advance and Run must be driven
// by a single goroutine.
type Loop struct {
	core    EngineCore
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	clock   logging.Clock
	logger  telemetry.Logger
	metrics telemetry.Metrics

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64
}

// NewLoop wraps the provided engine core with a ring-buffer queue and loop.
func NewLoop(core EngineCore, cfg LoopConfig, hooks LoopHooks, logger telemetry.Logger, metrics telemetry.Metrics) *Loop {
	if core == nil {
		return nil
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics{}
	}
	return &Loop{
		core:          core,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, metrics),
		hooks:         hooks,
		config:        cfg,
		clock:         logging.SystemClock{},
		logger:        logger,
		metrics:       metrics,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// SetClock overrides the wall clock, for tests.
func (l *Loop) SetClock(clock logging.Clock) {
	if l != nil && clock != nil {
		l.clock = clock
	}
}

// Snapshot delegates to the underlying engine.
func (l *Loop) Snapshot() Snapshot {
	if l == nil {
		return Snapshot{}
	}
	return l.core.Snapshot()
}

// Phase delegates to the underlying engine.
func (l *Loop) Phase() Phase {
	if l == nil {
		return PhaseAbandoned
	}
	return l.core.Phase()
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity
// limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				l.queueMu.Unlock()
				l.warnQueue(length)
				return true, ""
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance executes a single simulation step using the staged commands. The
// engine consumes a fixed timestep regardless of the scheduled delta; the
// delta only feeds telemetry.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	commands := l.drainCommands()
	if l.hooks.Prepare != nil {
		l.hooks.Prepare(ctx)
	}
	_ = l.core.Apply(commands)
	l.core.Step()
	return LoopStepResult{
		Tick:     l.core.Tick(),
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		Phase:    l.core.Phase(),
		Patches:  l.core.DrainPatches(),
		Events:   l.core.DrainEvents(),
		Commands: commands,
	}
}

// Run drives the fixed-timestep loop until the stop channel closes or the
// session reaches a terminal phase.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	tickRate := l.config.TickRate
	if tickRate <= 0 {
		tickRate = 128
	}
	budget := time.Second / time.Duration(tickRate)
	ticker := time.NewTicker(budget)
	defer ticker.Stop()

	last := l.clock.Now()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := l.clock.Now()
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = budget.Seconds()
			}
			last = now

			start := l.clock.Now()
			result := l.Advance(LoopTickContext{Tick: l.core.Tick(), Now: now, Delta: dt})
			result.Duration = l.clock.Now().Sub(start)
			result.Budget = budget
			if result.Duration > budget && l.logger != nil {
				l.logger.Printf("[tick] over budget tick=%d duration=%s budget=%s", result.Tick, result.Duration, budget)
			}

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
			if result.Phase.Terminal() {
				return
			}
		}
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) warnQueue(length int) {
	if l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 {
		if l.logger != nil {
			l.logger.Printf(
				"[backpressure] dropping command actor=%s type=%s reason=%s count=%d limit=%d",
				cmd.ActorID,
				cmd.Type,
				reason,
				count,
				l.config.PerActorLimit,
			)
		}
	}
}

var _ EngineCore = (*Session)(nil)
