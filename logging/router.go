package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

// Router fans events out to sinks asynchronously. Publishing never blocks;
// events are dropped when the inbox is saturated. Sinks that are not named
// in Config.EnabledSinks are ignored.
type Router struct {
	cfg    Config
	clock  Clock
	inbox  chan Event
	fields map[string]any

	runners  []*sinkRunner
	fallback *log.Logger

	stop    chan struct{}
	stopped sync.WaitGroup
	closed  atomic.Bool

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
	nextDropWarn atomic.Int64
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	inboxSize := cfg.BufferSize
	if inboxSize <= 0 {
		inboxSize = 512
	}
	r := &Router{
		cfg:      cfg,
		clock:    clock,
		inbox:    make(chan Event, inboxSize),
		fields:   cfg.CloneFields(),
		fallback: log.New(os.Stderr, "[logging] ", log.LstdFlags),
		stop:     make(chan struct{}),
	}

	runnerBuffer := min(max(inboxSize, 32), 1024)
	for _, named := range namedSinks {
		if named.Sink == nil || !cfg.HasSink(named.Name) {
			continue
		}
		r.runners = append(r.runners, &sinkRunner{
			name:     named.Name,
			sink:     named.Sink,
			pending:  make(chan Event, runnerBuffer),
			fallback: r.fallback,
		})
	}

	r.stopped.Add(1)
	go r.dispatch()
	for _, runner := range r.runners {
		r.stopped.Add(1)
		go func(sr *sinkRunner) {
			defer r.stopped.Done()
			sr.run()
		}(runner)
	}
	return r, nil
}

// Publish stages an event for delivery. Safe from any goroutine; events
// without a type are silently ignored.
func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.inbox <- event:
	default:
		r.noteDrop(event)
	}
}

func (r *Router) dispatch() {
	defer func() {
		for _, runner := range r.runners {
			close(runner.pending)
		}
		r.stopped.Done()
	}()
	for {
		select {
		case event := <-r.inbox:
			r.deliver(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.inbox:
					r.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) deliver(event Event) {
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		event = cloneForFields(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(r.fields))
		}
		for key, value := range r.fields {
			if _, set := event.Extra[key]; !set {
				event.Extra[key] = value
			}
		}
	}
	r.eventsTotal.Add(1)
	for _, runner := range r.runners {
		runner.offer(event)
	}
}

func (r *Router) noteDrop(event Event) {
	r.droppedTotal.Add(1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := time.Now().UnixNano()
	due := r.nextDropWarn.Load()
	if now < due {
		return
	}
	if r.nextDropWarn.CompareAndSwap(due, now+interval.Nanoseconds()) {
		r.fallback.Printf("inbox full, dropping event type=%s tick=%d", event.Type, event.Tick)
	}
}

// Close drains the inbox, stops the workers, and closes every sink. A
// second Close blocks until the context expires.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		<-ctx.Done()
		return ctx.Err()
	}
	close(r.stop)

	done := make(chan struct{})
	go func() {
		r.stopped.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	var firstErr error
	for _, runner := range r.runners {
		if err := runner.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	return RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
}

// Sink returns the attached sink with the given name, or nil.
func (r *Router) Sink(name string) Sink {
	for _, runner := range r.runners {
		if runner.name == name {
			return runner.sink
		}
	}
	return nil
}

// sinkRunner owns one sink's delivery goroutine. A failing sink backs off
// exponentially without stalling the dispatcher or the other sinks.
type sinkRunner struct {
	name     string
	sink     Sink
	pending  chan Event
	fallback *log.Logger
	failures int
}

func (sr *sinkRunner) offer(event Event) {
	select {
	case sr.pending <- cloneForFields(event):
	default:
		sr.fallback.Printf("sink %s backlog full, dropping event type=%s", sr.name, event.Type)
	}
}

func (sr *sinkRunner) run() {
	for event := range sr.pending {
		if sr.failures > 0 {
			time.Sleep(sr.backoff())
		}
		if err := sr.sink.Write(event); err != nil {
			sr.failures++
			sr.fallback.Printf("sink %s failed: %v (retry in %s)", sr.name, err, sr.backoff())
		} else {
			sr.failures = 0
		}
	}
}

func (sr *sinkRunner) backoff() time.Duration {
	return time.Duration(1<<min(sr.failures, 5)) * time.Second
}
