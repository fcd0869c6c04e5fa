package sinks

import (
	"context"
	"sync"

	"minigolf/server/logging"
)

// MemorySink buffers events for inspection in tests.
type MemorySink struct {
	mu     sync.Mutex
	events []logging.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}

// Events returns a copy of everything written so far.
func (s *MemorySink) Events() []logging.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logging.Event(nil), s.events...)
}

// EventsOfType filters the captured events by type.
func (s *MemorySink) EventsOfType(eventType logging.EventType) []logging.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []logging.Event
	for _, event := range s.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
