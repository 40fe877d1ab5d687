// Package mocks provides test doubles for the engine's collaborators.
// The Mock* types in mock_*.go are generated by mockgen; the recorders in
// this file are hand-written for tests that only need to observe calls.
package mocks

import (
	"sync"

	"github.com/foreman-dev/foreman/pkg/types"
)

// EventRecorder is a Publisher that keeps every event it receives
type EventRecorder struct {
	mu     sync.RWMutex
	events []types.Event
}

// NewEventRecorder creates an empty recorder
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Publish records the event
func (r *EventRecorder) Publish(event types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything recorded so far
func (r *EventRecorder) Events() []types.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]types.Event(nil), r.events...)
}

// OfType returns the recorded events with the given type, in order
func (r *EventRecorder) OfType(eventType string) []types.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events of the given type were recorded
func (r *EventRecorder) Count(eventType string) int {
	return len(r.OfType(eventType))
}

// Types returns the type of every recorded event, in order
func (r *EventRecorder) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// Reset drops everything recorded so far
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
