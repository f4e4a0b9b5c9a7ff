package sink

import (
	"context"
	"sync"
)

// Recorder keeps emitted events in memory. FailAfter makes Emit fail once
// that many events have been recorded, which lets callers exercise
// emit-then-commit ordering.
type Recorder struct {
	mu     sync.Mutex
	events []Event

	FailAfter int
	Err       error
}

// Emit records the event or returns Err.
func (r *Recorder) Emit(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil && len(r.events) >= r.FailAfter {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset forgets every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
