package a2ui

import (
	"slices"
	"sync"
	"time"
)

// Recorder subscribes to every channel of a Dispatcher and keeps what it
// sees. It is meant for tests of code built on this package:
//
//	s := a2ui.NewSession()
//	rec := a2ui.NewRecorder(s.Dispatcher())
//	defer rec.Stop()
//
//	s.Resolver().Write("form", "name", "user.name", "Ada")
//	if got := len(rec.DataUpdates()); got != 1 {
//	    t.Fatalf("got %d updates, want 1", got)
//	}
type Recorder struct {
	mu      sync.Mutex
	actions []UserActionMessage
	errors  []ErrorPayload
	updates []DataUpdateMessage
	subs    []Subscription
}

// NewRecorder starts recording d. Subscriptions made after it are notified
// after the recorder.
func NewRecorder(d *Dispatcher) *Recorder {
	r := &Recorder{}
	r.subs = []Subscription{
		d.SubscribeUserActions(func(a UserActionMessage) {
			r.mu.Lock()
			r.actions = append(r.actions, a)
			r.mu.Unlock()
		}),
		d.SubscribeErrors(func(p ErrorPayload) {
			r.mu.Lock()
			r.errors = append(r.errors, p)
			r.mu.Unlock()
		}),
		d.SubscribeDataUpdates(func(u DataUpdateMessage) {
			r.mu.Lock()
			r.updates = append(r.updates, u)
			r.mu.Unlock()
		}),
	}
	return r
}

// Stop unsubscribes the recorder. Recorded events are kept.
func (r *Recorder) Stop() {
	for _, s := range r.subs {
		s.Unsubscribe()
	}
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions, r.errors, r.updates = nil, nil, nil
}

// UserActions returns the recorded user actions in dispatch order.
func (r *Recorder) UserActions() []UserActionMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.actions)
}

// Errors returns the recorded error payloads in dispatch order.
func (r *Recorder) Errors() []ErrorPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.errors)
}

// ErrorCodes returns the "code" of every recorded error payload.
func (r *Recorder) ErrorCodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, 0, len(r.errors))
	for _, p := range r.errors {
		code, _ := p["code"].(string)
		codes = append(codes, code)
	}
	return codes
}

// DataUpdates returns the recorded outbound data updates in dispatch order.
func (r *Recorder) DataUpdates() []DataUpdateMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.updates)
}

// StepClock is a deterministic Clock that advances by a fixed step on every
// reading. A zero step returns the same instant forever.
type StepClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewStepClock returns a clock whose first reading is start.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{next: start, step: step}
}

// Now returns the current reading and advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}
