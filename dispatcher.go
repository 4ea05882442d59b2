package a2ui

import (
	"fmt"
	"log/slog"
	"maps"
	"sync"
)

// Channel names one event stream within a Dispatcher.
type Channel string

// Dispatcher channels.
const (
	ChannelUserAction Channel = "userAction"
	ChannelError      Channel = "error"
	ChannelDataUpdate Channel = "dataUpdate"
)

// subscriber is one registered callback.
type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// topic is an ordered subscriber list. The slice is replaced, never mutated
// in place, so a dispatch can iterate the slice it loaded without copying.
type topic[T any] struct {
	subs []subscriber[T]
}

func (t *topic[T]) add(id uint64, fn func(T)) {
	next := make([]subscriber[T], len(t.subs), len(t.subs)+1)
	copy(next, t.subs)
	t.subs = append(next, subscriber[T]{id: id, fn: fn})
}

func (t *topic[T]) remove(id uint64) bool {
	for i, s := range t.subs {
		if s.id == id {
			next := make([]subscriber[T], 0, len(t.subs)-1)
			next = append(next, t.subs[:i]...)
			t.subs = append(next, t.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Dispatcher is the in-process fan-out hub of a session.
//
// Producers (rendering components, input handlers) dispatch user actions,
// errors and data updates; consumers (transport senders, loggers, error
// displays) subscribe to the channels they care about. Delivery is
// synchronous and follows subscription order. Every subscriber runs inside
// its own recover boundary: a panicking subscriber is logged and reported on
// the error channel, and delivery continues with the next one.
//
// Subscribers may subscribe, unsubscribe or dispatch from inside a callback;
// each dispatch iterates over the subscriber list as it was when the
// dispatch began.
//
// The dispatcher keeps no messages after delivery.
type Dispatcher struct {
	mu      sync.Mutex
	nextID  uint64
	closed  bool
	actions topic[UserActionMessage]
	errors  topic[ErrorPayload]
	updates topic[DataUpdateMessage]

	clock   Clock
	logger  *slog.Logger
	metrics *instruments
}

// NewDispatcher creates a dispatcher. Most callers get one from NewSession.
func NewDispatcher(opts ...Option) *Dispatcher {
	return newDispatcher(buildOptions(opts))
}

func newDispatcher(o *options) *Dispatcher {
	return &Dispatcher{
		clock:   o.clock,
		logger:  o.logger,
		metrics: newInstruments(o.meterProvider),
	}
}

// Subscription is the capability token returned by the Subscribe methods.
// Holding it is the only way to remove the registration.
type Subscription struct {
	d       *Dispatcher
	channel Channel
	id      uint64
}

// Channel returns the channel the subscription listens on.
func (s Subscription) Channel() Channel { return s.channel }

// Unsubscribe removes the subscription. It is safe to call more than once
// and on the zero Subscription.
func (s Subscription) Unsubscribe() {
	if s.d != nil {
		s.d.Unsubscribe(s)
	}
}

// SubscribeUserActions registers fn on the user-action channel.
func (d *Dispatcher) SubscribeUserActions(fn func(UserActionMessage)) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	if !d.closed {
		d.actions.add(d.nextID, fn)
	}
	return Subscription{d: d, channel: ChannelUserAction, id: d.nextID}
}

// SubscribeErrors registers fn on the error channel.
func (d *Dispatcher) SubscribeErrors(fn func(ErrorPayload)) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	if !d.closed {
		d.errors.add(d.nextID, fn)
	}
	return Subscription{d: d, channel: ChannelError, id: d.nextID}
}

// SubscribeDataUpdates registers fn on the data-update channel. This channel
// carries outbound updates only: local writes made through the Resolver.
// Remote updates applied by the Processor never appear here.
func (d *Dispatcher) SubscribeDataUpdates(fn func(DataUpdateMessage)) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	if !d.closed {
		d.updates.add(d.nextID, fn)
	}
	return Subscription{d: d, channel: ChannelDataUpdate, id: d.nextID}
}

// Unsubscribe removes sub and reports whether it was registered.
func (d *Dispatcher) Unsubscribe(sub Subscription) bool {
	if sub.d != d {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch sub.channel {
	case ChannelUserAction:
		return d.actions.remove(sub.id)
	case ChannelError:
		return d.errors.remove(sub.id)
	case ChannelDataUpdate:
		return d.updates.remove(sub.id)
	}
	return false
}

// SubscriberCount returns the number of subscribers on ch.
func (d *Dispatcher) SubscriberCount(ch Channel) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch ch {
	case ChannelUserAction:
		return len(d.actions.subs)
	case ChannelError:
		return len(d.errors.subs)
	case ChannelDataUpdate:
		return len(d.updates.subs)
	}
	return 0
}

// Close drops every subscription. Later dispatches are no-ops and later
// subscriptions are never registered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.actions.subs = nil
	d.errors.subs = nil
	d.updates.subs = nil
}

// DispatchUserAction notifies every user-action subscriber.
func (d *Dispatcher) DispatchUserAction(action UserActionMessage) {
	d.mu.Lock()
	subs := d.actions.subs
	d.mu.Unlock()

	d.metrics.dispatched(ChannelUserAction)
	for _, s := range subs {
		d.invoke(ChannelUserAction, func() { s.fn(action) })
	}
}

// DispatchError notifies every error subscriber. The payload is passed to
// subscribers as-is.
func (d *Dispatcher) DispatchError(payload ErrorPayload) {
	d.mu.Lock()
	subs := d.errors.subs
	d.mu.Unlock()

	d.metrics.dispatched(ChannelError)
	if len(subs) == 0 {
		d.logger.Debug("error dispatched without subscribers", "code", payload["code"], "message", payload["message"])
	}
	for _, s := range subs {
		d.invoke(ChannelError, func() { s.fn(payload) })
	}
}

// DispatchDataUpdate notifies every data-update subscriber.
func (d *Dispatcher) DispatchDataUpdate(update DataUpdateMessage) {
	d.mu.Lock()
	subs := d.updates.subs
	d.mu.Unlock()

	d.metrics.dispatched(ChannelDataUpdate)
	for _, s := range subs {
		d.invoke(ChannelDataUpdate, func() { s.fn(update) })
	}
}

// invoke runs one subscriber callback. A panic is recovered and reported on
// the error channel, except for panics raised by error subscribers, which
// are only logged so a broken error handler cannot loop.
func (d *Dispatcher) invoke(ch Channel, call func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		d.metrics.failed(ch)
		d.logger.Warn("subscriber failed", "channel", string(ch), "panic", r)
		if ch == ChannelError {
			return
		}
		d.DispatchError(errorPayload(CodeSubscriberFailure,
			fmt.Errorf("a2ui: %s subscriber panicked: %v", ch, r),
			"channel", string(ch)))
	}()
	call()
}

// CreateUserAction builds a UserActionMessage stamped with the dispatcher's
// clock. The context map is copied.
func (d *Dispatcher) CreateUserAction(actionName, surfaceID, sourceComponentID string, context Context) UserActionMessage {
	return UserActionMessage{
		Name:              actionName,
		SurfaceID:         surfaceID,
		SourceComponentID: sourceComponentID,
		Timestamp:         d.clock.Now(),
		Context:           copyContext(context),
	}
}

// CreateUserActionMessage wraps action in an envelope with only the
// userAction slot populated.
func (d *Dispatcher) CreateUserActionMessage(action UserActionMessage) ClientToServerMessage {
	return ClientToServerMessage{UserAction: &action}
}

// CreateErrorMessage wraps payload in an envelope with only the error slot
// populated. The payload is copied; a nil payload becomes an empty one so the
// slot stays populated.
func (d *Dispatcher) CreateErrorMessage(payload ErrorPayload) ClientToServerMessage {
	if payload == nil {
		return ClientToServerMessage{Error: ErrorPayload{}}
	}
	return ClientToServerMessage{Error: maps.Clone(payload)}
}

// CreateDataUpdate builds a DataUpdateMessage stamped with the dispatcher's
// clock. A nil value describes a deletion.
func (d *Dispatcher) CreateDataUpdate(surfaceID, componentID, path string, value any) DataUpdateMessage {
	return DataUpdateMessage{
		SurfaceID:   surfaceID,
		ComponentID: componentID,
		Path:        path,
		Value:       value,
		Timestamp:   d.clock.Now(),
	}
}
