package a2ui

import (
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(opts ...Option) *Dispatcher {
	return NewDispatcher(append([]Option{WithLogger(quietLogger()), WithClock(NewStepClock(epoch, time.Second))}, opts...)...)
}

func TestDispatchOrder(t *testing.T) {
	d := newTestDispatcher()

	var got []string
	for _, name := range []string{"A", "B", "C"} {
		d.SubscribeUserActions(func(UserActionMessage) { got = append(got, name) })
	}

	d.DispatchUserAction(d.CreateUserAction("submit", "surface1", "btn1", nil))

	if want := []string{"A", "B", "C"}; !slices.Equal(got, want) {
		t.Errorf("delivery order = %v, want %v", got, want)
	}
}

func TestDispatchChannelsAreIndependent(t *testing.T) {
	d := newTestDispatcher()
	rec := NewRecorder(d)
	defer rec.Stop()

	d.DispatchError(ErrorPayload{"code": "x"})
	d.DispatchDataUpdate(d.CreateDataUpdate("s1", "c1", "a", 1))

	if n := len(rec.UserActions()); n != 0 {
		t.Errorf("user actions = %d, want 0", n)
	}
	if n := len(rec.Errors()); n != 1 {
		t.Errorf("errors = %d, want 1", n)
	}
	if n := len(rec.DataUpdates()); n != 1 {
		t.Errorf("data updates = %d, want 1", n)
	}
}

func TestDispatchWithoutSubscribers(t *testing.T) {
	d := newTestDispatcher()
	// Must not panic or block.
	d.DispatchUserAction(UserActionMessage{})
	d.DispatchError(nil)
	d.DispatchDataUpdate(DataUpdateMessage{})
}

func TestSubscriberPanicIsolation(t *testing.T) {
	d := newTestDispatcher()

	var got []string
	d.SubscribeUserActions(func(UserActionMessage) { got = append(got, "A") })
	d.SubscribeUserActions(func(UserActionMessage) { panic("boom") })
	d.SubscribeUserActions(func(UserActionMessage) { got = append(got, "C") })

	var errs []ErrorPayload
	d.SubscribeErrors(func(p ErrorPayload) { errs = append(errs, p) })

	d.DispatchUserAction(d.CreateUserAction("submit", "surface1", "btn1", nil))

	if want := []string{"A", "C"}; !slices.Equal(got, want) {
		t.Errorf("delivered to %v, want %v", got, want)
	}
	if len(errs) != 1 {
		t.Fatalf("error events = %d, want 1", len(errs))
	}
	if errs[0]["code"] != CodeSubscriberFailure {
		t.Errorf("code = %v, want %s", errs[0]["code"], CodeSubscriberFailure)
	}
	if errs[0]["channel"] != string(ChannelUserAction) {
		t.Errorf("channel = %v, want %s", errs[0]["channel"], ChannelUserAction)
	}
}

func TestErrorSubscriberPanicDoesNotLoop(t *testing.T) {
	d := newTestDispatcher()

	calls := 0
	d.SubscribeErrors(func(ErrorPayload) { panic("broken error handler") })
	d.SubscribeErrors(func(ErrorPayload) { calls++ })

	d.DispatchError(ErrorPayload{"code": "x"})

	if calls != 1 {
		t.Errorf("second error subscriber called %d times, want 1", calls)
	}
}

func TestSubscribeDuringDispatch(t *testing.T) {
	d := newTestDispatcher()

	lateCalls := 0
	subscribed := false
	d.SubscribeUserActions(func(UserActionMessage) {
		if !subscribed {
			subscribed = true
			d.SubscribeUserActions(func(UserActionMessage) { lateCalls++ })
		}
	})

	d.DispatchUserAction(UserActionMessage{Name: "first"})
	if lateCalls != 0 {
		t.Errorf("subscriber added during dispatch was called %d times for that dispatch", lateCalls)
	}

	d.DispatchUserAction(UserActionMessage{Name: "second"})
	if lateCalls != 1 {
		t.Errorf("late subscriber calls = %d, want 1", lateCalls)
	}
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	d := newTestDispatcher()

	var got []string
	var subB Subscription
	d.SubscribeUserActions(func(UserActionMessage) {
		got = append(got, "A")
		subB.Unsubscribe()
	})
	subB = d.SubscribeUserActions(func(UserActionMessage) { got = append(got, "B") })

	// The snapshot taken at dispatch start still includes B.
	d.DispatchUserAction(UserActionMessage{})
	d.DispatchUserAction(UserActionMessage{})

	if want := []string{"A", "B", "A"}; !slices.Equal(got, want) {
		t.Errorf("delivered %v, want %v", got, want)
	}
}

func TestNestedDispatch(t *testing.T) {
	d := newTestDispatcher()

	var got []string
	d.SubscribeUserActions(func(a UserActionMessage) {
		got = append(got, "action:"+a.Name)
		if a.Name == "outer" {
			d.DispatchUserAction(UserActionMessage{Name: "inner"})
		}
	})
	d.SubscribeUserActions(func(a UserActionMessage) { got = append(got, "audit:"+a.Name) })

	d.DispatchUserAction(UserActionMessage{Name: "outer"})

	want := []string{"action:outer", "action:inner", "audit:inner", "audit:outer"}
	if !slices.Equal(got, want) {
		t.Errorf("delivered %v, want %v", got, want)
	}
}

func TestUnsubscribe(t *testing.T) {
	d := newTestDispatcher()

	calls := 0
	sub := d.SubscribeDataUpdates(func(DataUpdateMessage) { calls++ })
	if sub.Channel() != ChannelDataUpdate {
		t.Errorf("Channel() = %s, want %s", sub.Channel(), ChannelDataUpdate)
	}
	if n := d.SubscriberCount(ChannelDataUpdate); n != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", n)
	}

	if !d.Unsubscribe(sub) {
		t.Error("first Unsubscribe should report true")
	}
	if d.Unsubscribe(sub) {
		t.Error("second Unsubscribe should report false")
	}
	// Both are no-ops.
	sub.Unsubscribe()
	Subscription{}.Unsubscribe()

	d.DispatchDataUpdate(DataUpdateMessage{})
	if calls != 0 {
		t.Errorf("unsubscribed callback ran %d times", calls)
	}

	other := newTestDispatcher()
	foreign := other.SubscribeErrors(func(ErrorPayload) {})
	if d.Unsubscribe(foreign) {
		t.Error("Unsubscribe should ignore tokens from another dispatcher")
	}
}

func TestDispatcherClose(t *testing.T) {
	d := newTestDispatcher()

	calls := 0
	d.SubscribeUserActions(func(UserActionMessage) { calls++ })
	d.Close()
	d.SubscribeUserActions(func(UserActionMessage) { calls++ })
	d.DispatchUserAction(UserActionMessage{})

	if calls != 0 {
		t.Errorf("callbacks after Close ran %d times", calls)
	}
	for _, ch := range []Channel{ChannelUserAction, ChannelError, ChannelDataUpdate} {
		if n := d.SubscriberCount(ch); n != 0 {
			t.Errorf("SubscriberCount(%s) = %d after Close", ch, n)
		}
	}
}

func TestCreateUserAction(t *testing.T) {
	d := newTestDispatcher()

	ctx := Context{"qty": 3}
	a := d.CreateUserAction("submit", "surface1", "btn1", ctx)

	if a.Name != "submit" || a.SurfaceID != "surface1" || a.SourceComponentID != "btn1" {
		t.Errorf("unexpected action: %+v", a)
	}
	if a.Context["qty"] != 3 {
		t.Errorf("context = %v, want qty=3", a.Context)
	}
	if !a.Timestamp.Equal(epoch) {
		t.Errorf("timestamp = %v, want %v", a.Timestamp, epoch)
	}
	if a.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp should be UTC, got %v", a.Timestamp.Location())
	}

	// The message owns its context.
	ctx["qty"] = 99
	if a.Context["qty"] != 3 {
		t.Error("mutating the caller's map changed the message")
	}

	empty := d.CreateUserAction("noop", "s", "c", nil)
	if empty.Context == nil {
		t.Error("nil context should become an empty map")
	}

	env := d.CreateUserActionMessage(a)
	if env.UserAction == nil || env.Error != nil {
		t.Fatalf("envelope slots = %+v", env)
	}
	if env.UserAction.Name != "submit" {
		t.Errorf("envelope action = %+v", env.UserAction)
	}
}

func TestCreateErrorMessage(t *testing.T) {
	d := newTestDispatcher()

	tests := []struct {
		name    string
		payload ErrorPayload
		wantLen int
	}{
		{"populated", ErrorPayload{"code": "x", "message": "y"}, 2},
		{"empty", ErrorPayload{}, 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := d.CreateErrorMessage(tt.payload)
			if env.UserAction != nil {
				t.Error("userAction slot should be empty")
			}
			if env.Error == nil {
				t.Fatal("error slot should be populated")
			}
			if len(env.Error) != tt.wantLen {
				t.Errorf("payload has %d keys, want %d", len(env.Error), tt.wantLen)
			}
			if err := env.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestCreateDataUpdateTimestamps(t *testing.T) {
	d := newTestDispatcher()

	u1 := d.CreateDataUpdate("s1", "c1", "a", 1)
	u2 := d.CreateDataUpdate("s1", "c1", "a", nil)

	if !u2.Timestamp.After(u1.Timestamp) {
		t.Errorf("timestamps not increasing: %v then %v", u1.Timestamp, u2.Timestamp)
	}
	if u1.IsDelete() || !u2.IsDelete() {
		t.Errorf("IsDelete: got %v, %v", u1.IsDelete(), u2.IsDelete())
	}
}

func TestMonotonicClock(t *testing.T) {
	readings := []time.Time{epoch, epoch.Add(-time.Hour), epoch.Add(time.Minute)}
	i := 0
	c := newMonotonicClock(ClockFunc(func() time.Time {
		r := readings[i]
		i++
		return r
	}))

	first, second, third := c.Now(), c.Now(), c.Now()
	if !second.Equal(first) {
		t.Errorf("clock went backwards: %v then %v", first, second)
	}
	if !third.Equal(epoch.Add(time.Minute)) {
		t.Errorf("third reading = %v", third)
	}
}
