// Package a2ui is the client-side message and data-binding layer for
// agent-driven user interfaces.
//
// An agent describes UI surfaces with server messages; the client renders
// them, binds component properties to a per-surface data model, and reports
// user interactions and local failures back. This package owns everything
// between the transport and the renderer: it applies inbound messages,
// keeps each surface's bound data, and fans outbound events out to
// whoever sends them.
//
// # Sessions
//
// A Session groups one Dispatcher, one Processor and its Resolver. Nothing
// is shared between sessions:
//
//	s := a2ui.NewSession(a2ui.WithLogger(logger))
//	defer s.Close()
//
// # Dispatching Events
//
// The Dispatcher has three channels: user actions, errors, and outbound
// data updates. Subscribers are called synchronously in subscription order,
// each inside its own recover boundary, and are removed with the
// Subscription token returned on registration:
//
//	sub := s.Dispatcher().SubscribeUserActions(func(a a2ui.UserActionMessage) {
//	    send(s.Dispatcher().CreateUserActionMessage(a))
//	})
//	defer sub.Unsubscribe()
//
// Messages are constructed through the dispatcher's factories so they carry
// the session clock's timestamp:
//
//	a := d.CreateUserAction("submit", "surface1", "btn1", a2ui.Context{"qty": 3})
//	d.DispatchUserAction(a)
//
// # Applying Server Messages
//
// The Processor applies beginRendering, surfaceUpdate, dataModelUpdate and
// deleteSurface messages. Surfaces are created on first reference and torn
// down by deleteSurface; a torn-down surface loses its data and bindings.
//
//	if err := s.Processor().ApplyServerJSON(line); err != nil {
//	    // already reported on the error channel
//	}
//
// # Data Binding
//
// The Resolver reads and writes values by path ("user.name" or
// "/user/name"). Local writes refresh bindings and go out on the
// data-update channel; remote updates refresh bindings only, so the agent
// never sees its own changes echoed back:
//
//	s.Resolver().Bind("form", "age", "user.age", func(c a2ui.Change) {
//	    field.SetValue(c.Value)
//	})
//	s.Resolver().Write("form", "age", "user.age", 30)
//
// Writes are last-write-wins per path in arrival order. Missing parent
// containers are created under PathPolicyCreate (the default) and rejected
// under PathPolicyStrict.
//
// # Errors
//
// Failures are returned to the caller and also raised on the error channel
// as an ErrorPayload with a "code" (see CodeUnknownSurface and friends).
// Use IsNotFound and IsPathConflict to classify returned errors.
//
// # Wire Formats
//
// Outbound envelopes and data updates are serialized by lib/encoding as JSON
// or msgpack, optionally signed. Inbound server messages are checked
// against the JSON schema in lib/schema before they are applied.
package a2ui
