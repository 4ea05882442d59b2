package a2ui

import (
	"errors"
	"fmt"
	"log/slog"
)

// Resolver reads and writes bound data within the surfaces of a Processor.
//
// Write is the only sanctioned way to mutate bound data locally: it updates
// the store, refreshes local bindings and emits a DataUpdateMessage on the
// dispatcher's data-update channel. ApplyRemoteUpdate applies agent-side
// updates: it refreshes local bindings but never emits on the data-update
// channel, so remote changes are not echoed back.
//
// Conflicts are resolved last-write-wins per path, in order of arrival at
// the resolver. Timestamps embedded in messages are ignored for ordering.
//
// Failures are returned to the caller and also raised on the dispatcher's
// error channel; nothing panics.
type Resolver struct {
	p       *Processor
	d       *Dispatcher
	assign  assigner
	logger  *slog.Logger
	metrics *instruments
}

func newResolver(p *Processor, d *Dispatcher, o *options) *Resolver {
	return &Resolver{
		p:       p,
		d:       d,
		assign:  assigner{policy: o.policy, maxGap: o.maxGap},
		logger:  o.logger,
		metrics: d.metrics,
	}
}

// Read returns a copy of the value at path within the surface.
//
// A path that was never set, or was deleted, yields an error matching
// ErrPathNotFound. An unknown surface yields ErrSurfaceNotFound and also
// raises an unknownSurface error event.
func (r *Resolver) Read(surfaceID, path string) (any, error) {
	s, err := r.surface(surfaceID)
	if err != nil {
		return nil, err
	}
	p, err := ParsePath(path)
	if err != nil {
		pe := &PathError{SurfaceID: surfaceID, Path: path, Reason: err.Error(), Err: ErrInvalidPath}
		r.report(pe.Payload())
		return nil, pe
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != SurfaceLive {
		return nil, fmt.Errorf("%w %q: %w", ErrSurfaceNotFound, surfaceID, ErrSurfaceClosed)
	}
	v, ok := lookup(s.data, p)
	if !ok {
		return nil, fmt.Errorf("%w %q in surface %q", ErrPathNotFound, path, surfaceID)
	}
	return normalizeValue(v), nil
}

// Write sets the value at path on behalf of componentID. A nil value deletes
// the path. Missing intermediate containers are created or rejected per the
// session's PathPolicy. On failure the store is left unchanged.
//
// The store update is atomic, but the outbound dispatch and binding
// notification that follow run outside the surface lock so that binding
// callbacks may write again. Outbound order matches store order only for
// calls made by the session's single owner; callers on several goroutines
// must serialize their writes to a surface themselves.
func (r *Resolver) Write(surfaceID, componentID, path string, value any) error {
	s, err := r.surface(surfaceID)
	if err != nil {
		return err
	}
	change, err := r.mutate(s, componentID, path, value, OriginLocal)
	if err != nil {
		r.report(payloadFor(err, CodePathConflict, "surfaceId", surfaceID, "path", path))
		return err
	}
	// Outbound first, so a write made by a binding callback is sent after
	// the write that triggered it.
	r.d.DispatchDataUpdate(r.d.CreateDataUpdate(surfaceID, componentID, path, normalizeValue(value)))
	r.notify(s, change)
	return nil
}

// ApplyRemoteUpdate applies an agent-originated update and refreshes local
// bindings. It never dispatches on the data-update channel.
func (r *Resolver) ApplyRemoteUpdate(update DataUpdateMessage) error {
	s, err := r.surface(update.SurfaceID)
	if err != nil {
		return err
	}
	change, err := r.mutate(s, update.ComponentID, update.Path, update.Value, OriginRemote)
	if err != nil {
		r.report(payloadFor(err, CodePathConflict, "surfaceId", update.SurfaceID, "path", update.Path))
		return err
	}
	r.notify(s, change)
	return nil
}

// Binding is the handle returned by Resolver.Bind.
type Binding struct {
	s  *Surface
	id uint64
}

// Unbind removes the binding. Safe to call more than once.
func (b Binding) Unbind() bool {
	if b.s == nil {
		return false
	}
	return b.s.unbind(b.id)
}

// Bind registers fn to be called whenever data at, above or below path
// changes within the surface, from either origin. Bindings are discarded
// when the surface is torn down.
//
// Callbacks run synchronously after the store update. A callback may call
// Write; the nested write is applied at once and its notification is
// delivered after the current one returns.
func (r *Resolver) Bind(surfaceID, componentID, path string, fn func(Change)) (Binding, error) {
	s, err := r.surface(surfaceID)
	if err != nil {
		return Binding{}, err
	}
	p, err := ParsePath(path)
	if err != nil {
		return Binding{}, &PathError{SurfaceID: surfaceID, Path: path, Reason: err.Error(), Err: ErrInvalidPath}
	}
	id := s.bind(componentID, p, fn)
	if id == 0 {
		return Binding{}, fmt.Errorf("%w %q: %w", ErrSurfaceNotFound, surfaceID, ErrSurfaceClosed)
	}
	return Binding{s: s, id: id}, nil
}

// Resolve returns the current value of a bound property.
//
// A literal-only value is returned as is. A path-only value is read from the
// store. When both are present and the path holds no value yet, the literal
// initialises the path (without an outbound update, since the value came
// from the agent) and is returned.
func (r *Resolver) Resolve(surfaceID string, v BoundValue) (any, error) {
	lit, hasLit := v.Literal()
	if v.Path == "" {
		if !hasLit {
			return nil, fmt.Errorf("%w: bound value has neither path nor literal", ErrPathNotFound)
		}
		return lit, nil
	}

	got, err := r.Read(surfaceID, v.Path)
	if err == nil || !hasLit || !errors.Is(err, ErrPathNotFound) {
		return got, err
	}
	if err := r.ApplyRemoteUpdate(DataUpdateMessage{SurfaceID: surfaceID, Path: v.Path, Value: lit}); err != nil {
		return nil, err
	}
	return normalizeValue(lit), nil
}

// surface finds a live surface or reports it as unknown.
func (r *Resolver) surface(id string) (*Surface, error) {
	s, ok := r.p.Surface(id)
	if !ok {
		err := fmt.Errorf("%w %q", ErrSurfaceNotFound, id)
		r.report(errorPayload(CodeUnknownSurface, err, "surfaceId", id))
		return nil, err
	}
	return s, nil
}

// mutate applies one write under the surface lock.
func (r *Resolver) mutate(s *Surface, componentID, path string, value any, origin Origin) (pendingChange, error) {
	p, err := ParsePath(path)
	if err != nil {
		return pendingChange{}, &PathError{SurfaceID: s.id, Path: path, Reason: err.Error(), Err: ErrInvalidPath}
	}
	del := value == nil
	v := normalizeValue(value)

	s.mu.Lock()
	if s.state != SurfaceLive {
		s.mu.Unlock()
		return pendingChange{}, fmt.Errorf("%w %q: %w", ErrSurfaceNotFound, s.id, ErrSurfaceClosed)
	}
	if p.IsRoot() {
		switch m := v.(type) {
		case nil:
			s.data = map[string]any{}
		case map[string]any:
			s.data = m
		default:
			s.mu.Unlock()
			return pendingChange{}, &PathError{SurfaceID: s.id, Path: path, Reason: fmt.Sprintf("root must be a mapping, got %T", v), Err: ErrPathConflict}
		}
	} else {
		root, err := r.assign.assign(s.data, p, 0, v, del)
		if err != nil {
			s.mu.Unlock()
			var pe *PathError
			if errors.As(err, &pe) {
				pe.SurfaceID = s.id
				pe.Path = path
			}
			return pendingChange{}, err
		}
		s.data = root.(map[string]any)
	}
	s.mu.Unlock()

	r.metrics.mutated(origin)
	r.logger.Debug("bound data changed", "surface", s.id, "path", path, "origin", string(origin), "deleted", del)

	c := Change{
		SurfaceID: s.id,
		Path:      path,
		Value:     normalizeValue(v),
		Deleted:   del,
		Origin:    origin,
	}
	if origin == OriginLocal {
		c.ComponentID = componentID
	}
	return pendingChange{Change: c, path: p}, nil
}

// notify queues a change and, if no other call is draining the surface's
// queue, delivers queued changes in order until the queue is empty.
func (r *Resolver) notify(s *Surface, c pendingChange) {
	s.queueMu.Lock()
	s.pending = append(s.pending, c)
	if s.draining {
		s.queueMu.Unlock()
		return
	}
	s.draining = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.queueMu.Unlock()
		r.deliver(s, next)
		s.queueMu.Lock()
	}
	s.draining = false
	s.queueMu.Unlock()
}

func (r *Resolver) deliver(s *Surface, c pendingChange) {
	for _, b := range s.matching(c.path) {
		r.invoke(b, c.Change)
	}
}

func (r *Resolver) invoke(b *binding, c Change) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("binding callback failed", "surface", c.SurfaceID, "component", b.componentID, "panic", rec)
			r.report(errorPayload(CodeSubscriberFailure,
				fmt.Errorf("a2ui: binding for component %q panicked: %v", b.componentID, rec),
				"surfaceId", c.SurfaceID, "componentId", b.componentID, "path", c.Path))
		}
	}()
	b.fn(c)
}

func (r *Resolver) report(payload ErrorPayload) {
	r.logger.Warn("binding error", "code", payload["code"], "message", payload["message"])
	r.d.DispatchError(payload)
}
