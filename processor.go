package a2ui

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Processor owns the live surfaces of one session and applies inbound
// server messages to them.
//
// Structural messages (beginRendering, surfaceUpdate) mutate the component
// tree directly; dataModelUpdate payloads are routed through the Resolver's
// ApplyRemoteUpdate so that bindings refresh and nothing is echoed back.
type Processor struct {
	mu       sync.RWMutex
	surfaces map[string]*Surface
	closed   bool

	dispatcher *Dispatcher
	resolver   *Resolver
	logger     *slog.Logger
}

// NewProcessor creates a processor that reports to d. A nil d gets a fresh
// dispatcher built from the same options.
func NewProcessor(d *Dispatcher, opts ...Option) *Processor {
	return newProcessor(d, buildOptions(opts))
}

func newProcessor(d *Dispatcher, o *options) *Processor {
	if d == nil {
		d = newDispatcher(o)
	}
	p := &Processor{
		surfaces:   make(map[string]*Surface),
		dispatcher: d,
		logger:     o.logger,
	}
	p.resolver = newResolver(p, d, o)
	return p
}

// Resolver returns the resolver bound to this processor's surfaces.
func (p *Processor) Resolver() *Resolver { return p.resolver }

// Dispatcher returns the dispatcher errors are reported to.
func (p *Processor) Dispatcher() *Dispatcher { return p.dispatcher }

// EnsureSurface returns the live surface with the given id, creating an
// empty one on first reference.
func (p *Processor) EnsureSurface(id string) (*Surface, error) {
	if id == "" {
		return nil, ErrInvalidSurfaceID
	}

	p.mu.RLock()
	s, ok := p.surfaces[id]
	closed := p.closed
	p.mu.RUnlock()
	if ok {
		return s, nil
	}
	if closed {
		return nil, ErrSessionClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrSessionClosed
	}
	if s, ok := p.surfaces[id]; ok {
		return s, nil
	}
	s = newSurface(id)
	p.surfaces[id] = s
	p.logger.Debug("surface created", "surface", id)
	return s, nil
}

// Surface returns the live surface with the given id.
func (p *Processor) Surface(id string) (*Surface, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.surfaces[id]
	return s, ok
}

// SurfaceIDs returns the ids of all live surfaces, sorted.
func (p *Processor) SurfaceIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Sorted(maps.Keys(p.surfaces))
}

// RemoveSurface tears a surface down and discards its store and bindings.
// It reports whether a live surface was removed. A later reference to the
// same id creates a fresh surface.
func (p *Processor) RemoveSurface(id string) bool {
	p.mu.Lock()
	s, ok := p.surfaces[id]
	delete(p.surfaces, id)
	p.mu.Unlock()

	if !ok {
		return false
	}
	s.teardown()
	p.logger.Debug("surface removed", "surface", id)
	return true
}

// Close tears down every surface. It is safe to call at any time and more
// than once; afterwards lookups report not-found and EnsureSurface returns
// ErrSessionClosed.
func (p *Processor) Close() {
	p.mu.Lock()
	surfaces := p.surfaces
	p.surfaces = make(map[string]*Surface)
	p.closed = true
	p.mu.Unlock()

	for _, s := range surfaces {
		s.teardown()
	}
}

// ApplyServerMessage applies one inbound message.
//
// beginRendering, surfaceUpdate and dataModelUpdate create the surface on
// first reference. deleteSurface of an unknown surface is a no-op that only
// raises an unknownSurface error event. Invalid messages and invalid
// components are reported on the error channel and returned; valid
// components of a partially invalid surfaceUpdate are still applied.
func (p *Processor) ApplyServerMessage(msg ServerToClientMessage) error {
	if n := msg.populated(); n != 1 {
		return p.invalid(fmt.Errorf("%w: expected exactly one payload, got %d", ErrInvalidMessage, n), msg.SurfaceID())
	}
	id := msg.SurfaceID()
	if id == "" {
		return p.invalid(fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidSurfaceID), id)
	}

	if msg.DeleteSurface != nil {
		if !p.RemoveSurface(id) {
			err := fmt.Errorf("%w %q", ErrSurfaceNotFound, id)
			p.logger.Warn("deleteSurface for unknown surface", "surface", id)
			p.dispatcher.DispatchError(errorPayload(CodeUnknownSurface, err, "surfaceId", id))
		}
		return nil
	}

	s, err := p.EnsureSurface(id)
	if err != nil {
		p.dispatcher.DispatchError(payloadFor(err, CodeSessionClosed, "surfaceId", id))
		return err
	}

	switch {
	case msg.BeginRendering != nil:
		s.beginRendering(msg.BeginRendering.Root, msg.BeginRendering.Styles)
		return nil

	case msg.SurfaceUpdate != nil:
		var errs []error
		comps := make([]*Component, 0, len(msg.SurfaceUpdate.Components))
		for i, in := range msg.SurfaceUpdate.Components {
			c, ok := componentFromWire(in)
			if !ok {
				errs = append(errs, p.invalid(
					fmt.Errorf("%w: component %d (%q) must have an id and exactly one kind", ErrInvalidMessage, i, in.ID), id))
				continue
			}
			comps = append(comps, c)
		}
		s.replaceComponents(comps)
		return errors.Join(errs...)

	case msg.DataModelUpdate != nil:
		return p.applyDataModel(msg.DataModelUpdate)
	}
	return nil
}

// applyDataModel converts each entry into a DataUpdateMessage and routes it
// through the resolver. Entries are merged into the existing data one key
// at a time; keys not mentioned are left alone.
func (p *Processor) applyDataModel(m *DataModelUpdate) error {
	var errs []error
	for _, e := range m.Contents {
		path := m.Path
		if e.Key != "" {
			path = JoinPath(m.Path, e.Key)
		}
		update := DataUpdateMessage{
			SurfaceID: m.SurfaceID,
			Path:      path,
			Value:     e.Value(),
			Timestamp: p.dispatcher.clock.Now(),
		}
		if err := p.resolver.ApplyRemoteUpdate(update); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Processor) invalid(err error, surfaceID string) error {
	p.logger.Warn("invalid server message", "surface", surfaceID, "error", err)
	p.dispatcher.DispatchError(errorPayload(CodeInvalidMessage, err, "surfaceId", surfaceID))
	return err
}
