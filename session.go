package a2ui

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Session is the session-scoped owner of one Dispatcher, one Processor and
// its Resolver. Nothing in this package is shared between sessions.
//
// A session has a single logical owner: the rendering and event-processing
// context that drives it. Calls are synchronous and never block on I/O.
type Session struct {
	id         string
	dispatcher *Dispatcher
	processor  *Processor
	logger     *slog.Logger

	closeOnce sync.Once
}

// NewSession creates a session with its own dispatcher, processor and
// resolver.
//
//	s := a2ui.NewSession(a2ui.WithPathPolicy(a2ui.PathPolicyStrict))
//	defer s.Close()
//	s.Dispatcher().SubscribeUserActions(send)
func NewSession(opts ...Option) *Session {
	o := buildOptions(opts)
	id := uuid.NewString()
	o.logger = o.logger.With("session", id)

	d := newDispatcher(o)
	return &Session{
		id:         id,
		dispatcher: d,
		processor:  newProcessor(d, o),
		logger:     o.logger,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Dispatcher returns the session's event dispatcher.
func (s *Session) Dispatcher() *Dispatcher { return s.dispatcher }

// Processor returns the session's surface owner.
func (s *Session) Processor() *Processor { return s.processor }

// Resolver returns the session's data binding resolver.
func (s *Session) Resolver() *Resolver { return s.processor.resolver }

// Close ends the session: every surface is torn down and every dispatcher
// subscription dropped. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.processor.Close()
		s.dispatcher.Close()
		s.logger.Debug("session closed")
	})
}
