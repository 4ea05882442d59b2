// Package a2uiecho exposes an a2ui session over HTTP with the Echo framework.
//
// Mount the session's routes onto an Echo instance or group:
//
//	e := echo.New()
//	sess := a2ui.NewSession()
//	a2uiecho.Mount(e, sess)
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	a2uiecho.MountGroup(g, sess)
//
// Routes, relative to the prefix (default "/a2ui/"):
//
//	POST messages                         apply one server message (agent -> client)
//	POST actions                          dispatch a user action
//	GET  surfaces/:surface/data/*path     read bound data
//	PUT  surfaces/:surface/data/*path     write bound data as a component; a null value deletes
//	GET  surfaces/:surface/text/:component render a Text component as HTML
//
// Outbound traffic (user actions, errors, data updates) stays on the
// session's dispatcher; subscribe to it to forward events to the agent.
package a2uiecho

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/a2ui"
	"github.com/pthm/a2ui/lib/markdown"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	path    string
	classes markdown.TagClassMap
}

// WithPath sets the URL path prefix for session routes.
// Defaults to "/a2ui/".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithClasses sets the CSS classes applied to rendered Text components.
func WithClasses(classes markdown.TagClassMap) Option {
	return func(o *options) {
		o.classes = classes
	}
}

// maxBody bounds request bodies.
const maxBody = 1 << 20

// Handler serves one session.
type Handler struct {
	sess     *a2ui.Session
	renderer *markdown.Renderer
	classes  markdown.TagClassMap
}

// Mount registers the session's routes on an Echo instance.
func Mount(e *echo.Echo, sess *a2ui.Session, opts ...Option) *Handler {
	h, prefix := newHandler(sess, opts)
	h.register(e.Group(strings.TrimSuffix(prefix, "/")))
	return h
}

// MountGroup registers the session's routes on an Echo group, so they share
// the group's middleware (auth, logging, etc.).
func MountGroup(g *echo.Group, sess *a2ui.Session, opts ...Option) *Handler {
	h, prefix := newHandler(sess, opts)
	h.register(g.Group(strings.TrimSuffix(prefix, "/")))
	return h
}

func newHandler(sess *a2ui.Session, opts []Option) (*Handler, string) {
	o := &options{path: "/a2ui/"}
	for _, opt := range opts {
		opt(o)
	}
	return &Handler{sess: sess, renderer: markdown.New(), classes: o.classes}, o.path
}

func (h *Handler) register(g *echo.Group) {
	g.POST("/messages", h.applyMessage)
	g.POST("/actions", h.dispatchAction)
	g.GET("/surfaces/:surface/data/*", h.readData)
	g.GET("/surfaces/:surface/data", h.readData)
	g.PUT("/surfaces/:surface/data/*", h.writeData)
	g.GET("/surfaces/:surface/text/:component", h.renderText)
}

func (h *Handler) applyMessage(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.sess.Processor().ApplyServerJSON(body); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type actionRequest struct {
	Name              string         `json:"name"`
	SurfaceID         string         `json:"surfaceId"`
	SourceComponentID string         `json:"sourceComponentId"`
	Context           map[string]any `json:"context"`
}

func (h *Handler) dispatchAction(c echo.Context) error {
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Name == "" || req.SurfaceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and surfaceId are required")
	}
	if _, ok := h.sess.Processor().Surface(req.SurfaceID); !ok {
		return httpError(fmt.Errorf("%w %q", a2ui.ErrSurfaceNotFound, req.SurfaceID))
	}
	d := h.sess.Dispatcher()
	d.DispatchUserAction(d.CreateUserAction(req.Name, req.SurfaceID, req.SourceComponentID, req.Context))
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) readData(c echo.Context) error {
	v, err := h.sess.Resolver().Read(c.Param("surface"), dataPath(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

type writeRequest struct {
	ComponentID string `json:"componentId"`
	Value       any    `json:"value"`
}

func (h *Handler) writeData(c echo.Context) error {
	var req writeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := h.sess.Resolver().Write(c.Param("surface"), req.ComponentID, dataPath(c), req.Value); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) renderText(c echo.Context) error {
	surfaceID, componentID := c.Param("surface"), c.Param("component")
	s, ok := h.sess.Processor().Surface(surfaceID)
	if !ok {
		return httpError(fmt.Errorf("%w %q", a2ui.ErrSurfaceNotFound, surfaceID))
	}
	comp, ok := s.Component(componentID)
	if !ok || comp.Kind != a2ui.KindText {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no Text component %q", componentID))
	}
	bv, ok := a2ui.BoundValueOf(comp.Properties["text"])
	if !ok {
		return Render(c, templ.NopComponent)
	}
	v, err := h.sess.Resolver().Resolve(surfaceID, bv)
	if err != nil {
		return httpError(err)
	}
	return Render(c, h.renderer.Component(fmt.Sprint(v), h.classes))
}

// dataPath turns the route wildcard into a slash path; an empty wildcard
// addresses the whole data model.
func dataPath(c echo.Context) string {
	return "/" + strings.Trim(c.Param("*"), "/")
}

// httpError maps a2ui errors onto HTTP status codes.
func httpError(err error) error {
	status := http.StatusInternalServerError
	switch {
	case a2ui.IsNotFound(err):
		status = http.StatusNotFound
	case a2ui.IsPathConflict(err):
		status = http.StatusConflict
	case errors.Is(err, a2ui.ErrInvalidPath), errors.Is(err, a2ui.ErrInvalidMessage), errors.Is(err, a2ui.ErrInvalidSurfaceID):
		status = http.StatusBadRequest
	case errors.Is(err, a2ui.ErrSessionClosed):
		status = http.StatusGone
	}
	return echo.NewHTTPError(status, err.Error())
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return a2uiecho.Render(c, myTemplate())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
