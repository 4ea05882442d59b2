package a2uiecho

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pthm/a2ui"
	"github.com/pthm/a2ui/lib/markdown"
)

const (
	textSurface = `{"surfaceUpdate": {"surfaceId": "chat", "components": [
		{"id": "reply", "component": {"Text": {"text": {"path": "reply", "literalString": "thinking"}}}},
		{"id": "btn", "component": {"Button": {"child": "reply"}}}
	]}}`
)

func newTestServer(t *testing.T, opts ...Option) (*echo.Echo, *a2ui.Session, *a2ui.Recorder) {
	t.Helper()
	sess := a2ui.NewSession(a2ui.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(sess.Close)
	rec := a2ui.NewRecorder(sess.Dispatcher())

	e := echo.New()
	Mount(e, sess, opts...)
	return e, sess, rec
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMount(t *testing.T) {
	e := echo.New()
	sess := a2ui.NewSession()
	defer sess.Close()

	if h := Mount(e, sess); h == nil {
		t.Fatal("Mount returned nil handler")
	}
}

func TestMountGroup(t *testing.T) {
	e := echo.New()
	sess := a2ui.NewSession()
	defer sess.Close()
	MountGroup(e.Group("/app"), sess)

	res := do(e, http.MethodPost, "/app/a2ui/messages", `{"deleteSurface": {"surfaceId": "x"}}`)
	if res.Code != http.StatusNoContent {
		t.Errorf("grouped route status = %d, want 204", res.Code)
	}
}

func TestMountWithPath(t *testing.T) {
	e, _, _ := newTestServer(t, WithPath("/ui/"))

	if res := do(e, http.MethodPost, "/ui/messages", textSurface); res.Code != http.StatusNoContent {
		t.Errorf("custom prefix status = %d, want 204", res.Code)
	}
	if res := do(e, http.MethodPost, "/a2ui/messages", textSurface); res.Code != http.StatusNotFound {
		t.Errorf("default prefix status = %d, want 404", res.Code)
	}
}

func TestApplyMessage(t *testing.T) {
	e, sess, _ := newTestServer(t)

	if res := do(e, http.MethodPost, "/a2ui/messages", textSurface); res.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body)
	}
	if _, ok := sess.Processor().Surface("chat"); !ok {
		t.Error("surface should exist after surfaceUpdate")
	}

	if res := do(e, http.MethodPost, "/a2ui/messages", `{"nope": {}}`); res.Code != http.StatusBadRequest {
		t.Errorf("invalid message status = %d, want 400", res.Code)
	}
}

func TestDataRoutes(t *testing.T) {
	e, _, rec := newTestServer(t)
	do(e, http.MethodPost, "/a2ui/messages", textSurface)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"read missing", http.MethodGet, "/a2ui/surfaces/chat/data/user/name", "", http.StatusNotFound},
		{"write", http.MethodPut, "/a2ui/surfaces/chat/data/user/name", `{"componentId": "field", "value": "Ada"}`, http.StatusNoContent},
		{"read", http.MethodGet, "/a2ui/surfaces/chat/data/user/name", "", http.StatusOK},
		{"read root", http.MethodGet, "/a2ui/surfaces/chat/data", "", http.StatusOK},
		{"conflict", http.MethodPut, "/a2ui/surfaces/chat/data/user/name/first", `{"value": "A"}`, http.StatusConflict},
		{"unknown surface", http.MethodPut, "/a2ui/surfaces/ghost/data/a", `{"value": 1}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := do(e, tt.method, tt.target, tt.body)
			if res.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", res.Code, tt.want, res.Body)
			}
		})
	}

	res := do(e, http.MethodGet, "/a2ui/surfaces/chat/data/user/name", "")
	var got string
	if err := json.Unmarshal(res.Body.Bytes(), &got); err != nil || got != "Ada" {
		t.Errorf("read body = %s", res.Body)
	}

	updates := rec.DataUpdates()
	if len(updates) != 1 || updates[0].ComponentID != "field" || updates[0].Path != "/user/name" {
		t.Errorf("outbound updates = %+v", updates)
	}
}

func TestDispatchAction(t *testing.T) {
	e, _, rec := newTestServer(t)
	do(e, http.MethodPost, "/a2ui/messages", textSurface)

	res := do(e, http.MethodPost, "/a2ui/actions", `{"name": "submit", "surfaceId": "chat", "sourceComponentId": "btn", "context": {"qty": 3}}`)
	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body)
	}
	actions := rec.UserActions()
	if len(actions) != 1 || actions[0].Name != "submit" || actions[0].Context["qty"] != 3.0 {
		t.Errorf("actions = %+v", actions)
	}

	if res := do(e, http.MethodPost, "/a2ui/actions", `{"surfaceId": "chat"}`); res.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", res.Code)
	}
	if res := do(e, http.MethodPost, "/a2ui/actions", `{"name": "x", "surfaceId": "ghost"}`); res.Code != http.StatusNotFound {
		t.Errorf("unknown surface status = %d, want 404", res.Code)
	}
}

func TestRenderText(t *testing.T) {
	e, sess, _ := newTestServer(t, WithClasses(markdown.TagClassMap{"p": {"reply"}}))
	do(e, http.MethodPost, "/a2ui/messages", textSurface)

	res := do(e, http.MethodGet, "/a2ui/surfaces/chat/text/reply", "")
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body)
	}
	if !strings.HasPrefix(res.Header().Get(echo.HeaderContentType), "text/html") {
		t.Errorf("content type = %q", res.Header().Get(echo.HeaderContentType))
	}
	if body := res.Body.String(); !strings.Contains(body, `<p class="reply">thinking</p>`) {
		t.Errorf("body = %q", body)
	}

	_ = sess.Resolver().ApplyRemoteUpdate(a2ui.DataUpdateMessage{SurfaceID: "chat", Path: "reply", Value: "**done**"})
	res = do(e, http.MethodGet, "/a2ui/surfaces/chat/text/reply", "")
	if body := res.Body.String(); !strings.Contains(body, "<strong>done</strong>") {
		t.Errorf("body after update = %q", body)
	}

	if res := do(e, http.MethodGet, "/a2ui/surfaces/chat/text/btn", ""); res.Code != http.StatusNotFound {
		t.Errorf("non-Text component status = %d, want 404", res.Code)
	}
}
