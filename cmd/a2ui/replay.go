package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pthm/a2ui"
	"github.com/pthm/a2ui/lib/encoding"
	"github.com/pthm/a2ui/lib/markdown"
)

// script is a replayable session: a list of steps applied in order.
//
//	steps:
//	  - server: {beginRendering: {surfaceId: form, root: root}}
//	  - write: {surface: form, component: qty, path: order.qty, value: 3}
//	  - action: {name: submit, surface: form, component: btn, context: {qty: 3}}
//	  - read: {surface: form, path: order.qty}
//	  - remove: form
type script struct {
	Steps []step `yaml:"steps"`
}

type step struct {
	Server map[string]any `yaml:"server,omitempty"`
	Write  *writeStep     `yaml:"write,omitempty"`
	Read   *readStep      `yaml:"read,omitempty"`
	Action *actionStep    `yaml:"action,omitempty"`
	Error  map[string]any `yaml:"error,omitempty"`
	Remove string         `yaml:"remove,omitempty"`
}

type writeStep struct {
	Surface   string `yaml:"surface"`
	Component string `yaml:"component"`
	Path      string `yaml:"path"`
	Value     any    `yaml:"value"`
}

type readStep struct {
	Surface string `yaml:"surface"`
	Path    string `yaml:"path"`
}

type actionStep struct {
	Name      string         `yaml:"name"`
	Surface   string         `yaml:"surface"`
	Component string         `yaml:"component"`
	Context   map[string]any `yaml:"context"`
}

func parseScript(data []byte) (*script, error) {
	var sc script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	for i, st := range sc.Steps {
		if n := st.kinds(); n != 1 {
			return nil, fmt.Errorf("step %d: expected exactly one action, got %d", i+1, n)
		}
	}
	return &sc, nil
}

func (s step) kinds() int {
	n := 0
	for _, set := range []bool{s.Server != nil, s.Write != nil, s.Read != nil, s.Action != nil, s.Error != nil, s.Remove != ""} {
		if set {
			n++
		}
	}
	return n
}

// replay drives sess through sc. Every outbound envelope and data update is
// encoded with codec and written to w, one per line, followed by the final
// data model of every live surface.
func replay(sess *a2ui.Session, codec *a2ui.Codec, sc *script, w io.Writer) error {
	d := sess.Dispatcher()

	var sendErr error
	emit := func(kind string, v any) {
		var (
			frame []byte
			err   error
		)
		switch m := v.(type) {
		case a2ui.ClientToServerMessage:
			frame, err = a2ui.EncodeEnvelope(codec, m)
		case a2ui.DataUpdateMessage:
			frame, err = a2ui.EncodeDataUpdate(codec, m)
		}
		if err != nil {
			if sendErr == nil {
				sendErr = err
			}
			return
		}
		fmt.Fprintf(w, "%s %s\n", kind, printable(codec, frame))
	}

	defer d.SubscribeUserActions(func(a a2ui.UserActionMessage) {
		emit("envelope", d.CreateUserActionMessage(a))
	}).Unsubscribe()
	defer d.SubscribeErrors(func(p a2ui.ErrorPayload) {
		emit("envelope", d.CreateErrorMessage(p))
	}).Unsubscribe()
	defer d.SubscribeDataUpdates(func(u a2ui.DataUpdateMessage) {
		emit("update", u)
	}).Unsubscribe()

	for i, st := range sc.Steps {
		if err := runStep(sess, st, w); err != nil {
			// Failures already went out on the error channel.
			fmt.Fprintf(w, "# step %d: %v\n", i+1, err)
		}
	}

	p := sess.Processor()
	for _, id := range p.SurfaceIDs() {
		s, ok := p.Surface(id)
		if !ok {
			continue
		}
		out, err := json.Marshal(s.Snapshot())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "surface %s %s\n", id, out)
	}
	return sendErr
}

func runStep(sess *a2ui.Session, st step, w io.Writer) error {
	switch {
	case st.Server != nil:
		raw, err := json.Marshal(st.Server)
		if err != nil {
			return err
		}
		return sess.Processor().ApplyServerJSON(raw)

	case st.Write != nil:
		return sess.Resolver().Write(st.Write.Surface, st.Write.Component, st.Write.Path, st.Write.Value)

	case st.Read != nil:
		v, err := sess.Resolver().Read(st.Read.Surface, st.Read.Path)
		if err != nil {
			return err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "read %s %s = %s\n", st.Read.Surface, st.Read.Path, out)
		return nil

	case st.Action != nil:
		d := sess.Dispatcher()
		d.DispatchUserAction(d.CreateUserAction(st.Action.Name, st.Action.Surface, st.Action.Component, st.Action.Context))
		return nil

	case st.Error != nil:
		sess.Dispatcher().DispatchError(st.Error)
		return nil

	case st.Remove != "":
		if !sess.Processor().RemoveSurface(st.Remove) {
			return fmt.Errorf("surface %q is not live", st.Remove)
		}
		return nil
	}
	return nil
}

// printable renders a frame for a line-oriented terminal. Binary msgpack
// frames are base64-encoded; JSON and signed frames are already text.
func printable(codec *a2ui.Codec, frame []byte) string {
	if codec.Format() == encoding.FormatMsgpack && !codec.Signed() {
		return base64.StdEncoding.EncodeToString(frame)
	}
	return string(frame)
}

// renderText prints the resolved text of every Text component of every live
// surface as sanitized HTML.
func renderText(sess *a2ui.Session, r *markdown.Renderer, w io.Writer) error {
	p := sess.Processor()
	for _, id := range p.SurfaceIDs() {
		s, ok := p.Surface(id)
		if !ok {
			continue
		}
		for _, c := range s.Components() {
			if c.Kind != a2ui.KindText {
				continue
			}
			bv, ok := a2ui.BoundValueOf(c.Properties["text"])
			if !ok {
				continue
			}
			v, err := sess.Resolver().Resolve(id, bv)
			if err != nil {
				fmt.Fprintf(w, "# %s/%s: %v\n", id, c.ID, err)
				continue
			}
			txt := fmt.Sprint(v)
			out := markdown.EscapeHTML(txt)
			if markdown.IsMarkdown(txt) {
				if out, err = r.Render(txt, nil); err != nil {
					return err
				}
			}
			fmt.Fprintf(w, "html %s/%s %s\n", id, c.ID, strings.TrimSpace(out))
		}
	}
	return nil
}
