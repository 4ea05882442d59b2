package a2ui

import (
	"maps"
	"time"
)

// Context is the free-form payload attached to a user action.
//
// Keys are unique; values are any JSON-serializable scalar, sequence or
// mapping. Consumers must tolerate keys they do not recognise.
type Context = map[string]any

// ErrorPayload describes a local failure. It has no fixed schema and the
// dispatcher treats it as opaque. Payloads produced by this package carry
// at least "code" and "message" (see ErrorCode).
type ErrorPayload = map[string]any

// UserActionMessage is one discrete user interaction, e.g. a button press.
//
// Construct it with Dispatcher.CreateUserAction so the timestamp comes from
// the session clock. Treat the value as immutable once constructed.
type UserActionMessage struct {
	Name              string    `json:"name"`
	SurfaceID         string    `json:"surfaceId"`
	SourceComponentID string    `json:"sourceComponentId"`
	Timestamp         time.Time `json:"timestamp"`
	Context           Context   `json:"context"`
}

// DataUpdateMessage is a single value change at a path within a surface.
//
// A nil Value means the path was deleted.
type DataUpdateMessage struct {
	SurfaceID   string    `json:"surfaceId"`
	ComponentID string    `json:"componentId"`
	Path        string    `json:"path"`
	Value       any       `json:"value,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// IsDelete reports whether the update removes the value at Path.
func (m DataUpdateMessage) IsDelete() bool {
	return m.Value == nil
}

// ClientToServerMessage is the outbound envelope. At most one of UserAction
// and Error is populated; the Create*Message factories only ever fill one
// slot, and Validate rejects envelopes decoded from elsewhere that fill both.
type ClientToServerMessage struct {
	UserAction *UserActionMessage `json:"userAction,omitempty"`
	Error      ErrorPayload       `json:"error,omitzero"`
}

// Validate returns ErrMalformedEnvelope when both slots are populated.
// An empty envelope is valid.
func (m ClientToServerMessage) Validate() error {
	if m.UserAction != nil && m.Error != nil {
		return ErrMalformedEnvelope
	}
	return nil
}

// IsEmpty reports whether neither slot is populated.
func (m ClientToServerMessage) IsEmpty() bool {
	return m.UserAction == nil && m.Error == nil
}

// ServerToClientMessage is an inbound agent message. Exactly one field is
// set on a well-formed message.
type ServerToClientMessage struct {
	BeginRendering  *BeginRendering  `json:"beginRendering,omitempty"`
	SurfaceUpdate   *SurfaceUpdate   `json:"surfaceUpdate,omitempty"`
	DataModelUpdate *DataModelUpdate `json:"dataModelUpdate,omitempty"`
	DeleteSurface   *DeleteSurface   `json:"deleteSurface,omitempty"`
}

// SurfaceID returns the surface the message addresses, or "" if the message
// is empty.
func (m ServerToClientMessage) SurfaceID() string {
	switch {
	case m.BeginRendering != nil:
		return m.BeginRendering.SurfaceID
	case m.SurfaceUpdate != nil:
		return m.SurfaceUpdate.SurfaceID
	case m.DataModelUpdate != nil:
		return m.DataModelUpdate.SurfaceID
	case m.DeleteSurface != nil:
		return m.DeleteSurface.SurfaceID
	}
	return ""
}

func (m ServerToClientMessage) populated() int {
	n := 0
	if m.BeginRendering != nil {
		n++
	}
	if m.SurfaceUpdate != nil {
		n++
	}
	if m.DataModelUpdate != nil {
		n++
	}
	if m.DeleteSurface != nil {
		n++
	}
	return n
}

// BeginRendering tells the client which component is the root of a surface.
type BeginRendering struct {
	SurfaceID string         `json:"surfaceId"`
	Root      string         `json:"root"`
	Styles    map[string]any `json:"styles,omitempty"`
}

// SurfaceUpdate adds or replaces components within a surface.
type SurfaceUpdate struct {
	SurfaceID  string              `json:"surfaceId"`
	Components []ComponentInstance `json:"components"`
}

// ComponentInstance is the wire form of one component. Component holds a
// single key, the component kind, mapped to its properties:
//
//	{"id": "title", "component": {"Text": {"text": {"literalString": "Hi"}}}}
type ComponentInstance struct {
	ID        string                    `json:"id"`
	Weight    *float64                  `json:"weight,omitempty"`
	Component map[string]map[string]any `json:"component"`
}

// DataModelUpdate replaces values in a surface's data model. Each entry of
// Contents is applied at Path joined with the entry key.
type DataModelUpdate struct {
	SurfaceID string      `json:"surfaceId"`
	Path      string      `json:"path,omitempty"`
	Contents  []DataEntry `json:"contents"`
}

// DataEntry is one typed key/value pair of a DataModelUpdate. Exactly one
// Value* field is expected; an entry with none of them deletes Key.
type DataEntry struct {
	Key          string      `json:"key"`
	ValueString  *string     `json:"valueString,omitempty"`
	ValueNumber  *float64    `json:"valueNumber,omitempty"`
	ValueBoolean *bool       `json:"valueBoolean,omitempty"`
	ValueMap     []DataEntry `json:"valueMap,omitempty"`
}

// Value converts the entry to a plain Go value: string, float64, bool,
// map[string]any, or nil.
func (e DataEntry) Value() any {
	switch {
	case e.ValueString != nil:
		return *e.ValueString
	case e.ValueNumber != nil:
		return *e.ValueNumber
	case e.ValueBoolean != nil:
		return *e.ValueBoolean
	case e.ValueMap != nil:
		m := make(map[string]any, len(e.ValueMap))
		for _, child := range e.ValueMap {
			if !child.HasValue() {
				continue
			}
			m[child.Key] = child.Value()
		}
		return m
	}
	return nil
}

// HasValue reports whether any value field is set. An entry without one
// deletes its key.
func (e DataEntry) HasValue() bool {
	return e.ValueString != nil || e.ValueNumber != nil || e.ValueBoolean != nil || e.ValueMap != nil
}

// DeleteSurface tears a surface down.
type DeleteSurface struct {
	SurfaceID string `json:"surfaceId"`
}

// copyContext returns a shallow copy so callers cannot mutate a constructed
// message through the map they passed in.
func copyContext(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}
