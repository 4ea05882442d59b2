package a2ui

import (
	"maps"
	"slices"
)

// ComponentKind is the catalog name of a component.
type ComponentKind string

// Standard catalog kinds. Kinds outside this list are kept verbatim; the
// catalog itself belongs to the rendering layer.
const (
	KindText           ComponentKind = "Text"
	KindImage          ComponentKind = "Image"
	KindIcon           ComponentKind = "Icon"
	KindVideo          ComponentKind = "Video"
	KindAudioPlayer    ComponentKind = "AudioPlayer"
	KindRow            ComponentKind = "Row"
	KindColumn         ComponentKind = "Column"
	KindList           ComponentKind = "List"
	KindCard           ComponentKind = "Card"
	KindTabs           ComponentKind = "Tabs"
	KindDivider        ComponentKind = "Divider"
	KindModal          ComponentKind = "Modal"
	KindButton         ComponentKind = "Button"
	KindCheckBox       ComponentKind = "CheckBox"
	KindTextField      ComponentKind = "TextField"
	KindDateTimeInput  ComponentKind = "DateTimeInput"
	KindMultipleChoice ComponentKind = "MultipleChoice"
	KindSlider         ComponentKind = "Slider"
)

// Component is one node of a surface tree.
//
// Parent is a back-reference by id only; it never implies ownership. It is
// derived from the children declared by other components of the same
// surface and is empty for the root and for detached components.
type Component struct {
	ID         string
	Kind       ComponentKind
	Weight     *float64
	Properties map[string]any
	Parent     string
}

// componentFromWire converts a ComponentInstance. The instance must carry
// exactly one kind.
func componentFromWire(in ComponentInstance) (*Component, bool) {
	if in.ID == "" || len(in.Component) != 1 {
		return nil, false
	}
	for kind, props := range in.Component {
		return &Component{
			ID:         in.ID,
			Kind:       ComponentKind(kind),
			Weight:     in.Weight,
			Properties: normalizeValue(map[string]any(props)).(map[string]any),
		}, true
	}
	return nil, false
}

// Children returns the ids of the components this one contains, from the
// "child", "children.explicitList", "tabItems[].child", "entryPointChild"
// and "contentChild" properties.
func (c *Component) Children() []string {
	var ids []string
	for _, key := range []string{"child", "entryPointChild", "contentChild"} {
		if id, ok := c.Properties[key].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	if children, ok := c.Properties["children"].(map[string]any); ok {
		if list, ok := children["explicitList"].([]any); ok {
			for _, v := range list {
				if id, ok := v.(string); ok && id != "" {
					ids = append(ids, id)
				}
			}
		}
	}
	if tabs, ok := c.Properties["tabItems"].([]any); ok {
		for _, t := range tabs {
			if tab, ok := t.(map[string]any); ok {
				if id, ok := tab["child"].(string); ok && id != "" {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

// BoundPaths returns every data path the component reads or writes: each
// property value of the form {"path": "..."}, at any depth. The result is
// sorted and free of duplicates.
func (c *Component) BoundPaths() []string {
	seen := map[string]struct{}{}
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			if p, ok := t["path"].(string); ok && p != "" {
				seen[p] = struct{}{}
			}
			for _, e := range t {
				walk(e)
			}
		case []any:
			for _, e := range t {
				walk(e)
			}
		}
	}
	walk(c.Properties)
	return slices.Sorted(maps.Keys(seen))
}

// clone returns a deep copy safe to hand to callers.
func (c *Component) clone() *Component {
	cp := *c
	cp.Properties = normalizeValue(c.Properties).(map[string]any)
	return &cp
}
