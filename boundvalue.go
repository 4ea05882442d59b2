package a2ui

// BoundValue is a component property that is either a literal, a path into
// the surface's data model, or both:
//
//	{"literalString": "Hello"}
//	{"path": "user.name"}
//	{"path": "user.name", "literalString": "Anonymous"}
type BoundValue struct {
	Path           string   `json:"path,omitempty"`
	LiteralString  *string  `json:"literalString,omitempty"`
	LiteralNumber  *float64 `json:"literalNumber,omitempty"`
	LiteralBoolean *bool    `json:"literalBoolean,omitempty"`
	LiteralArray   []string `json:"literalArray,omitempty"`
}

// Literal returns the literal part of the value, if any.
func (b BoundValue) Literal() (any, bool) {
	switch {
	case b.LiteralString != nil:
		return *b.LiteralString, true
	case b.LiteralNumber != nil:
		return *b.LiteralNumber, true
	case b.LiteralBoolean != nil:
		return *b.LiteralBoolean, true
	case b.LiteralArray != nil:
		out := make([]any, len(b.LiteralArray))
		for i, s := range b.LiteralArray {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// BoundValueOf reads a BoundValue out of a decoded component property.
// It reports false when v is not a mapping or carries neither a path nor a
// literal.
func BoundValueOf(v any) (BoundValue, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return BoundValue{}, false
	}
	var b BoundValue
	if p, ok := m["path"].(string); ok {
		b.Path = p
	}
	if s, ok := m["literalString"].(string); ok {
		b.LiteralString = &s
	}
	switch n := m["literalNumber"].(type) {
	case float64:
		b.LiteralNumber = &n
	case int:
		f := float64(n)
		b.LiteralNumber = &f
	case int64:
		f := float64(n)
		b.LiteralNumber = &f
	}
	if t, ok := m["literalBoolean"].(bool); ok {
		b.LiteralBoolean = &t
	}
	if arr, ok := m["literalArray"].([]any); ok {
		b.LiteralArray = make([]string, 0, len(arr))
		for _, e := range arr {
			if s, ok := e.(string); ok {
				b.LiteralArray = append(b.LiteralArray, s)
			}
		}
	}
	if _, hasLit := b.Literal(); b.Path == "" && !hasLit {
		return BoundValue{}, false
	}
	return b, true
}
