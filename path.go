package a2ui

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Segment is one step of a Path. Key is always set; Index is the numeric
// value of Key when Key is a non-negative integer without leading zeros, and
// -1 otherwise. Numeric segments address sequence elements, or plain keys
// when the container turns out to be a mapping.
type Segment struct {
	Key   string
	Index int
}

// IsIndex reports whether the segment can address a sequence element.
func (s Segment) IsIndex() bool { return s.Index >= 0 }

// Path is a parsed data path. The empty Path addresses the store root.
type Path []Segment

// ParsePath parses a dotted path ("user.addresses.0.city") or a slash path
// ("/user/addresses/0/city"). Slash paths accept JSON Pointer escapes
// (~0 for "~", ~1 for "/"). "" and "/" parse to the root path.
func ParsePath(s string) (Path, error) {
	if s == "" || s == "/" {
		return Path{}, nil
	}

	var parts []string
	if strings.HasPrefix(s, "/") {
		parts = strings.Split(strings.TrimSuffix(s[1:], "/"), "/")
		for i, p := range parts {
			parts[i] = strings.NewReplacer("~1", "/", "~0", "~").Replace(p)
		}
	} else {
		parts = strings.Split(s, ".")
	}

	p := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, s)
		}
		p = append(p, newSegment(part))
	}
	return p, nil
}

func newSegment(key string) Segment {
	seg := Segment{Key: key, Index: -1}
	if key == "0" || (key[0] >= '1' && key[0] <= '9') {
		if n, err := strconv.Atoi(key); err == nil && n >= 0 {
			seg.Index = n
		}
	}
	return seg
}

// String returns the canonical dotted form of the path.
func (p Path) String() string {
	keys := make([]string, len(p))
	for i, s := range p {
		keys[i] = s.Key
	}
	return strings.Join(keys, ".")
}

// IsRoot reports whether p addresses the whole store.
func (p Path) IsRoot() bool { return len(p) == 0 }

// HasPrefix reports whether prefix is p itself or an ancestor of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if prefix[i].Key != p[i].Key {
			return false
		}
	}
	return true
}

// Overlaps reports whether a change at one path can affect a value read at
// the other: one is an ancestor of, or equal to, the other.
func (p Path) Overlaps(other Path) bool {
	return p.HasPrefix(other) || other.HasPrefix(p)
}

// JoinPath appends key to base, keeping base's notation.
func JoinPath(base, key string) string {
	switch {
	case base == "" || base == "/":
		if strings.HasPrefix(base, "/") {
			return "/" + key
		}
		return key
	case strings.HasPrefix(base, "/"):
		return strings.TrimSuffix(base, "/") + "/" + key
	}
	return base + "." + key
}

// lookup walks root along p. It never creates anything.
func lookup(root map[string]any, p Path) (any, bool) {
	var cur any = root
	for _, seg := range p {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[seg.Key]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			if !seg.IsIndex() || seg.Index >= len(c) {
				return nil, false
			}
			cur = c[seg.Index]
		default:
			return nil, false
		}
	}
	return cur, true
}

// assigner writes into a store. New containers are attached to their parent
// only after the write below them succeeded, so a failed write leaves the
// store untouched.
type assigner struct {
	policy PathPolicy
	maxGap int
}

// assign sets (or, when del is true, removes) the value at p beneath
// container and returns the container to store in place of the original.
// depth counts the segments already consumed, for error messages and the
// strict policy.
func (a assigner) assign(container any, p Path, depth int, value any, del bool) (any, error) {
	seg := p[depth]
	last := depth == len(p)-1

	if container == nil {
		if del {
			return nil, nil
		}
		if a.policy == PathPolicyStrict && depth > 0 {
			return nil, a.conflict(p, "missing intermediate container")
		}
		if seg.IsIndex() {
			container = []any{}
		} else {
			container = map[string]any{}
		}
	}

	switch c := container.(type) {
	case map[string]any:
		if last {
			if del {
				delete(c, seg.Key)
			} else {
				c[seg.Key] = value
			}
			return c, nil
		}
		child, err := a.assign(c[seg.Key], p, depth+1, value, del)
		if err != nil {
			return nil, err
		}
		if child != nil {
			c[seg.Key] = child
		}
		return c, nil

	case []any:
		if !seg.IsIndex() {
			return nil, a.conflict(p, fmt.Sprintf("segment %q is not an index into a sequence", seg.Key))
		}
		idx := seg.Index
		if idx >= len(c) {
			if del {
				return c, nil
			}
			if a.policy == PathPolicyStrict && idx > len(c) {
				return nil, a.conflict(p, fmt.Sprintf("index %d leaves a gap after length %d", idx, len(c)))
			}
			if a.maxGap > 0 && idx-len(c) > a.maxGap {
				return nil, a.conflict(p, fmt.Sprintf("index %d exceeds the maximum gap of %d after length %d", idx, a.maxGap, len(c)))
			}
		}

		var child any
		if idx < len(c) {
			child = c[idx]
		}
		if !last {
			var err error
			if child, err = a.assign(child, p, depth+1, value, del); err != nil {
				return nil, err
			}
			if child == nil {
				return c, nil
			}
		} else if del {
			if idx < len(c) {
				c[idx] = nil
			}
			return c, nil
		} else {
			child = value
		}

		for len(c) <= idx {
			c = append(c, nil)
		}
		c[idx] = child
		return c, nil
	}

	return nil, a.conflict(p, fmt.Sprintf("cannot traverse %T at %q", container, p[:depth].String()))
}

func (a assigner) conflict(p Path, reason string) error {
	return &PathError{Path: p.String(), Reason: reason, Err: ErrPathConflict}
}

// normalizeValue deep-copies maps and slices into map[string]any and []any
// so that later writes can traverse them and callers cannot mutate stored
// data behind the resolver's back. Other values are returned unchanged.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case string, bool, float64, float32, int, int64, int32, uint, uint64, []byte:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalizeValue(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalizeValue(rv.Index(i).Interface())
		}
		return out
	}
	return v
}
