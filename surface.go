package a2ui

import (
	"maps"
	"slices"
	"sync"
)

// SurfaceState is a surface's lifecycle state. Surfaces move
// Absent -> Live -> TornDown and never back; reusing a torn-down id creates
// a new, empty surface.
type SurfaceState int

const (
	SurfaceAbsent SurfaceState = iota
	SurfaceLive
	SurfaceTornDown
)

func (s SurfaceState) String() string {
	switch s {
	case SurfaceAbsent:
		return "absent"
	case SurfaceLive:
		return "live"
	case SurfaceTornDown:
		return "torn-down"
	}
	return "unknown"
}

// Change is delivered to bindings when bound data changes.
type Change struct {
	SurfaceID   string
	ComponentID string // writer for local changes, empty for remote ones
	Path        string
	Value       any
	Deleted     bool
	Origin      Origin
}

type pendingChange struct {
	Change
	path Path
}

type binding struct {
	id          uint64
	componentID string
	path        Path
	fn          func(Change)
}

// Surface is a named, addressable UI tree with its own bound-data store.
//
// A Surface is owned by a Processor. Callers may hold on to it, but it is
// mutated only through the Processor and its Resolver; after teardown every
// accessor returns empty results.
type Surface struct {
	id string

	mu          sync.RWMutex
	state       SurfaceState
	root        string
	styles      map[string]any
	components  map[string]*Component
	data        map[string]any
	bindings    []*binding
	nextBinding uint64

	// Binding notifications are queued and drained in mutation order by
	// whichever caller finds the queue idle.
	queueMu  sync.Mutex
	pending  []pendingChange
	draining bool
}

func newSurface(id string) *Surface {
	return &Surface{
		id:         id,
		state:      SurfaceLive,
		components: make(map[string]*Component),
		data:       make(map[string]any),
	}
}

// ID returns the surface identifier.
func (s *Surface) ID() string { return s.id }

// State returns the lifecycle state.
func (s *Surface) State() SurfaceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Root returns the root component id set by beginRendering, or "".
func (s *Surface) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Styles returns a copy of the styles sent with beginRendering.
func (s *Surface) Styles() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.styles == nil {
		return nil
	}
	return normalizeValue(s.styles).(map[string]any)
}

// Component returns a copy of the component with the given id.
func (s *Surface) Component(id string) (*Component, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.components[id]
	if !ok {
		return nil, false
	}
	return c.clone(), true
}

// Components returns copies of every component, ordered by id.
func (s *Surface) Components() []*Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := slices.Sorted(maps.Keys(s.components))
	out := make([]*Component, len(ids))
	for i, id := range ids {
		out[i] = s.components[id].clone()
	}
	return out
}

// Snapshot returns a deep copy of the bound-data store.
func (s *Surface) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return map[string]any{}
	}
	return normalizeValue(s.data).(map[string]any)
}

// beginRendering records the root component and styles.
func (s *Surface) beginRendering(root string, styles map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SurfaceLive {
		return false
	}
	s.root = root
	if styles != nil {
		s.styles = normalizeValue(styles).(map[string]any)
	}
	return true
}

// replaceComponents stores each component under its id, replacing any
// previous definition, and recomputes parent back-references.
func (s *Surface) replaceComponents(comps []*Component) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SurfaceLive {
		return false
	}
	for _, c := range comps {
		s.components[c.ID] = c
	}
	for _, c := range s.components {
		c.Parent = ""
	}
	for _, c := range s.components {
		for _, child := range c.Children() {
			if cc, ok := s.components[child]; ok && cc != c {
				cc.Parent = c.ID
			}
		}
	}
	return true
}

// bind registers a binding and returns its id, or 0 after teardown.
func (s *Surface) bind(componentID string, p Path, fn func(Change)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SurfaceLive {
		return 0
	}
	s.nextBinding++
	s.bindings = append(s.bindings, &binding{id: s.nextBinding, componentID: componentID, path: p, fn: fn})
	return s.nextBinding
}

func (s *Surface) unbind(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.bindings {
		if b.id == id {
			s.bindings = slices.Delete(slices.Clone(s.bindings), i, i+1)
			return true
		}
	}
	return false
}

// matching returns the bindings whose path overlaps p.
func (s *Surface) matching(p Path) []*binding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*binding
	for _, b := range s.bindings {
		if b.path.Overlaps(p) {
			out = append(out, b)
		}
	}
	return out
}

// teardown discards the store, tree and bindings. It is idempotent.
func (s *Surface) teardown() {
	s.mu.Lock()
	s.state = SurfaceTornDown
	s.root = ""
	s.styles = nil
	s.components = map[string]*Component{}
	s.data = nil
	s.bindings = nil
	s.mu.Unlock()

	s.queueMu.Lock()
	s.pending = nil
	s.queueMu.Unlock()
}
