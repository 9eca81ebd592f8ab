package repository

import (
	"sort"
	"sync"

	"gitpack/giterr"
	"gitpack/object"
)

// Memory is an in-memory Repository, grounded on the role
// `lxr/go.git-scm`'s `repository/mem` package plays in that pack's own
// test suite: a fast, dependency-free stand-in for exercising protocol
// and indexing logic without a real objects directory.
type Memory struct {
	mu      sync.RWMutex
	objects map[object.ID]storedObject
	refs    map[string]object.ID
	peeled  map[string]object.ID
}

type storedObject struct {
	typ     object.Type
	content []byte
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[object.ID]storedObject),
		refs:    make(map[string]object.ID),
		peeled:  make(map[string]object.ID),
	}
}

func (m *Memory) Stat(id object.ID) (object.Type, int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[id]
	if !ok {
		return object.Bad, 0, false, nil
	}
	return o.typ, int64(len(o.content)), true, nil
}

func (m *Memory) Read(id object.ID) (object.Type, []byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[id]
	if !ok {
		return object.Bad, nil, false, nil
	}
	out := make([]byte, len(o.content))
	copy(out, o.content)
	return o.typ, out, true, nil
}

func (m *Memory) Write(typ object.Type, content []byte) (object.ID, error) {
	if !typ.Storable() {
		return object.ZeroID, giterr.Wrap(giterr.KindInvalidFormat, "cannot store object of type %v", typ)
	}
	id := object.ComputeID(typ, content)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.objects[id]; ok {
		if existing.typ != typ || len(existing.content) != len(content) {
			return object.ZeroID, giterr.Wrap(giterr.KindObjectCollision, "object %s already exists with different content", id)
		}
		return id, nil
	}
	stored := make([]byte, len(content))
	copy(stored, content)
	m.objects[id] = storedObject{typ: typ, content: stored}
	return id, nil
}

// SetRef points name at id, for test setup.
func (m *Memory) SetRef(name string, id object.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[name] = id
}

// SetPeeledRef points name at a tag object id whose annotated tag
// peels to target (a commit, typically), recording that peel so
// Refs() reports it the way a real annotated-tag ref does.
func (m *Memory) SetPeeledRef(name string, tagID, target object.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[name] = tagID
	m.peeled[name] = target
}

func (m *Memory) Ref(name string) (object.ID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.refs[name]
	return id, ok
}

func (m *Memory) Refs() []RefEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.refs))
	for name := range m.refs {
		if name != "HEAD" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	entry := func(name string) RefEntry {
		e := RefEntry{Name: name, ID: m.refs[name]}
		if target, ok := m.peeled[name]; ok {
			e.Peeled = true
			e.PeeledID = target
		}
		return e
	}

	var out []RefEntry
	if _, ok := m.refs["HEAD"]; ok {
		out = append(out, entry("HEAD"))
	}
	for _, name := range names {
		out = append(out, entry(name))
	}
	return out
}

func (m *Memory) ObjectsDir() string { return "" }
