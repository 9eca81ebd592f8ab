// Package cache implements the Object Cache Gateway: the single point
// every other component goes through to read, stat or collision-check
// a loose or packed object, with in-flight-request deduplication.
package cache

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"gitpack/giterr"
	"gitpack/object"
)

// Store is the backing object store the gateway fronts: a repository's
// loose-object directory plus its packs, or an in-memory stand-in for
// tests.
type Store interface {
	// Stat reports an object's type and size without reading its full
	// content, or (false, nil) if the store doesn't have it.
	Stat(id object.ID) (typ object.Type, size int64, ok bool, err error)
	// Read returns an object's full inflated content.
	Read(id object.ID) (typ object.Type, content []byte, ok bool, err error)
}

// Entry is one cached object: its bytes plus a strong type, ready to
// hand back to a caller without another inflate.
type Entry struct {
	Type    object.Type
	Content []byte
}

// Gateway is the Object Cache Gateway. It dedupes concurrent opens of
// the same id (via singleflight) and keeps a bounded set of recently
// read objects in memory to avoid re-inflating hot objects (pack
// headers, root trees) repeatedly within one RPC.
//
// A Gateway also satisfies pack.CollisionChecker and
// pack.BaseSource structurally, so it can be handed straight to the
// indexer without either package importing the other.
type Gateway struct {
	store Store
	group singleflight.Group

	mu       sync.Mutex
	hot      map[object.ID]Entry
	hotOrder []object.ID
	hotCap   int
}

// New builds a Gateway over store, retaining up to hotCap recently
// read entries in memory (0 disables the hot cache, relying on store
// alone).
func New(store Store, hotCap int) *Gateway {
	return &Gateway{
		store:  store,
		hot:    make(map[object.ID]Entry),
		hotCap: hotCap,
	}
}

// Has reports whether id is known to the store, without reading it.
func (g *Gateway) Has(id object.ID) bool {
	if _, ok := g.peek(id); ok {
		return true
	}
	_, _, ok, err := g.store.Stat(id)
	return err == nil && ok
}

// Open returns the inflated bytes of id, deduplicating concurrent
// requests for the same id across goroutines.
func (g *Gateway) Open(id object.ID) (object.Type, []byte, error) {
	if e, ok := g.peek(id); ok {
		return e.Type, e.Content, nil
	}

	v, err, _ := g.group.Do(id.String(), func() (interface{}, error) {
		typ, content, ok, err := g.store.Read(id)
		if err != nil {
			return nil, giterr.Wrap(giterr.KindWalkInternal, "reading object %s: %v", id, err)
		}
		if !ok {
			return nil, giterr.Wrap(giterr.KindMissingBase, "object %s not found", id)
		}
		e := Entry{Type: typ, Content: content}
		g.remember(id, e)
		return e, nil
	})
	if err != nil {
		return object.Bad, nil, err
	}
	e := v.(Entry)
	return e.Type, e.Content, nil
}

// Get adapts Open to the pack.BaseSource shape used by thin-pack
// completion.
func (g *Gateway) Get(id object.ID) (object.Type, []byte, error) {
	return g.Open(id)
}

// Verify adapts the gateway to pack.CollisionChecker: an id already
// present in the store with different content than what's being
// inserted is a hash collision, not a valid dedup.
func (g *Gateway) Verify(id object.ID, typ object.Type, content []byte) error {
	existingTyp, existingContent, ok, err := g.store.Read(id)
	if err != nil || !ok {
		return nil
	}
	if existingTyp != typ || !bytesEqual(existingContent, content) {
		return giterr.Wrap(giterr.KindObjectCollision, "object %s already exists with different content", id)
	}
	return nil
}

func (g *Gateway) peek(id object.ID) (Entry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.hot[id]
	return e, ok
}

func (g *Gateway) remember(id object.ID, e Entry) {
	if g.hotCap <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.hot[id]; !exists {
		if len(g.hotOrder) >= g.hotCap {
			oldest := g.hotOrder[0]
			g.hotOrder = g.hotOrder[1:]
			delete(g.hot, oldest)
		}
		g.hotOrder = append(g.hotOrder, id)
	}
	g.hot[id] = e
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer for debugging/log output.
func (g *Gateway) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("cache.Gateway{hot=%d/%d}", len(g.hot), g.hotCap)
}
