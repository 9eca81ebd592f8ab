package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitpack/giterr"
	"gitpack/object"
)

type fakeStore struct {
	objects map[object.ID]Entry
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[object.ID]Entry)}
}

func (s *fakeStore) put(content []byte) object.ID {
	id := object.ComputeID(object.Blob, content)
	s.objects[id] = Entry{Type: object.Blob, Content: content}
	return id
}

func (s *fakeStore) Stat(id object.ID) (object.Type, int64, bool, error) {
	e, ok := s.objects[id]
	if !ok {
		return object.Bad, 0, false, nil
	}
	return e.Type, int64(len(e.Content)), true, nil
}

func (s *fakeStore) Read(id object.ID) (object.Type, []byte, bool, error) {
	e, ok := s.objects[id]
	if !ok {
		return object.Bad, nil, false, nil
	}
	return e.Type, e.Content, true, nil
}

func TestGatewayOpenReturnsStoredContent(t *testing.T) {
	store := newFakeStore()
	id := store.put([]byte("hello"))
	g := New(store, 10)

	typ, content, err := g.Open(id)
	require.NoError(t, err)
	require.Equal(t, object.Blob, typ)
	require.Equal(t, []byte("hello"), content)
}

func TestGatewayOpenMissingObjectIsMissingBase(t *testing.T) {
	g := New(newFakeStore(), 10)
	_, _, err := g.Open(object.ID{0x1})
	require.Equal(t, giterr.KindMissingBase, giterr.KindOf(err))
}

func TestGatewayHas(t *testing.T) {
	store := newFakeStore()
	id := store.put([]byte("content"))
	g := New(store, 0)
	require.True(t, g.Has(id))
	require.False(t, g.Has(object.ID{0x1}))
}

func TestGatewayVerifyDetectsCollision(t *testing.T) {
	store := newFakeStore()
	id := store.put([]byte("original"))
	g := New(store, 0)

	require.NoError(t, g.Verify(id, object.Blob, []byte("original")))
	err := g.Verify(id, object.Blob, []byte("different"))
	require.Equal(t, giterr.KindObjectCollision, giterr.KindOf(err))
}

func TestGatewayHotCacheEvictsOldestBeyondCap(t *testing.T) {
	store := newFakeStore()
	a := store.put([]byte("a"))
	b := store.put([]byte("b"))
	c := store.put([]byte("c"))

	g := New(store, 2)
	_, _, err := g.Open(a)
	require.NoError(t, err)
	_, _, err = g.Open(b)
	require.NoError(t, err)
	_, _, err = g.Open(c)
	require.NoError(t, err)

	_, stillHot := g.peek(a)
	require.False(t, stillHot)
	_, hotB := g.peek(b)
	require.True(t, hotB)
	_, hotC := g.peek(c)
	require.True(t, hotC)
}
