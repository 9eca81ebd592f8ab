// Package repository defines the external Repository facade the rest
// of this module depends on: everywhere object storage, refs, or a
// packs directory is needed, code takes a repository.Repository rather
// than reaching into a concrete on-disk layout directly.
package repository

import (
	"gitpack/object"
)

// Repository is the seam between this module's protocol/indexing logic
// and wherever objects and refs actually live. It is intentionally
// storage-agnostic: a real implementation might be backed by
// billy.Filesystem-rooted loose objects and packs, a database, or (as
// Memory below) a map, for tests.
type Repository interface {
	// Stat reports an object's type and size. An implementation may
	// read the whole object to learn them; Disk does.
	Stat(id object.ID) (typ object.Type, size int64, ok bool, err error)
	// Read returns an object's full inflated content.
	Read(id object.ID) (typ object.Type, content []byte, ok bool, err error)
	// Write stores a new object, returning its computed id.
	Write(typ object.Type, content []byte) (object.ID, error)

	// Ref resolves a symbolic or direct ref name to an object id.
	Ref(name string) (object.ID, bool)
	// Refs lists every ref this repository advertises, in the
	// deterministic order advertisement requires (HEAD first, then the
	// rest sorted by name — see protocol/packp.EncodeRefAdvertisement).
	Refs() []RefEntry

	// ObjectsDir returns the repository's top-level objects directory,
	// the root the Pack Indexer commits finished packs under.
	ObjectsDir() string
}

// RefEntry is one advertised (name, id) pair, optionally annotated with
// the commit id a tag peels to.
type RefEntry struct {
	Name    string
	ID      object.ID
	PeeledID object.ID
	Peeled   bool
}
