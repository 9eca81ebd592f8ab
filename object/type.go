// Package object defines the identity and kind primitives shared by the
// pack codec, indexer and upload-pack negotiator: the 20-byte object id
// and the small set of object kinds a pack can carry.
package object

import "fmt"

// Type is the tagged variant of a Git object kind. Only Commit, Tree,
// Blob and Tag may be stored resolved; OfsDelta and RefDelta always
// resolve to one of those four before they can be stored.
type Type uint8

const (
	Bad Type = iota
	Commit
	Tree
	Blob
	Tag
	// 5 is unused in the wire format, kept to match the on-disk type codes.
	_reserved5
	OfsDelta
	RefDelta
)

func (t Type) String() string {
	switch t {
	case Commit:
		return "commit"
	case Tree:
		return "tree"
	case Blob:
		return "blob"
	case Tag:
		return "tag"
	case OfsDelta:
		return "ofs-delta"
	case RefDelta:
		return "ref-delta"
	default:
		return "bad"
	}
}

// IsDelta reports whether t is one of the two delta encodings.
func (t Type) IsDelta() bool {
	return t == OfsDelta || t == RefDelta
}

// Valid reports whether t is a code that may legally appear in a pack
// object header.
func (t Type) Valid() bool {
	switch t {
	case Commit, Tree, Blob, Tag, OfsDelta, RefDelta:
		return true
	default:
		return false
	}
}

// Storable reports whether t may be written to the final, resolved
// index — i.e. it is not itself a delta.
func (t Type) Storable() bool {
	switch t {
	case Commit, Tree, Blob, Tag:
		return true
	default:
		return false
	}
}

// ParseType maps a loose, human-entered type name (as used on the wire
// for REF-delta fallback diagnostics and in tests) back to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "commit":
		return Commit, nil
	case "tree":
		return Tree, nil
	case "blob":
		return Blob, nil
	case "tag":
		return Tag, nil
	default:
		return Bad, fmt.Errorf("object: unknown type %q", s)
	}
}
