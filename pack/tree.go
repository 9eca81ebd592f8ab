package pack

import (
	"bytes"

	"gitpack/giterr"
	"gitpack/object"
)

// treeEntryKind classifies one decoded tree entry by its file mode.
type treeEntryKind int

const (
	treeEntryBlob treeEntryKind = iota
	treeEntrySubtree
	treeEntryGitlink
)

type treeEntry struct {
	mode string
	name string
	id   object.ID
	kind treeEntryKind
}

// parseTree decodes a raw tree object body: a sequence of
// "<mode> <name>\x00<20-byte id>" records with no separator between
// records. Grounded on go-git's plumbing/object/tree.go decode loop.
func parseTree(content []byte) ([]treeEntry, error) {
	var out []treeEntry
	for len(content) > 0 {
		sp := bytes.IndexByte(content, ' ')
		if sp < 0 {
			return nil, giterr.Wrap(giterr.KindInvalidFormat, "tree entry missing mode separator")
		}
		mode := string(content[:sp])
		rest := content[sp+1:]

		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil, giterr.Wrap(giterr.KindInvalidFormat, "tree entry missing name terminator")
		}
		name := string(rest[:nul])
		rest = rest[nul+1:]

		if len(rest) < object.Size {
			return nil, giterr.Wrap(giterr.KindTruncatedInput, "tree entry %q missing object id", name)
		}
		var id object.ID
		copy(id[:], rest[:object.Size])

		out = append(out, treeEntry{mode: mode, name: name, id: id, kind: modeKind(mode)})
		content = rest[object.Size:]
	}
	return out, nil
}

// modeKind classifies a tree entry's octal mode string.
func modeKind(mode string) treeEntryKind {
	switch mode {
	case "40000", "040000":
		return treeEntrySubtree
	case "160000":
		return treeEntryGitlink
	default:
		return treeEntryBlob
	}
}
