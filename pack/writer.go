package pack

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pjbgf/sha1cd"

	"gitpack/giterr"
	"gitpack/object"
	"gitpack/repository"
	"gitpack/walker"
)

// FilterKind selects a partial-clone object filter, spec.md section
// 4.6's "blob:none"/"blob:limit" options.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterBlobNone
	FilterBlobLimit
)

// Filter narrows which blobs a Writer includes in its output.
type Filter struct {
	Kind  FilterKind
	Limit int64
}

// ParseFilter decodes a protocol "filter" argument (e.g. "blob:none",
// "blob:limit=1024"). An empty spec is FilterNone.
func ParseFilter(spec string) (Filter, error) {
	switch {
	case spec == "":
		return Filter{Kind: FilterNone}, nil
	case spec == "blob:none":
		return Filter{Kind: FilterBlobNone}, nil
	case strings.HasPrefix(spec, "blob:limit="):
		n, err := strconv.ParseInt(strings.TrimPrefix(spec, "blob:limit="), 10, 64)
		if err != nil {
			return Filter{}, giterr.Wrap(giterr.KindProtocolViolation, "bad blob:limit value in filter %q: %v", spec, err)
		}
		return Filter{Kind: FilterBlobLimit, Limit: n}, nil
	default:
		return Filter{}, giterr.Wrap(giterr.KindProtocolViolation, "unsupported filter %q", spec)
	}
}

// excludes reports whether a blob of the given size should be dropped
// under f.
func (f Filter) excludes(size int64) bool {
	switch f.Kind {
	case FilterBlobNone:
		return true
	case FilterBlobLimit:
		return size > f.Limit
	default:
		return false
	}
}

// ReuseSource lets a Writer emit an object's bytes exactly as they
// already sit, zlib-compressed, in some existing pack, instead of
// recompressing the repository's loose copy — the "object reuse"
// optimization spec.md section 4.6 names. Optional: a Writer with none
// configured always recompresses from repository.Repository.Read.
type ReuseSource interface {
	// Deflated returns id's zlib-compressed bytes exactly as packed,
	// and true, if cheaply available.
	Deflated(id object.ID) ([]byte, bool)
}

// WriteRequest is one Pack Writer invocation: the tips to include, the
// tips already known common (excluded, along with their ancestors),
// and the optional include-tag/filter refinements.
type WriteRequest struct {
	Wants      []object.ID
	Haves      []object.ID
	IncludeTag bool
	Filter     Filter
}

// WriteResult summarizes a completed write.
type WriteResult struct {
	ObjectCount int
	Footer      object.ID
}

// Writer enumerates every object reachable from a want set but not
// from a have set, sorts it into canonical pack order, and streams it
// out as a complete pack. Grounded on lxr/go.git-scm's
// protocol.UploadPack pack-assembly tail end: its objHeaderSlice sort
// (type ascending, then size descending) and its final
// packfile.NewWriter/WriteObject/Close sequence, adapted here to this
// module's own Header/writeSyntheticObject codec instead of go-git's
// packfile types.
type Writer struct {
	repo  repository.Repository
	walk  *walker.Walker
	reuse ReuseSource
}

// NewWriter returns a Writer reading objects from repo.
func NewWriter(repo repository.Repository) *Writer {
	return &Writer{repo: repo, walk: walker.New(repo)}
}

// SetReuseSource installs an optional object-reuse source.
func (w *Writer) SetReuseSource(r ReuseSource) {
	w.reuse = r
}

type writeEntry struct {
	id      object.ID
	typ     object.Type
	content []byte
}

// Write streams the pack satisfying req to out.
func (w *Writer) Write(out io.Writer, req WriteRequest) (WriteResult, error) {
	for _, id := range req.Wants {
		if err := w.walk.MarkStart(id); err != nil {
			return WriteResult{}, err
		}
	}
	for _, id := range req.Haves {
		if err := w.walk.MarkUninteresting(id); err != nil {
			return WriteResult{}, err
		}
	}

	seen := object.NewSet()
	included := object.NewSet()
	var entries []writeEntry

	add := func(id object.ID, typ object.Type, content []byte) {
		if seen.Has(id) {
			return
		}
		seen.Add(id)
		entries = append(entries, writeEntry{id: id, typ: typ, content: content})
	}

	for {
		r, err := w.walk.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return WriteResult{}, err
		}
		if r.Uninteresting {
			continue
		}

		typ, content, ok, err := w.repo.Read(r.ID)
		if err != nil {
			return WriteResult{}, err
		}
		if !ok {
			return WriteResult{}, giterr.Wrap(giterr.KindMissingBase, "commit %s reachable but missing from repository", r.ID)
		}
		add(r.ID, typ, content)
		included.Add(r.ID)

		if err := w.addTree(r.Tree, req.Filter, add); err != nil {
			return WriteResult{}, err
		}
	}

	if req.IncludeTag {
		for _, ref := range w.repo.Refs() {
			if !ref.Peeled || !included.Has(ref.PeeledID) {
				continue
			}
			typ, content, ok, err := w.repo.Read(ref.ID)
			if err != nil {
				return WriteResult{}, err
			}
			if ok && typ == object.Tag {
				add(ref.ID, typ, content)
			}
		}
	}

	sortCanonical(entries)

	hasher := sha1cd.New()
	tee := io.MultiWriter(out, hasher)

	if err := WriteHeader(tee, Header{Version: Version2, ObjectsQty: uint32(len(entries))}); err != nil {
		return WriteResult{}, err
	}

	for _, e := range entries {
		code, err := typeCode(e.typ)
		if err != nil {
			return WriteResult{}, err
		}
		if raw, ok := w.reuseBytes(e.id); ok {
			header := writeObjectHeader(code, uint64(len(e.content)))
			if _, err := tee.Write(header); err != nil {
				return WriteResult{}, err
			}
			if _, err := tee.Write(raw); err != nil {
				return WriteResult{}, err
			}
			continue
		}
		if err := writeSyntheticObject(tee, code, e.content); err != nil {
			return WriteResult{}, err
		}
	}

	var footer object.ID
	copy(footer[:], hasher.Sum(nil))
	if _, err := out.Write(footer[:]); err != nil {
		return WriteResult{}, err
	}

	return WriteResult{ObjectCount: len(entries), Footer: footer}, nil
}

func (w *Writer) reuseBytes(id object.ID) ([]byte, bool) {
	if w.reuse == nil {
		return nil, false
	}
	return w.reuse.Deflated(id)
}

// addTree walks a tree object and every subtree/blob it reaches,
// applying f to blobs and deduplicating against everything add has
// already accepted. Submodule (gitlink) entries are skipped outright:
// their target lives in a different repository's object space.
func (w *Writer) addTree(id object.ID, f Filter, add func(object.ID, object.Type, []byte)) error {
	typ, content, ok, err := w.repo.Read(id)
	if err != nil {
		return err
	}
	if !ok {
		return giterr.Wrap(giterr.KindMissingBase, "tree %s reachable but missing from repository", id)
	}
	if typ != object.Tree {
		return giterr.Wrap(giterr.KindInvalidFormat, "object %s is not a tree (got %s)", id, typ)
	}

	entries, err := parseTree(content)
	if err != nil {
		return err
	}
	add(id, object.Tree, content)

	for _, te := range entries {
		switch te.kind {
		case treeEntrySubtree:
			if err := w.addTree(te.id, f, add); err != nil {
				return err
			}
		case treeEntryBlob:
			btyp, bsize, ok, err := w.repo.Stat(te.id)
			if err != nil {
				return err
			}
			if !ok {
				return giterr.Wrap(giterr.KindMissingBase, "blob %s reachable but missing from repository", te.id)
			}
			if f.excludes(bsize) {
				continue
			}
			_, bcontent, ok, err := w.repo.Read(te.id)
			if err != nil {
				return err
			}
			if !ok {
				return giterr.Wrap(giterr.KindMissingBase, "blob %s reachable but missing from repository", te.id)
			}
			add(te.id, btyp, bcontent)
		case treeEntryGitlink:
			// submodule commit: lives in another repository, never packed here.
		}
	}
	return nil
}

// sortCanonical orders entries the way a pack is conventionally
// written: grouped by type in ascending wire-code order (commits,
// trees, blobs, tags), then within a type by descending size, the
// exact comparison lxr/go.git-scm's objHeaderSlice.Less implements —
// larger objects of the same type tend to share more delta-able
// structure with what follows them, which matters for a repacking
// writer even though this one always writes whole objects.
func sortCanonical(entries []writeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].typ != entries[j].typ {
			return entries[i].typ < entries[j].typ
		}
		return len(entries[i].content) > len(entries[j].content)
	})
}
