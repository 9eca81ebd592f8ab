package repository

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/klauspost/compress/zlib"

	"gitpack/giterr"
	"gitpack/object"
)

// Disk is a billy.Filesystem-backed Repository: loose objects under
// objects/xx/<38 hex chars>, refs as one-line files under refs/ plus an
// optional packed-refs fallback, and HEAD as either a "ref: ..."
// indirection or a literal id. Grounded on go-git's
// storage/filesystem/internal/dotgit layout — this module only reads
// and writes the loose side of it; packs the Pack Indexer commits live
// alongside but are not consulted for Read/Stat (see DESIGN.md).
type Disk struct {
	fs  billy.Filesystem
	dir string // root directory, e.g. ".git"
}

// NewDisk returns a Disk repository rooted at dir within fs.
func NewDisk(fs billy.Filesystem, dir string) *Disk {
	return &Disk{fs: fs, dir: dir}
}

func (d *Disk) objectPath(id object.ID) string {
	hex := id.String()
	return path.Join(d.dir, "objects", hex[:2], hex[2:])
}

func (d *Disk) Stat(id object.ID) (object.Type, int64, bool, error) {
	typ, content, ok, err := d.Read(id)
	return typ, int64(len(content)), ok, err
}

func (d *Disk) Read(id object.ID) (object.Type, []byte, bool, error) {
	f, err := d.fs.Open(d.objectPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return object.Bad, nil, false, nil
		}
		return object.Bad, nil, false, err
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return object.Bad, nil, false, giterr.Wrap(giterr.KindInvalidFormat, "object %s: zlib open: %v", id, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return object.Bad, nil, false, giterr.Wrap(giterr.KindInvalidFormat, "object %s: inflate: %v", id, err)
	}

	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return object.Bad, nil, false, giterr.Wrap(giterr.KindInvalidFormat, "object %s: missing header terminator", id)
	}
	header := string(raw[:nul])
	typeWord, _, ok := strings.Cut(header, " ")
	if !ok {
		return object.Bad, nil, false, giterr.Wrap(giterr.KindInvalidFormat, "object %s: malformed header %q", id, header)
	}
	typ, err := object.ParseType(typeWord)
	if err != nil {
		return object.Bad, nil, false, giterr.Wrap(giterr.KindInvalidFormat, "object %s: %v", id, err)
	}
	return typ, raw[nul+1:], true, nil
}

// Write stores content as a loose object, matching real Git's
// "<type> <size>\x00<content>" zlib-compressed layout. A write whose
// target path already exists is treated as a no-op success, the same
// idempotent-write contract Memory.Write provides.
func (d *Disk) Write(typ object.Type, content []byte) (object.ID, error) {
	if !typ.Storable() {
		return object.ZeroID, giterr.Wrap(giterr.KindInvalidFormat, "cannot store object of type %v", typ)
	}
	id := object.ComputeID(typ, content)
	p := d.objectPath(id)

	if _, err := d.fs.Stat(p); err == nil {
		return id, nil
	}

	if err := d.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return object.ZeroID, err
	}
	tmp, err := d.fs.TempFile(path.Dir(p), "obj-tmp-")
	if err != nil {
		return object.ZeroID, err
	}

	zw := zlib.NewWriter(tmp)
	if _, err := fmt.Fprintf(zw, "%s %d\x00", typ, len(content)); err != nil {
		tmp.Close()
		_ = d.fs.Remove(tmp.Name())
		return object.ZeroID, err
	}
	if _, err := zw.Write(content); err != nil {
		tmp.Close()
		_ = d.fs.Remove(tmp.Name())
		return object.ZeroID, err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		_ = d.fs.Remove(tmp.Name())
		return object.ZeroID, err
	}
	if err := tmp.Close(); err != nil {
		return object.ZeroID, err
	}
	if err := d.fs.Rename(tmp.Name(), p); err != nil {
		return object.ZeroID, err
	}
	return id, nil
}

func (d *Disk) Ref(name string) (object.ID, bool) {
	for _, r := range d.Refs() {
		if r.Name == name {
			return r.ID, true
		}
	}
	return object.ZeroID, false
}

// Refs walks refs/ for loose refs, falls back to packed-refs for any
// name not present loose (the same precedence real Git uses), resolves
// HEAD's "ref: " indirection one level, and peels any ref pointing at
// a tag object so annotated tags advertise correctly.
func (d *Disk) Refs() []RefEntry {
	refs := map[string]object.ID{}

	packed := path.Join(d.dir, "packed-refs")
	if f, err := d.fs.Open(packed); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
				continue
			}
			idHex, name, ok := strings.Cut(line, " ")
			if !ok {
				continue
			}
			if id, err := object.ParseID(idHex); err == nil {
				refs[name] = id
			}
		}
		f.Close()
	}

	d.walkLooseRefs(path.Join(d.dir, "refs"), refs)

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	entry := func(name string, id object.ID) RefEntry {
		e := RefEntry{Name: name, ID: id}
		if typ, _, ok, _ := d.Stat(id); ok && typ == object.Tag {
			if _, content, ok, _ := d.Read(id); ok {
				if target, _, err := peelTagOnce(content); err == nil {
					e.Peeled = true
					e.PeeledID = target
				}
			}
		}
		return e
	}

	var out []RefEntry
	if id, ok := d.resolveHead(refs); ok {
		out = append(out, entry("HEAD", id))
	}
	for _, name := range names {
		out = append(out, entry(name, refs[name]))
	}
	return out
}

func (d *Disk) walkLooseRefs(dir string, into map[string]object.ID) {
	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		return
	}
	for _, fi := range entries {
		full := path.Join(dir, fi.Name())
		if fi.IsDir() {
			d.walkLooseRefs(full, into)
			continue
		}
		f, err := d.fs.Open(full)
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			continue
		}
		name := strings.TrimPrefix(full, d.dir+"/")
		if id, err := object.ParseID(strings.TrimSpace(string(raw))); err == nil {
			into[name] = id
		}
	}
}

// resolveHead reads dir/HEAD: either "ref: refs/heads/<x>\n", resolved
// against refs, or a literal id.
func (d *Disk) resolveHead(refs map[string]object.ID) (object.ID, bool) {
	f, err := d.fs.Open(path.Join(d.dir, "HEAD"))
	if err != nil {
		return object.ZeroID, false
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return object.ZeroID, false
	}
	line := strings.TrimSpace(string(raw))
	if target, ok := strings.CutPrefix(line, "ref: "); ok {
		id, ok := refs[target]
		return id, ok
	}
	id, err := object.ParseID(line)
	return id, err == nil
}

// peelTagOnce extracts the "object <id>" line from one annotated tag
// body, the single-hop peel ref advertisement needs (a tag-of-tag
// chain is resolved by the walker, not here).
func peelTagOnce(content []byte) (object.ID, object.Type, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		if rest, ok := strings.CutPrefix(line, "object "); ok {
			id, err := object.ParseID(rest)
			return id, object.Bad, err
		}
	}
	return object.ZeroID, object.Bad, giterr.Wrap(giterr.KindInvalidFormat, "tag missing object header")
}

func (d *Disk) ObjectsDir() string {
	return path.Join(d.dir, "objects")
}
