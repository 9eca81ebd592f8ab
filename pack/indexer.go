package pack

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"dario.cat/mergo"
	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"

	"gitpack/giterr"
	"gitpack/internal/log"
	"gitpack/object"
)

// IndexOptions tunes one Index call. Zero-value fields are filled from
// DefaultIndexOptions by Index via mergo, the same defaulting idiom the
// teacher's options structs use.
type IndexOptions struct {
	Progress   ProgressSink
	Logger     log.Logger
	Collide    CollisionChecker
	Bases      BaseSource
	TempPrefix string
}

// DefaultIndexOptions is merged over a caller-supplied IndexOptions for
// any field left at its zero value.
var DefaultIndexOptions = IndexOptions{
	Progress:   NoopProgress,
	Logger:     log.Default,
	TempPrefix: "incoming",
}

// Result is everything the caller needs after a pack has been received
// and indexed: where it landed, its checksum, and its in-memory index.
type Result struct {
	PackPath  string
	IndexPath string
	Checksum  object.ID
	Index     *MemoryIndex
	Objects   int
}

// Index runs the full receive pipeline described in the indexer
// component design: stream r into a temp file while scanning pass one,
// resolve deltas in pass two, complete a thin pack if bases are
// configured, build the sorted index, and atomically commit both the
// .pack and .idx into fs's objects directory.
//
// ctx cancellation is polled between objects and between delta
// resolutions.
func Index(ctx context.Context, fs billy.Filesystem, objectsDir string, r io.Reader, opts IndexOptions) (*Result, error) {
	if err := mergo.Merge(&opts, DefaultIndexOptions); err != nil {
		return nil, fmt.Errorf("gitpack: merging index options: %w", err)
	}

	cancel := func() bool {
		select {
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}

	tmpName := fmt.Sprintf("%s-%s.pack", opts.TempPrefix, uuid.NewString())
	tmp, err := fs.Create(tmpName)
	if err != nil {
		return nil, fmt.Errorf("gitpack: creating temp pack %s: %w", tmpName, err)
	}
	cleanup := func() { _ = fs.Remove(tmp.Name()) }

	opts.Logger.Printf("indexing incoming pack into %s", tmp.Name())

	scanned, err := scanPack(r, tmp, opts.Collide, opts.Progress, cancel)
	if err != nil {
		tmp.Close()
		cleanup()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return nil, fmt.Errorf("gitpack: closing temp pack: %w", err)
	}

	resolved, err := resolveViaReopen(fs, tmp.Name(), scanned, opts.Collide, opts.Progress, cancel)
	if err != nil {
		cleanup()
		return nil, err
	}

	checksum := scanned.Footer
	if remaining := scanned.Chains.remainingRefBases(); len(remaining) > 0 {
		if opts.Bases == nil {
			cleanup()
			return nil, giterr.Wrap(giterr.KindMissingBase, "thin pack has %d unresolved base(s) and no BaseSource was configured", len(remaining))
		}

		rw, err := fs.OpenFile(tmp.Name(), os.O_RDWR, 0o644)
		if err != nil {
			cleanup()
			return nil, err
		}
		appended, newSum, err := CompleteThinPack(rw, scanned, opts.Bases)
		closeErr := rw.Close()
		if err != nil {
			cleanup()
			return nil, err
		}
		if closeErr != nil {
			cleanup()
			return nil, fmt.Errorf("gitpack: closing pack after thin-pack completion: %w", closeErr)
		}
		checksum = newSum
		resolved = append(resolved, appended...)
	}

	idx, err := NewMemoryIndex(resolved)
	if err != nil {
		cleanup()
		return nil, err
	}

	packPath := path.Join(objectsDir, "pack", fmt.Sprintf("pack-%s.pack", checksum))
	idxPath := path.Join(objectsDir, "pack", fmt.Sprintf("pack-%s.idx", checksum))

	if err := fs.MkdirAll(path.Dir(packPath), 0o755); err != nil {
		cleanup()
		return nil, fmt.Errorf("gitpack: creating objects/pack dir: %w", err)
	}
	if err := fs.Rename(tmp.Name(), packPath); err != nil {
		cleanup()
		return nil, fmt.Errorf("gitpack: committing pack: %w", err)
	}

	idxTmpName := idxPath + fmt.Sprintf(".%s.tmp", uuid.NewString())
	idxFile, err := fs.Create(idxTmpName)
	if err != nil {
		return nil, fmt.Errorf("gitpack: creating temp idx: %w", err)
	}
	if err := EncodeIndexV2(idxFile, idx, checksum); err != nil {
		idxFile.Close()
		_ = fs.Remove(idxTmpName)
		return nil, err
	}
	if err := idxFile.Close(); err != nil {
		_ = fs.Remove(idxTmpName)
		return nil, fmt.Errorf("gitpack: closing temp idx: %w", err)
	}
	if err := fs.Rename(idxTmpName, idxPath); err != nil {
		return nil, fmt.Errorf("gitpack: committing idx: %w", err)
	}

	opts.Logger.Printf("indexed %d objects into %s", idx.Len(), path.Base(packPath))

	return &Result{
		PackPath:  packPath,
		IndexPath: idxPath,
		Checksum:  checksum,
		Index:     idx,
		Objects:   idx.Len(),
	}, nil
}

// resolveViaReopen reopens the temp pack read-only for pass two, which
// needs random access to re-read each delta's raw bytes.
func resolveViaReopen(fs billy.Filesystem, name string, scanned *scanResult, collide CollisionChecker, progress ProgressSink, cancel func() bool) ([]Info, error) {
	f, err := fs.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("gitpack: reopening temp pack for resolution: %w", err)
	}
	defer f.Close()
	return resolvePack(f, scanned, collide, progress, cancel)
}
