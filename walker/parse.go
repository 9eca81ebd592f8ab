package walker

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"gitpack/giterr"
	"gitpack/object"
)

// parsedCommit is the subset of a commit object's header this walker
// needs: its tree, its parents, and a timestamp to order the priority
// queue by commit time.
type parsedCommit struct {
	tree    object.ID
	parents []object.ID
	when    int64
}

// parseCommit decodes a raw commit object body (as stored loose, i.e.
// without the "commit <size>\0" prefix — Repository.Read already
// strips that). It tolerates unknown header lines, since only tree,
// parent and committer matter here.
func parseCommit(content []byte) (parsedCommit, error) {
	var c parsedCommit
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break // end of header, commit message follows
		}
		switch {
		case strings.HasPrefix(line, "tree "):
			id, err := object.ParseID(strings.TrimPrefix(line, "tree "))
			if err != nil {
				return c, giterr.Wrap(giterr.KindInvalidFormat, "commit: bad tree line: %v", err)
			}
			c.tree = id
		case strings.HasPrefix(line, "parent "):
			id, err := object.ParseID(strings.TrimPrefix(line, "parent "))
			if err != nil {
				return c, giterr.Wrap(giterr.KindInvalidFormat, "commit: bad parent line: %v", err)
			}
			c.parents = append(c.parents, id)
		case strings.HasPrefix(line, "committer "):
			when, err := parseWhen(line)
			if err == nil {
				c.when = when
			}
		}
	}
	if err := sc.Err(); err != nil {
		return c, giterr.Wrap(giterr.KindInvalidFormat, "commit: %v", err)
	}
	if c.tree.IsZero() {
		return c, giterr.Wrap(giterr.KindInvalidFormat, "commit: missing tree line")
	}
	return c, nil
}

// parseWhen extracts the committer timestamp from a line of the form
// "committer Name <email> 1700000000 +0000".
func parseWhen(line string) (int64, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, giterr.Wrap(giterr.KindInvalidFormat, "commit: malformed committer line")
	}
	ts := fields[len(fields)-2]
	return strconv.ParseInt(ts, 10, 64)
}

// parsedTag is the subset of an annotated tag object this walker needs
// to peel through to its target.
type parsedTag struct {
	object object.ID
	typ    object.Type
}

// parseTag decodes a raw annotated tag object body.
func parseTag(content []byte) (parsedTag, error) {
	var t parsedTag
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		switch {
		case strings.HasPrefix(line, "object "):
			id, err := object.ParseID(strings.TrimPrefix(line, "object "))
			if err != nil {
				return t, giterr.Wrap(giterr.KindInvalidFormat, "tag: bad object line: %v", err)
			}
			t.object = id
		case strings.HasPrefix(line, "type "):
			typ, err := object.ParseType(strings.TrimPrefix(line, "type "))
			if err != nil {
				return t, giterr.Wrap(giterr.KindInvalidFormat, "tag: bad type line: %v", err)
			}
			t.typ = typ
		}
	}
	if err := sc.Err(); err != nil {
		return t, giterr.Wrap(giterr.KindInvalidFormat, "tag: %v", err)
	}
	if t.object.IsZero() {
		return t, giterr.Wrap(giterr.KindInvalidFormat, "tag: missing object line")
	}
	return t, nil
}
