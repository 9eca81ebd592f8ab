// Package policy implements the server-side decision of which "want"
// ids an upload-pack negotiation is allowed to satisfy. A bare Git
// transport will hand over any object whose id it's given, regardless
// of whether it's reachable from an advertised ref — WantPolicy is the
// hook a server wires in to restrict that down to whatever advertised
// refs and reachability model the deployment wants to support.
package policy

import (
	"gitpack/giterr"
	"gitpack/object"
	"gitpack/repository"
	"gitpack/walker"
)

// WantPolicy decides whether a client-requested want id may be
// satisfied by this server. Allow is called once per want line, after
// capability parsing and before any pack traversal begins, so a denial
// can short-circuit the whole negotiation cheaply.
type WantPolicy interface {
	// Allow reports whether id may be served. A false return (with no
	// error) is a plain, unremarkable denial; a non-nil error lets an
	// implementation distinguish an internal failure (repository read
	// error) from a policy rejection when it matters to the caller.
	Allow(repo repository.Repository, id object.ID) (bool, error)
}

// Advertised allows any want id that corresponds exactly to one of the
// repository's currently advertised refs (by tip or peeled tag target,
// matching git's own "uploadpack.allowTipSHA1InWant=false" default
// behavior: nothing the client can't already see by name is servable).
type Advertised struct{}

func (Advertised) Allow(repo repository.Repository, id object.ID) (bool, error) {
	for _, ref := range repo.Refs() {
		if ref.ID == id {
			return true, nil
		}
		if ref.Peeled && ref.PeeledID == id {
			return true, nil
		}
	}
	return false, nil
}

// Tip is an alias of Advertised kept distinct so callers can name their
// intent precisely: "any currently advertised ref tip" reads better at
// a negotiator call site than "Advertised" when contrasted with
// ReachableCommit below.
type Tip = Advertised

// ReachableCommit allows any id that peels to a commit reachable from
// some advertised ref — git's "uploadpack.allowReachableSHA1InWant"
// mode. Reachability is computed fresh per call with a walker.Walker
// seeded from every advertised tip; callers issuing many want checks in
// one negotiation should prefer ReachableCommitTip, which amortizes
// that walk.
type ReachableCommit struct{}

func (ReachableCommit) Allow(repo repository.Repository, id object.ID) (bool, error) {
	p := NewReachableCommitTip(repo)
	if err := p.primeAll(repo); err != nil {
		return false, err
	}
	return p.Allow(repo, id)
}

// ReachableCommitTip is ReachableCommit with its reachability walk
// cached across Allow calls against the same repository snapshot — the
// shape a negotiator actually wants, since it checks every want line
// against the same ref set.
type ReachableCommitTip struct {
	repo   repository.Repository
	primed bool
	reach  object.Set
}

// NewReachableCommitTip returns a policy that lazily walks repo's
// advertised history on first use and caches the result.
func NewReachableCommitTip(repo repository.Repository) *ReachableCommitTip {
	return &ReachableCommitTip{repo: repo}
}

func (p *ReachableCommitTip) primeAll(repo repository.Repository) error {
	if p.primed {
		return nil
	}
	w := walker.New(repo)
	for _, ref := range repo.Refs() {
		target := ref.ID
		if ref.Peeled {
			target = ref.PeeledID
		}
		_, typ, err := w.Peel(target)
		if err != nil {
			return err
		}
		if typ != object.Commit {
			continue
		}
		if err := w.MarkStart(target); err != nil {
			return err
		}
	}

	reach := object.NewSet()
	for {
		r, err := w.Next()
		if err != nil {
			break
		}
		reach.Add(r.ID)
	}
	p.reach = reach
	p.primed = true
	return nil
}

func (p *ReachableCommitTip) Allow(repo repository.Repository, id object.ID) (bool, error) {
	if err := p.primeAll(repo); err != nil {
		return false, err
	}
	w := walker.New(repo)
	target, typ, err := w.Peel(id)
	if err != nil {
		return false, nil
	}
	if typ != object.Commit {
		return false, nil
	}
	return p.reach.Has(target), nil
}

// Any allows every want id unconditionally — the behavior of a server
// with no policy configured at all. Kept as an explicit type (rather
// than a nil WantPolicy) so "no restriction" is a deliberate, visible
// choice at the call site.
type Any struct{}

func (Any) Allow(repository.Repository, object.ID) (bool, error) { return true, nil }

// Deny returns the standard wire-visible rejection for a want id a
// WantPolicy refused, in the shape spec.md section 4.5 requires: an
// "ERR want <id> not valid" message, carrying giterr.KindPolicyDenied
// so it is logged and counted the same way every other policy
// rejection is.
func Deny(id object.ID) error {
	return giterr.Wrap(giterr.KindPolicyDenied, "want %s not valid", id)
}
