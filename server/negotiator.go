// Package server implements the Upload Negotiator: the
// ADVERTISE/RECV_WANTS/NEGOTIATE/SEND_PACK/DONE state machine that
// turns a client's want/have lines into a pack response. Grounded
// primarily on lxr/go.git-scm's protocol.UploadPack, including its two
// documented historical quirks (a common object is only detected the
// round after the commit *above* it is marked common, and a non-detailed
// ACK names the *last* common commit found rather than the first) —
// both preserved here per SPEC_FULL.md's decision to keep rather than
// silently "fix" behavior real clients have long since adapted to.
package server

import (
	"io"

	"gitpack/giterr"
	"gitpack/object"
	"gitpack/pack"
	"gitpack/policy"
	"gitpack/protocol/capability"
	"gitpack/protocol/packp"
	"gitpack/protocol/pktline"
	"gitpack/repository"
	"gitpack/walker"
)

// Negotiator drives one upload-pack session end to end over a
// connected pair of streams.
type Negotiator struct {
	repo   repository.Repository
	policy policy.WantPolicy
	agent  string
}

// New returns a Negotiator serving repo. A nil pol is treated as
// policy.Any{} (no restriction), matching a server with
// uploadpack.allow* config left at its permissive default.
func New(repo repository.Repository, pol policy.WantPolicy, agent string) *Negotiator {
	if pol == nil {
		pol = policy.Any{}
	}
	return &Negotiator{repo: repo, policy: pol, agent: agent}
}

// Serve runs ADVERTISE, RECV_WANTS, NEGOTIATE, SEND_PACK and DONE in
// sequence against r/w, the shape of one v0/v1 upload-pack RPC.
func (n *Negotiator) Serve(w io.Writer, r io.Reader) error {
	if err := n.advertise(w); err != nil {
		return err
	}

	scanner := pktline.NewScanner(r)
	req, err := packp.DecodeUploadRequest(scanner)
	if err != nil {
		return err
	}

	if err := n.checkWants(req.Wants); err != nil {
		if encErr := pktline.EncodeString(w, "ERR "+err.Error()+"\n"); encErr != nil {
			return encErr
		}
		return err
	}

	walk := walker.New(n.repo)
	for _, id := range req.Wants {
		if err := walk.MarkStart(id); err != nil {
			return err
		}
	}

	var shallow packp.ShallowUpdate
	if req.Deepen > 0 {
		boundary, err := walk.DepthWalk(req.Wants, req.Deepen)
		if err != nil {
			return err
		}
		shallow.Shallow = boundary
		if err := shallow.Encode(w); err != nil {
			return err
		}
	}

	commons, err := n.negotiate(w, scanner, walk, req.Capabilities)
	if err != nil {
		return err
	}

	return n.sendPack(w, req, commons.Slice())
}

// advertise writes the ADVERTISE-phase ref advertisement.
func (n *Negotiator) advertise(w io.Writer) error {
	return packp.EncodeRefAdvertisement(w, packp.Advertisement{
		Refs:         n.repo.Refs(),
		Capabilities: capability.Supported(n.agent),
	})
}

// checkWants denies the whole request (spec.md section 4.5's "ERR want
// <id> not valid") the first time any requested want fails policy.
func (n *Negotiator) checkWants(wants []object.ID) error {
	for _, id := range wants {
		ok, err := n.policy.Allow(n.repo, id)
		if err != nil {
			return err
		}
		if !ok {
			return policy.Deny(id)
		}
	}
	return nil
}

// negotiate runs the NEGOTIATE phase: repeated have/done rounds against
// walk (already seeded with every want), emitting ACK/NAK lines per the
// client's requested multi_ack variant, until the client sends "done"
// or (multi_ack_detailed plus no-done) the server decides it already
// has enough common history to give up waiting. It returns every
// commit found common across the whole session.
func (n *Negotiator) negotiate(w io.Writer, scanner *pktline.Scanner, walk *walker.Walker, caps *capability.List) (object.Set, error) {
	detailed := caps.Has(capability.MultiACKDetailed)
	multi := caps.Has(capability.MultiACK)
	noDone := caps.Has(capability.NoDone)

	commons := object.NewSet()
	var lastCommon object.ID
	haveCommon := false

	for {
		batch, err := packp.DecodeHaveLines(scanner)
		if err != nil {
			return nil, err
		}

		roundCommon := object.NewSet()
		for _, have := range batch.Haves {
			if err := walk.MarkUninteresting(have); err != nil {
				if giterr.KindOf(err) == giterr.KindMissingBase {
					continue
				}
				return nil, err
			}
		}
		for {
			res, err := walk.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			if res.Uninteresting {
				commons.Add(res.ID)
				roundCommon.Add(res.ID)
			}
		}

		for _, id := range batch.Haves {
			if !roundCommon.Has(id) {
				continue
			}
			haveCommon = true
			lastCommon = id
			switch {
			case detailed:
				if err := packp.EncodeACK(w, packp.ACK{ID: id, Status: packp.ACKStatusCommon}); err != nil {
					return nil, err
				}
			case multi:
				if err := packp.EncodeACK(w, packp.ACK{ID: id, Status: packp.ACKStatusContinue}); err != nil {
					return nil, err
				}
			}
		}

		if batch.Done {
			break
		}

		if !detailed && !multi {
			if err := packp.EncodeNAK(w); err != nil {
				return nil, err
			}
		}

		if detailed && haveCommon && noDone {
			if err := packp.EncodeACK(w, packp.ACK{ID: lastCommon, Status: packp.ACKStatusReady}); err != nil {
				return nil, err
			}
			break
		}
	}

	if haveCommon {
		if err := packp.EncodeACK(w, packp.ACK{ID: lastCommon}); err != nil {
			return nil, err
		}
	} else {
		if err := packp.EncodeNAK(w); err != nil {
			return nil, err
		}
	}
	return commons, nil
}

// sendPack runs the SEND_PACK/DONE phases: build the pack satisfying
// req's wants minus the negotiated common history, optionally wrapped
// in side-band framing, and stream it.
func (n *Negotiator) sendPack(w io.Writer, req *packp.UploadRequest, commons []object.ID) error {
	filter, err := pack.ParseFilter(req.Filter)
	if err != nil {
		return err
	}

	dest := w
	var muxer *packp.Muxer
	switch {
	case req.Capabilities.Has(capability.SideBand64k):
		muxer = packp.NewMuxer(packp.Sideband64k, w)
		dest = muxer
	case req.Capabilities.Has(capability.SideBand):
		muxer = packp.NewMuxer(packp.Sideband, w)
		dest = muxer
	}

	writer := pack.NewWriter(n.repo)
	_, err = writer.Write(dest, pack.WriteRequest{
		Wants:      req.Wants,
		Haves:      commons,
		IncludeTag: req.Capabilities.Has(capability.IncludeTag),
		Filter:     filter,
	})
	if err != nil {
		if muxer != nil {
			_, _ = muxer.WriteChannel(packp.ErrorMessage, []byte(giterr.KindOf(err).String()+": "+err.Error()))
		}
		return err
	}
	return nil
}
