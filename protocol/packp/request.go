// Package packp implements the upload-pack wire messages layered on
// top of protocol/pktline: ref advertisement, the want/have request,
// ACK/NAK responses, shallow/unshallow updates, side-band
// multiplexing, and a minimal protocol v2 command=fetch decoder.
// Grounded on go-git's plumbing/protocol/packp package (field and type
// naming) and lxr/go.git-scm's protocol.UploadPack (negotiation
// message shapes and the historical quirks it documents).
package packp

import (
	"strings"

	"gitpack/giterr"
	"gitpack/object"
	"gitpack/protocol/capability"
	"gitpack/protocol/pktline"
)

// UploadRequest is the fully parsed set of "want"/"have" lines a
// client sends in RECV_WANTS/NEGOTIATE, protocol v0/v1 shape: the
// first want line carries the client's capability list, every
// subsequent want/have line is bare.
type UploadRequest struct {
	Wants        []object.ID
	Haves        []object.ID
	Shallows     []object.ID
	Deepen       int    // 0 if absent
	DeepenSince  int64  // 0 if absent
	DeepenNot    []string
	Filter       string // e.g. "blob:none", "" if absent
	Capabilities *capability.List
	Done         bool
}

// DecodeUploadRequest reads want/shallow/deepen/filter lines up to the
// first flush-pkt, the RECV_WANTS phase of the negotiator's state
// machine. Have lines and the final "done" arrive in later NEGOTIATE
// rounds and are appended with DecodeHaveLines.
func DecodeUploadRequest(s *pktline.Scanner) (*UploadRequest, error) {
	req := &UploadRequest{Capabilities: capability.NewList()}
	first := true

	for {
		line, err := s.Next()
		if err != nil {
			return nil, err
		}
		if line.Kind == pktline.KindFlush {
			break
		}
		if line.Kind != pktline.KindData {
			return nil, giterr.Wrap(giterr.KindProtocolViolation, "unexpected control packet in upload-request")
		}

		text := strings.TrimRight(string(line.Payload), "\n")
		switch {
		case strings.HasPrefix(text, "want "):
			rest := strings.TrimPrefix(text, "want ")
			if first {
				idPart, capPart, _ := strings.Cut(rest, " ")
				rest = idPart
				req.Capabilities = capability.Parse(capPart)
				first = false
			}
			id, err := object.ParseID(strings.TrimSpace(rest))
			if err != nil {
				return nil, giterr.Wrap(giterr.KindProtocolViolation, "bad want line %q: %v", text, err)
			}
			req.Wants = append(req.Wants, id)

		case strings.HasPrefix(text, "shallow "):
			id, err := object.ParseID(strings.TrimPrefix(text, "shallow "))
			if err != nil {
				return nil, giterr.Wrap(giterr.KindProtocolViolation, "bad shallow line %q: %v", text, err)
			}
			req.Shallows = append(req.Shallows, id)

		case strings.HasPrefix(text, "deepen "):
			n, err := parseIntField(strings.TrimPrefix(text, "deepen "))
			if err != nil {
				return nil, giterr.Wrap(giterr.KindProtocolViolation, "bad deepen line %q: %v", text, err)
			}
			req.Deepen = n

		case strings.HasPrefix(text, "deepen-since "):
			n, err := parseInt64Field(strings.TrimPrefix(text, "deepen-since "))
			if err != nil {
				return nil, giterr.Wrap(giterr.KindProtocolViolation, "bad deepen-since line %q: %v", text, err)
			}
			req.DeepenSince = n

		case strings.HasPrefix(text, "deepen-not "):
			req.DeepenNot = append(req.DeepenNot, strings.TrimPrefix(text, "deepen-not "))

		case strings.HasPrefix(text, "filter "):
			req.Filter = strings.TrimPrefix(text, "filter ")

		default:
			return nil, giterr.Wrap(giterr.KindProtocolViolation, "unrecognized upload-request line %q", text)
		}
	}

	if len(req.Wants) == 0 {
		return nil, giterr.Wrap(giterr.KindProtocolViolation, "upload-request carries no want lines")
	}
	return req, nil
}

// HaveBatch is one NEGOTIATE-phase round: zero or more "have" lines
// terminated by either a flush-pkt (more rounds to come) or a "done"
// line (client is finished negotiating).
type HaveBatch struct {
	Haves []object.ID
	Done  bool
}

// DecodeHaveLines reads one round of have/done lines.
func DecodeHaveLines(s *pktline.Scanner) (HaveBatch, error) {
	var batch HaveBatch
	for {
		line, err := s.Next()
		if err != nil {
			return batch, err
		}
		if line.Kind == pktline.KindFlush {
			return batch, nil
		}
		if line.Kind != pktline.KindData {
			return batch, giterr.Wrap(giterr.KindProtocolViolation, "unexpected control packet among have lines")
		}
		text := strings.TrimRight(string(line.Payload), "\n")
		switch {
		case strings.HasPrefix(text, "have "):
			id, err := object.ParseID(strings.TrimPrefix(text, "have "))
			if err != nil {
				return batch, giterr.Wrap(giterr.KindProtocolViolation, "bad have line %q: %v", text, err)
			}
			batch.Haves = append(batch.Haves, id)
		case text == "done":
			batch.Done = true
			return batch, nil
		default:
			return batch, giterr.Wrap(giterr.KindProtocolViolation, "unrecognized negotiate line %q", text)
		}
	}
}

func parseIntField(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, giterr.Wrap(giterr.KindProtocolViolation, "empty integer field")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, giterr.Wrap(giterr.KindProtocolViolation, "non-numeric field %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func parseInt64Field(s string) (int64, error) {
	n, err := parseIntField(s)
	return int64(n), err
}
