package packp

import (
	"strings"

	"gitpack/giterr"
	"gitpack/object"
	"gitpack/protocol/capability"
	"gitpack/protocol/pktline"
)

// FetchRequest is a minimal decode of protocol v2's "command=fetch"
// request: a capability-list section up to the delim-pkt, then an
// argument section up to the flush-pkt. Grounded on
// other_examples/bored-engineer-git-protocol-v2's description of the
// v2 fetch command's argument surface; this decoder covers the
// arguments that map onto UploadRequest's v1 fields and leaves
// anything else (e.g. ref-prefix-filtered ls-refs, sideband-all)
// unimplemented, since no component in this module's scope issues
// ls-refs.
type FetchRequest struct {
	Capabilities *capability.List
	Wants        []object.ID
	Haves        []object.ID
	Shallows     []object.ID
	Deepen       int
	Filter       string
	ThinPack     bool
	OFSDelta     bool
	IncludeTag   bool
	Done         bool
}

// DecodeFetchCommand reads one "command=fetch" request off s,
// beginning at the "command=fetch" line itself.
func DecodeFetchCommand(s *pktline.Scanner) (*FetchRequest, error) {
	line, err := s.Next()
	if err != nil {
		return nil, err
	}
	if line.Kind != pktline.KindData || strings.TrimRight(string(line.Payload), "\n") != "command=fetch" {
		return nil, giterr.Wrap(giterr.KindProtocolViolation, "expected command=fetch")
	}

	req := &FetchRequest{Capabilities: capability.NewList()}

	for {
		line, err := s.Next()
		if err != nil {
			return nil, err
		}
		if line.Kind == pktline.KindDelim {
			break
		}
		if line.Kind != pktline.KindData {
			return nil, giterr.Wrap(giterr.KindProtocolViolation, "unexpected control packet in fetch capability section")
		}
		text := strings.TrimRight(string(line.Payload), "\n")
		name, value, _ := strings.Cut(text, "=")
		req.Capabilities.Add(capability.Capability(name), value)
	}

	for {
		line, err := s.Next()
		if err != nil {
			return nil, err
		}
		if line.Kind == pktline.KindFlush {
			break
		}
		if line.Kind != pktline.KindData {
			return nil, giterr.Wrap(giterr.KindProtocolViolation, "unexpected control packet in fetch argument section")
		}
		text := strings.TrimRight(string(line.Payload), "\n")

		switch {
		case strings.HasPrefix(text, "want "):
			id, err := object.ParseID(strings.TrimPrefix(text, "want "))
			if err != nil {
				return nil, giterr.Wrap(giterr.KindProtocolViolation, "bad want arg %q: %v", text, err)
			}
			req.Wants = append(req.Wants, id)
		case strings.HasPrefix(text, "have "):
			id, err := object.ParseID(strings.TrimPrefix(text, "have "))
			if err != nil {
				return nil, giterr.Wrap(giterr.KindProtocolViolation, "bad have arg %q: %v", text, err)
			}
			req.Haves = append(req.Haves, id)
		case strings.HasPrefix(text, "shallow "):
			id, err := object.ParseID(strings.TrimPrefix(text, "shallow "))
			if err != nil {
				return nil, giterr.Wrap(giterr.KindProtocolViolation, "bad shallow arg %q: %v", text, err)
			}
			req.Shallows = append(req.Shallows, id)
		case strings.HasPrefix(text, "deepen "):
			n, err := parseIntField(strings.TrimPrefix(text, "deepen "))
			if err != nil {
				return nil, giterr.Wrap(giterr.KindProtocolViolation, "bad deepen arg %q: %v", text, err)
			}
			req.Deepen = n
		case strings.HasPrefix(text, "filter "):
			req.Filter = strings.TrimPrefix(text, "filter ")
		case text == "thin-pack":
			req.ThinPack = true
		case text == "ofs-delta":
			req.OFSDelta = true
		case text == "include-tag":
			req.IncludeTag = true
		case text == "done":
			req.Done = true
		default:
			return nil, giterr.Wrap(giterr.KindProtocolViolation, "unrecognized fetch argument %q", text)
		}
	}

	if len(req.Wants) == 0 {
		return nil, giterr.Wrap(giterr.KindProtocolViolation, "fetch command carries no want arguments")
	}
	return req, nil
}
