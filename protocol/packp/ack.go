package packp

import (
	"io"
	"strings"

	"gitpack/giterr"
	"gitpack/object"
	"gitpack/protocol/pktline"
)

// ACKStatus qualifies an ACK line. The empty status is the final ACK
// that precedes pack data; the others only appear mid-negotiation,
// gated on which multi_ack variant (if any) the client requested.
// Grounded on go-git's srvresp.go ACKs field, extended with the
// "common"/"ready" statuses that file's own retrieved snapshot left as
// a TODO — lxr/go.git-scm's UploadPack is the reference for those.
type ACKStatus string

const (
	ACKStatusNone     ACKStatus = ""
	ACKStatusContinue ACKStatus = "continue"
	ACKStatusCommon   ACKStatus = "common"
	ACKStatusReady    ACKStatus = "ready"
)

// ACK is one "ACK <id>[ <status>]" line.
type ACK struct {
	ID     object.ID
	Status ACKStatus
}

// EncodeACK writes one ACK line.
func EncodeACK(w io.Writer, ack ACK) error {
	line := "ACK " + ack.ID.String()
	if ack.Status != ACKStatusNone {
		line += " " + string(ack.Status)
	}
	line += "\n"
	return pktline.EncodeString(w, line)
}

// EncodeNAK writes the "no common commit found yet" response.
func EncodeNAK(w io.Writer) error {
	return pktline.EncodeString(w, "NAK\n")
}

// ServerResponse is the sequence of ACK/NAK lines the server emits in
// one negotiation round, as a client (or a test harness standing in
// for one) would decode it.
type ServerResponse struct {
	ACKs []ACK
	NAK  bool
}

// DecodeServerResponse reads ACK/NAK lines until a terminal one (a
// bare final ACK, an ACK ready, a NAK, or flush) ends the round.
func DecodeServerResponse(s *pktline.Scanner) (*ServerResponse, error) {
	resp := &ServerResponse{}
	for {
		line, err := s.Next()
		if err != nil {
			return nil, err
		}
		if line.Kind == pktline.KindFlush {
			return resp, nil
		}
		if line.Kind != pktline.KindData {
			return nil, giterr.Wrap(giterr.KindProtocolViolation, "unexpected control packet in server response")
		}

		text := strings.TrimRight(string(line.Payload), "\n")
		switch {
		case text == "NAK":
			resp.NAK = true
			return resp, nil
		case strings.HasPrefix(text, "ACK "):
			fields := strings.Fields(text)
			if len(fields) < 2 {
				return nil, giterr.Wrap(giterr.KindProtocolViolation, "malformed ACK line %q", text)
			}
			id, err := object.ParseID(fields[1])
			if err != nil {
				return nil, giterr.Wrap(giterr.KindProtocolViolation, "bad ACK id %q: %v", fields[1], err)
			}
			status := ACKStatusNone
			if len(fields) >= 3 {
				status = ACKStatus(fields[2])
			}
			resp.ACKs = append(resp.ACKs, ACK{ID: id, Status: status})
			if status == ACKStatusNone || status == ACKStatusReady {
				return resp, nil
			}
		default:
			return nil, giterr.Wrap(giterr.KindProtocolViolation, "unrecognized server response line %q", text)
		}
	}
}
