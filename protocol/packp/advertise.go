package packp

import (
	"fmt"
	"io"

	"gitpack/object"
	"gitpack/protocol/capability"
	"gitpack/protocol/pktline"
	"gitpack/repository"
)

// zeroCapsRef is advertised when a repository has no refs at all: real
// Git still sends one pkt-line so the capability list reaches the
// client, naming the synthetic "capabilities^{}" ref go-git and stock
// Git both use for this case.
const zeroCapsRef = "capabilities^{}"

// Advertisement is the ADVERTISE phase's response: every ref the
// repository exposes, plus the server's capability list attached to
// the first line as required by the v0/v1 wire format.
type Advertisement struct {
	Refs         []repository.RefEntry
	Capabilities *capability.List
}

// EncodeRefAdvertisement writes adv as a v0/v1 ref advertisement:
// first line "<id> <name>\x00<caps>", one "<id> <name>" line per
// remaining ref, a "<id> <name>^{}" line per peeled tag, then a
// flush-pkt.
func EncodeRefAdvertisement(w io.Writer, adv Advertisement) error {
	caps := adv.Capabilities.String()

	if len(adv.Refs) == 0 {
		line := fmt.Sprintf("%s %s\x00%s\n", object.ZeroID, zeroCapsRef, caps)
		if err := pktline.EncodeString(w, line); err != nil {
			return err
		}
		return pktline.WriteFlush(w)
	}

	for i, ref := range adv.Refs {
		var line string
		if i == 0 {
			line = fmt.Sprintf("%s %s\x00%s\n", ref.ID, ref.Name, caps)
		} else {
			line = fmt.Sprintf("%s %s\n", ref.ID, ref.Name)
		}
		if err := pktline.EncodeString(w, line); err != nil {
			return err
		}
		if ref.Peeled {
			peeled := fmt.Sprintf("%s %s^{}\n", ref.PeeledID, ref.Name)
			if err := pktline.EncodeString(w, peeled); err != nil {
				return err
			}
		}
	}
	return pktline.WriteFlush(w)
}
