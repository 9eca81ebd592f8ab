package packp

import (
	"io"

	"gitpack/object"
	"gitpack/protocol/pktline"
)

// ShallowUpdate is the set of "shallow"/"unshallow" lines the server
// sends after computing a client's deepen request, before the pack
// itself: which boundary commits the client's shallow clone now has to
// treat as having no parents (Shallow), and which previously-shallow
// commits just gained history and must drop that restriction
// (Unshallow).
type ShallowUpdate struct {
	Shallow   []object.ID
	Unshallow []object.ID
}

// Encode writes the shallow-info block: one "shallow <id>" line per
// new boundary commit, one "unshallow <id>" line per commit whose
// boundary moved further back, then a flush-pkt.
func (u ShallowUpdate) Encode(w io.Writer) error {
	for _, id := range u.Shallow {
		if err := pktline.EncodeString(w, "shallow "+id.String()+"\n"); err != nil {
			return err
		}
	}
	for _, id := range u.Unshallow {
		if err := pktline.EncodeString(w, "unshallow "+id.String()+"\n"); err != nil {
			return err
		}
	}
	return pktline.WriteFlush(w)
}
