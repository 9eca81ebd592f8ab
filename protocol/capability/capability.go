// Package capability defines the fixed vocabulary of upload-pack
// capability strings this server advertises and understands, grounded
// on the capability set go-git's packp.Capabilities models and real
// Git's Documentation/technical/protocol-capabilities.txt.
package capability

// Capability is one named upload-pack extension, advertised on the
// first ref-advertisement line (v0/v1) or as part of the ls-refs /
// fetch command's capability-advertisement (v2).
type Capability string

const (
	// MultiACK and MultiACKDetailed control how many ACK lines the
	// negotiator emits per round; see protocol/packp's ack.go.
	MultiACK         Capability = "multi_ack"
	MultiACKDetailed Capability = "multi_ack_detailed"
	// NoDone lets a client skip sending the final "done" line once the
	// server has acked enough common history to proceed straight to
	// SEND_PACK.
	NoDone Capability = "no-done"
	// ThinPack permits the server to omit delta bases the client
	// already has, the same option this module's own thin-pack
	// completion path exists to undo on the receiving side.
	ThinPack Capability = "thin-pack"
	// OFSDelta permits OFS-delta (as opposed to only REF-delta)
	// encoding in the response pack.
	OFSDelta Capability = "ofs-delta"
	// SideBand / SideBand64k select progress/error multiplexing on the
	// pack stream; SideBand64k raises the per-packet cap from 1000 to
	// 65520 bytes.
	SideBand   Capability = "side-band"
	SideBand64k Capability = "side-band-64k"
	// IncludeTag asks the server to also send any annotated tag whose
	// target is included in the pack.
	IncludeTag Capability = "include-tag"
	// Agent carries a free-form client/server identification string.
	Agent Capability = "agent"
	// Shallow / DeepenSince / DeepenNot / DeepenRelative select and
	// refine shallow-clone depth limiting.
	Shallow        Capability = "shallow"
	DeepenSince    Capability = "deepen-since"
	DeepenNot      Capability = "deepen-not"
	DeepenRelative Capability = "deepen-relative"
	// Filter enables partial clone object filtering (blob:none,
	// blob:limit=<n>).
	Filter Capability = "filter"
	// AllowTipSHA1InWant / AllowReachableSHA1InWant mirror the
	// uploadpack.* config names the WantPolicy variants implement.
	AllowTipSHA1InWant       Capability = "allow-tip-sha1-in-want"
	AllowReachableSHA1InWant Capability = "allow-reachable-sha1-in-want"
)

// List is an ordered, deduplicated set of capabilities, the shape both
// a ref advertisement and a parsed want/have request line carry.
type List struct {
	order []Capability
	set   map[Capability]string
}

// NewList returns an empty capability list.
func NewList() *List {
	return &List{set: make(map[Capability]string)}
}

// Add sets cap present in the list, optionally with a value (e.g.
// Agent's free-form string, Filter's "blob:limit=1024"). Adding an
// already-present capability overwrites its value without reordering.
func (l *List) Add(cap Capability, value string) {
	if _, ok := l.set[cap]; !ok {
		l.order = append(l.order, cap)
	}
	l.set[cap] = value
}

// Has reports whether cap is present.
func (l *List) Has(cap Capability) bool {
	_, ok := l.set[cap]
	return ok
}

// Get returns cap's value (possibly empty) and whether it was present.
func (l *List) Get(cap Capability) (string, bool) {
	v, ok := l.set[cap]
	return v, ok
}

// List returns every capability in the order it was added, the order
// an advertisement line must preserve to stay deterministic across
// runs.
func (l *List) List() []Capability {
	return append([]Capability(nil), l.order...)
}

// String renders the list the way it appears appended to the first
// ref-advertisement pkt-line: a space, then each capability, with
// "name=value" for those carrying a value, space-separated.
func (l *List) String() string {
	out := ""
	for i, c := range l.order {
		if i > 0 {
			out += " "
		}
		if v := l.set[c]; v != "" {
			out += string(c) + "=" + v
		} else {
			out += string(c)
		}
	}
	return out
}

// Parse splits a capability string (as trailing text on the first
// ref-advertisement or want line) into a List.
func Parse(s string) *List {
	l := NewList()
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				tok := s[start:i]
				name, value := tok, ""
				for j := 0; j < len(tok); j++ {
					if tok[j] == '=' {
						name, value = tok[:j], tok[j+1:]
						break
					}
				}
				l.Add(Capability(name), value)
			}
			start = i + 1
		}
	}
	return l
}

// Supported is the full set of capabilities this server may advertise.
// server.Negotiator acts on a client's requested capabilities as sent;
// it does not intersect them with this set.
func Supported(agent string) *List {
	l := NewList()
	l.Add(MultiACKDetailed, "")
	l.Add(NoDone, "")
	l.Add(ThinPack, "")
	l.Add(OFSDelta, "")
	l.Add(SideBand64k, "")
	l.Add(IncludeTag, "")
	l.Add(AllowTipSHA1InWant, "")
	l.Add(AllowReachableSHA1InWant, "")
	l.Add(Shallow, "")
	l.Add(DeepenSince, "")
	l.Add(DeepenNot, "")
	l.Add(DeepenRelative, "")
	l.Add(Filter, "")
	if agent != "" {
		l.Add(Agent, agent)
	}
	return l
}
