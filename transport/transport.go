// Package transport defines the seam between the Upload Negotiator and
// Pack Indexer and whatever carries their bytes to a peer — HTTP, SSH,
// or a local pipe. spec.md section 1 places connection establishment,
// authentication and proxying outside this module's scope; everything
// in here exists only to describe the shape a caller must hand in.
package transport

import (
	"context"
	"io"
)

// Conn is the bidirectional byte pair a WireTransport yields once a
// peer connection is established: reads carry the peer's pkt-line
// request stream, writes carry this side's response stream (ref
// advertisement, ACK/NAK, the pack itself). Closing it ends the RPC.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// WireTransport establishes connections to peers out of band of the
// pack codec and negotiator. A host process implements this over
// whatever it actually speaks — git:// local-pipe framing, the
// smart-HTTP POST body, or an SSH channel — and passes the resulting
// Conn to server.Negotiator.Serve or the Pack Indexer.
//
// This module ships no implementation: every concrete transport in the
// examples this repo learned from (go-git's ssh/http/file clients,
// gothub's grpc/http servers) pulls in authentication, proxying and
// connection-pooling concerns that belong to the host, not to the
// pack-format/protocol core.
type WireTransport interface {
	// Accept blocks until a peer connects or ctx is cancelled,
	// returning the Conn to drive one upload-pack or receive-pack RPC
	// over.
	Accept(ctx context.Context) (Conn, error)
}
