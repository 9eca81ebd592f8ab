// Package log gives the indexer and negotiator a narrow logging seam,
// matching the plain log.Printf milestones go-git's own upload-pack
// service emits ("advertising refs", "refs advertised", ...) instead of
// pulling in a structured logging library this layer of go-git never
// reaches for.
package log

import (
	"io"
	"log"
	"os"
)

// Logger is the minimal surface this module logs through. *log.Logger
// already implements it.
type Logger interface {
	Printf(format string, v ...any)
}

// Default is used wherever a component is not given an explicit
// Logger, mirroring the package-level log.Printf calls go-git's
// plumbing/server package makes directly.
var Default Logger = log.New(os.Stderr, "", log.LstdFlags)

// Discard silences logging entirely; tests that don't want milestone
// noise pass this in place of Default.
var Discard Logger = log.New(io.Discard, "", 0)

// Nop is a Logger that drops everything, useful as a zero-value
// default field in option structs so callers are never nil-checked.
type nop struct{}

func (nop) Printf(string, ...any) {}

// Nop is the no-op Logger singleton.
var Nop Logger = nop{}
