// Package giterr defines the error taxonomy shared by the pack codec,
// indexer and upload-pack server. Each Kind corresponds to one row of
// the failure-mode table in the design: errors propagate as plain Go
// errors wrapping one of these sentinels, checked with errors.Is, and
// are logged exactly once at the RPC boundary rather than at every
// frame they pass through.
package giterr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for logging, metrics and wire encoding. It
// is deliberately a closed set: new failure modes should map onto one
// of these, not grow the set.
type Kind int

const (
	KindUnknown Kind = iota
	KindTruncatedInput
	KindInvalidFormat
	KindChecksumMismatch
	KindCorruptDelta
	KindMissingBase
	KindObjectCollision
	KindProtocolViolation
	KindPolicyDenied
	KindWalkInternal
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTruncatedInput:
		return "truncated-input"
	case KindInvalidFormat:
		return "invalid-format"
	case KindChecksumMismatch:
		return "checksum-mismatch"
	case KindCorruptDelta:
		return "corrupt-delta"
	case KindMissingBase:
		return "missing-base"
	case KindObjectCollision:
		return "object-collision"
	case KindProtocolViolation:
		return "protocol-violation"
	case KindPolicyDenied:
		return "policy-denied"
	case KindWalkInternal:
		return "walk-internal"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Sentinels, one per Kind, wrapped with errors.Is-compatible %w chains
// by the helpers below.
var (
	ErrTruncatedInput    = errors.New("truncated input")
	ErrInvalidFormat     = errors.New("invalid format")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrCorruptDelta      = errors.New("corrupt delta")
	ErrMissingBase       = errors.New("missing delta base")
	ErrObjectCollision   = errors.New("object collision")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrPolicyDenied      = errors.New("policy denied")
	ErrWalkInternal      = errors.New("walk internal error")
	ErrCancelled         = errors.New("cancelled")
)

var sentinelByKind = map[Kind]error{
	KindTruncatedInput:    ErrTruncatedInput,
	KindInvalidFormat:     ErrInvalidFormat,
	KindChecksumMismatch:  ErrChecksumMismatch,
	KindCorruptDelta:      ErrCorruptDelta,
	KindMissingBase:       ErrMissingBase,
	KindObjectCollision:   ErrObjectCollision,
	KindProtocolViolation: ErrProtocolViolation,
	KindPolicyDenied:      ErrPolicyDenied,
	KindWalkInternal:      ErrWalkInternal,
	KindCancelled:         ErrCancelled,
}

// Wrap annotates msg with the sentinel for kind so that errors.Is(err,
// sentinel) keeps working after it propagates to the RPC boundary.
func Wrap(kind Kind, msg string, args ...any) error {
	sentinel, ok := sentinelByKind[kind]
	if !ok {
		sentinel = errors.New(kind.String())
	}
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(msg, args...))
}

// KindOf classifies err by walking its chain for one of the known
// sentinels. It returns KindUnknown for errors not produced by Wrap
// (e.g. plain I/O errors from an underlying transport).
func KindOf(err error) Kind {
	for kind, sentinel := range sentinelByKind {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

// Fatal reports whether err, per the design's taxonomy, always
// terminates the RPC it occurred in. Every Kind this package defines
// is fatal by design — there is no "warning" tier — but the helper
// exists so call sites read as intent rather than "if err != nil".
func Fatal(err error) bool {
	return err != nil
}
