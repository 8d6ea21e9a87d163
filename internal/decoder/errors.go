package decoder

import (
	"fmt"

	"github.com/binlift/bin2ir/internal/addr"
)

// Kind classifies a decoder-level error.
type Kind int

const (
	// InvariantViolation is a situation the design deems impossible (e.g. a
	// CF_CALL_AFTER target outside every allowed range). Fatal: the caller
	// aborts the current module.
	InvariantViolation Kind = iota
	// InconsistentPatch mirrors ir.PatchError at the decoder's level: a
	// pseudo-call's target was set twice to different values. Fatal.
	InconsistentPatch
)

func (k Kind) String() string {
	switch k {
	case InvariantViolation:
		return "invariant violation"
	case InconsistentPatch:
		return "inconsistent patch"
	default:
		return "decode error"
	}
}

// Error is the typed, fatal error Run returns for InvariantViolation and
// InconsistentPatch: no exceptions cross the component boundary, only result
// values. TranslationError and UnmappedAddress never reach here — they are
// handled locally, logged, and the decode loop simply moves on (see
// placement.go's decodeAt).
type Error struct {
	Kind    Kind
	Address addr.Address
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoder: %s at %s: %s: %v", e.Kind, e.Address, e.Reason, e.Err)
	}
	return fmt.Sprintf("decoder: %s at %s: %s", e.Kind, e.Address, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func invariantViolation(a addr.Address, reason string) error {
	return &Error{Kind: InvariantViolation, Address: a, Reason: reason}
}

func inconsistentPatch(a addr.Address, reason string, err error) error {
	return &Error{Kind: InconsistentPatch, Address: a, Reason: reason, Err: err}
}
