// Package worklist holds the decoder driver's ordered worklist of pending
// decode points (jump targets).
package worklist

import "github.com/binlift/bin2ir/internal/addr"

// Kind classifies why a jump target was discovered.
type Kind int

const (
	EntryPoint Kind = iota
	CFCallTarget
	CFBrTrue
	CFBrFalse
	CFCallAfter
	CFReturnTarget
)

// kindRank gives the deterministic tie-break ordering for non-entry kinds:
// CF_CALL_TARGET < CF_BR_TRUE < CF_BR_FALSE < CF_CALL_AFTER < CF_RETURN_TARGET.
func kindRank(k Kind) int {
	switch k {
	case CFCallTarget:
		return 0
	case CFBrTrue:
		return 1
	case CFBrFalse:
		return 2
	case CFCallAfter:
		return 3
	case CFReturnTarget:
		return 4
	default:
		return 5
	}
}

// FromInst is an opaque handle to the originating pseudo-terminator
// instruction; the worklist never dereferences it, only compares identity.
type FromInst interface{}

// Target is a pending decode request.
type Target struct {
	Address  addr.Address
	Kind     Kind
	Mode     ModeToken
	FromInst FromInst
}

// ModeToken is an opaque decoder-mode token round-tripped to the translator.
type ModeToken any

func (t Target) dedupeKey() dedupeKey {
	return dedupeKey{address: t.Address, kind: t.Kind, from: t.FromInst}
}

type dedupeKey struct {
	address addr.Address
	kind    Kind
	from    FromInst
}
