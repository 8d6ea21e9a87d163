// Package translator defines the single-instruction translator contract the
// decoder drives, plus a deterministic in-memory fake for tests and a Noop
// stub for callers that only need the interface satisfied: the external
// disassembler is modeled as a narrow interface, with a do-nothing
// implementation kept alongside it so callers that don't need real behavior
// never have to special-case nil.
package translator

import (
	"fmt"

	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/ir"
)

// ModeToken is an opaque decoder-mode value round-tripped between the
// decoder and the translator (e.g. a Thumb/ARM mode bit, or an instruction
// width hint); the decoder never inspects it.
type ModeToken any

// OriginalInsn stands in for a disassembler's instruction descriptor
// (capstone_insn in the system this module generalizes). The decoder only
// ever reads its Mnemonic, for logging; the instruction length comes from
// Result.Size.
type OriginalInsn struct {
	Mnemonic string
	Bytes    []byte
}

// Result is what TranslateOne reports back for one machine instruction.
type Result struct {
	// Inst is the primary IR instruction produced, or nil if this machine
	// instruction decodes to no IR (e.g. a NOP).
	Inst *ir.Instruction
	// OriginalInsn is the disassembler's own view of the decoded bytes.
	OriginalInsn OriginalInsn
	// PseudoCall is set instead of (or alongside) Inst when the instruction
	// is a call/branch/return: a pseudo-terminator instruction whose real
	// target is patched later by internal/pseudocall.
	PseudoCall *ir.Instruction
	// Size is the number of bytes this machine instruction occupies.
	Size uint64
	// Failed reports a local, recoverable translation failure — the decoder logs and skips rather than aborting.
	Failed bool
}

// Translator lifts one machine instruction at address a (whose raw bytes are
// the prefix of data) into the IR, appending to b.
type Translator interface {
	TranslateOne(data []byte, a addr.Address, mode ModeToken, b *ir.Builder) (Result, error)
}

// Noop is a Translator that always reports a one-byte failed translation; it
// satisfies the interface for callers that construct a decoder without a
// real translator wired in (tests of everything upstream of translation).
type Noop struct{}

func (Noop) TranslateOne(data []byte, a addr.Address, mode ModeToken, b *ir.Builder) (Result, error) {
	return Result{Size: 1, Failed: true}, nil
}

// insnSpec is one entry of a Table's fixed instruction set.
type insnSpec struct {
	Bytes []byte
	Build func(a addr.Address, b *ir.Builder) Result
}

// Table is a small, deterministic fake Translator driven by an exact-bytes
// lookup table, used by decoder tests that need realistic pseudo-terminator
// shapes without a real disassembler.
type Table struct {
	entries []insnSpec
}

// NewTable returns an empty instruction table.
func NewTable() *Table {
	return &Table{}
}

// Add registers an instruction: whenever the next len(opBytes) bytes at the
// current address equal opBytes exactly, build is invoked to append IR.
func (t *Table) Add(opBytes []byte, build func(a addr.Address, b *ir.Builder) Result) {
	t.entries = append(t.entries, insnSpec{Bytes: append([]byte{}, opBytes...), Build: build})
}

func (t *Table) TranslateOne(data []byte, a addr.Address, mode ModeToken, b *ir.Builder) (Result, error) {
	for _, e := range t.entries {
		if len(data) < len(e.Bytes) {
			continue
		}
		match := true
		for i, want := range e.Bytes {
			if data[i] != want {
				match = false
				break
			}
		}
		if match {
			return e.Build(a, b), nil
		}
	}
	if len(data) == 0 {
		return Result{}, fmt.Errorf("translator: no bytes available at %s", a)
	}
	return Result{Size: 1, Failed: true}, nil
}
