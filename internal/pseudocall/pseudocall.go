// Package pseudocall drives the worklist that patches every pseudo-terminator
// the translator emitted with its real CFG target once that target's
// address has been decoded: a jump whose destination wasn't known at
// emission time is recorded here, and patched once the destination block
// exists.
package pseudocall

import (
	"fmt"

	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/cfgindex"
	"github.com/binlift/bin2ir/internal/ir"
)

// Record is one pending patch: a pseudo-terminator instruction plus the
// address its operand resolves to, and which target slot that address
// should land in.
type Record struct {
	Inst   *ir.Instruction
	Target addr.Address
	Slot   Slot
}

// Slot names which of an Instruction's pseudo-terminator target fields a
// Record patches.
type Slot int

const (
	SlotCallTarget Slot = iota
	SlotBranchTrue
	SlotBranchFalse
	SlotReturn
)

// Worklist accumulates Records during decoding and applies them once the CFG
// index is available.
type Worklist struct {
	pending []Record
}

// New returns an empty Worklist.
func New() *Worklist {
	return &Worklist{}
}

// Add records a pending patch.
func (w *Worklist) Add(r Record) {
	w.pending = append(w.pending, r)
}

// Len reports how many patches are pending.
func (w *Worklist) Len() int {
	return len(w.pending)
}

// Apply resolves every pending patch against idx, in the order the patches
// were recorded. A patch whose target address has no corresponding entity in
// idx is skipped and reported back to the caller; a patch that conflicts
// with an already-applied different target on the same instruction/slot is
// fatal (ir.PatchError), matching decoder.InconsistentPatch.
func (w *Worklist) Apply(idx *cfgindex.Index) (unresolved []Record, err error) {
	for _, r := range w.pending {
		switch r.Slot {
		case SlotCallTarget:
			f := idx.FunctionAt(r.Target)
			if f == nil {
				unresolved = append(unresolved, r)
				continue
			}
			if perr := r.Inst.SetTargetFunction(f); perr != nil {
				return unresolved, perr
			}
		case SlotBranchTrue:
			b := idx.BlockAt(r.Target)
			if b == nil {
				unresolved = append(unresolved, r)
				continue
			}
			if perr := r.Inst.SetTargetTrue(b); perr != nil {
				return unresolved, perr
			}
		case SlotBranchFalse:
			b := idx.BlockAt(r.Target)
			if b == nil {
				unresolved = append(unresolved, r)
				continue
			}
			if perr := r.Inst.SetTargetFalse(b); perr != nil {
				return unresolved, perr
			}
		case SlotReturn:
			b := idx.BlockAt(r.Target)
			if b == nil {
				unresolved = append(unresolved, r)
				continue
			}
			if perr := r.Inst.SetTargetReturn(b); perr != nil {
				return unresolved, perr
			}
		default:
			return unresolved, fmt.Errorf("pseudocall: unknown slot %d", r.Slot)
		}
	}
	return unresolved, nil
}
