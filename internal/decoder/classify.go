package decoder

import (
	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/ir"
	"github.com/binlift/bin2ir/internal/pseudocall"
	"github.com/binlift/bin2ir/internal/translator"
	"github.com/binlift/bin2ir/internal/worklist"
)

// classify inspects the pseudo-terminator (if any) the translator just
// emitted, enqueues the follow-up jump targets its kind calls for, registers
// it on the pseudo-call worklist for later patching, and reports whether it
// terminates the current block.
//
// Operand convention (internal to this module; the translator contract
// itself is silent on operand order): a pseudo-call/pseudo-branch's call or
// branch target is operand 0; a pseudo-conditional-branch's true-branch
// target is operand 1 (operand 0 is its condition). "Folds to a constant
// address" means that operand's IR value is a bare constant — nothing more
// elaborate is attempted.
func (d *Decoder) classify(jt worklist.Target, cur addr.Address, res translator.Result) bool {
	inst := res.PseudoCall
	if inst == nil {
		return false
	}
	next := cur.Add(res.Size)

	switch inst.Op() {
	case ir.OpPseudoCall:
		if target, ok := constOperandAddr(inst.Operand(0)); ok {
			d.queue.Push(worklist.Target{Address: target, Kind: worklist.CFCallTarget, Mode: jt.Mode, FromInst: inst})
			d.pcw.Add(pseudocall.Record{Inst: inst, Target: target, Slot: pseudocall.SlotCallTarget})
		}
		d.queue.Push(worklist.Target{Address: next, Kind: worklist.CFCallAfter, Mode: jt.Mode, FromInst: inst})
		return true

	case ir.OpPseudoReturn:
		if target, ok := constOperandAddr(inst.Operand(0)); ok {
			d.queue.Push(worklist.Target{Address: target, Kind: worklist.CFReturnTarget, Mode: jt.Mode, FromInst: inst})
			d.pcw.Add(pseudocall.Record{Inst: inst, Target: target, Slot: pseudocall.SlotReturn})
		}
		return true

	case ir.OpPseudoBr:
		if target, ok := constOperandAddr(inst.Operand(0)); ok {
			d.queue.Push(worklist.Target{Address: target, Kind: worklist.CFBrTrue, Mode: jt.Mode, FromInst: inst})
			d.pcw.Add(pseudocall.Record{Inst: inst, Target: target, Slot: pseudocall.SlotBranchTrue})
		}
		return true

	case ir.OpPseudoCondBr:
		if target, ok := constOperandAddr(inst.Operand(1)); ok {
			d.queue.Push(worklist.Target{Address: target, Kind: worklist.CFBrTrue, Mode: jt.Mode, FromInst: inst})
			d.pcw.Add(pseudocall.Record{Inst: inst, Target: target, Slot: pseudocall.SlotBranchTrue})
		}
		d.queue.Push(worklist.Target{Address: next, Kind: worklist.CFBrFalse, Mode: jt.Mode, FromInst: inst})
		d.pcw.Add(pseudocall.Record{Inst: inst, Target: next, Slot: pseudocall.SlotBranchFalse})
		return true

	default:
		return false
	}
}

func constOperandAddr(v *ir.Value) (addr.Address, bool) {
	if v == nil {
		return addr.Undefined, false
	}
	c, ok := v.ConstInt()
	if !ok {
		return addr.Undefined, false
	}
	return addr.Address(c.Uint64()), true
}
