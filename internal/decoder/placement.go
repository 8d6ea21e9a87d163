package decoder

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/ir"
	"github.com/binlift/bin2ir/internal/worklist"
)

// decodeAt handles a target known to lie in an allowed range: fetch bytes,
// place the IR builder, run the decode loop, then mark the consumed bytes
// removed from allowed.
func (d *Decoder) decodeAt(jt worklist.Target) (bool, error) {
	_, avail := d.img.RawBytes(jt.Address)
	if avail == 0 {
		log.Warn("decoder: unmapped address, skipping", "address", jt.Address)
		return false, nil
	}

	_, b, bld, err := d.place(jt)
	if err != nil {
		return false, err
	}

	cur := jt.Address
	madeProgress := false
	for {
		window, avail := d.img.RawBytes(cur)
		if avail == 0 {
			log.Warn("decoder: unmapped address mid-block, stopping block", "address", cur)
			break
		}
		if rng := d.allowed.RangeOf(cur); rng != nil && rng.End.Defined() {
			if maxLen := int(uint64(rng.End) - uint64(cur)); maxLen < len(window) {
				window = window[:maxLen]
			}
		}

		res, err := d.tr.TranslateOne(window, cur, jt.Mode, bld)
		if err != nil {
			log.Warn("decoder: translation error, stopping block", "address", cur, "err", err)
			break
		}
		if res.Failed {
			log.Warn("decoder: translation failed, stopping block", "address", cur, "mnemonic", res.OriginalInsn.Mnemonic)
			break
		}

		madeProgress = true
		terminated := d.classify(jt, cur, res)
		if res.Size == 0 {
			break
		}
		cur = cur.Add(res.Size)
		if terminated {
			break
		}
	}

	d.finishBlock(b)
	if madeProgress {
		d.allowed.Remove(addr.NewRange(jt.Address, cur))
	}
	return madeProgress, nil
}

// place implements the IR builder placement table for each jump-target kind
// (plus the canonical handling generalized to CF_RETURN_TARGET and any other
// kind that reaches the normal, in-range path).
func (d *Decoder) place(jt worklist.Target) (*ir.Function, *ir.BasicBlock, *ir.Builder, error) {
	switch jt.Kind {
	case worklist.EntryPoint:
		fn := d.module.NewFunction(jt.Address, fmt.Sprintf("func_%x", uint64(jt.Address)))
		b, bld := d.openBlock(fn, jt.Address)
		return fn, b, bld, nil

	case worklist.CFCallAfter:
		// A call's fallthrough continuation starts a new block, kept in the same
		// function right after the call's own block — the call terminates
		// its block even though control returns to it.
		fromInst, _ := jt.FromInst.(*ir.Instruction)
		if fromInst == nil || fromInst.Block() == nil {
			return nil, nil, nil, invariantViolation(jt.Address, "CF_CALL_AFTER has no originating pseudo-call")
		}
		ref := fromInst.Block()
		fn := ref.Function()
		b, bld := d.openBlockAfter(fn, ref, jt.Address)
		return fn, b, bld, nil

	case worklist.CFBrFalse:
		fromInst, _ := jt.FromInst.(*ir.Instruction)
		if fromInst == nil || fromInst.Block() == nil {
			return nil, nil, nil, invariantViolation(jt.Address, "CF_BR_FALSE has no originating pseudo-branch")
		}
		ref := fromInst.Block()
		fn := ref.Function()
		b, bld := d.openBlockAfter(fn, ref, jt.Address)
		return fn, b, bld, nil

	case worklist.CFCallTarget:
		fn := d.module.NewFunction(jt.Address, fmt.Sprintf("function_%x", uint64(jt.Address)))
		b, bld := d.openBlock(fn, jt.Address)
		return fn, b, bld, nil

	default:
		// CF_BR_TRUE and CF_RETURN_TARGET: both are always pushed with
		// from_inst set (classify.go is their only producer). The canonical
		// handling stays inside from_inst's own function only when that
		// function is actually the nearest one covering the target address —
		// a forward branch or a visible return address is intra-procedural
		// control flow precisely when it lands inside the function it came
		// from, never merely because it came from an instruction at all. If
		// the nearest preceding function isn't from_inst's own function (the
		// target escaped into unclaimed bytes, or into a function that
		// hasn't been opened yet), a new function is spawned instead, same
		// as CF_CALL_TARGET above. The new block is inserted after the
		// nearest existing block of that function at or before the target
		// address, falling back to from_inst's own block when the nearest
		// block at or before the target is missing or belongs to another
		// function.
		if fromInst, ok := jt.FromInst.(*ir.Instruction); ok && fromInst != nil && fromInst.Block() != nil {
			fn := fromInst.Block().Function()
			if pred := d.idx.FunctionBefore(jt.Address); pred == fn {
				ref := fromInst.Block()
				if predBlock := d.idx.BlockBefore(jt.Address); predBlock != nil && predBlock.Function() == fn {
					ref = predBlock
				}
				b, bld := d.openBlockAfter(fn, ref, jt.Address)
				return fn, b, bld, nil
			}
		}
		fn := d.module.NewFunction(jt.Address, fmt.Sprintf("func_%x", uint64(jt.Address)))
		b, bld := d.openBlock(fn, jt.Address)
		return fn, b, bld, nil
	}
}

// openBlock creates a fresh block at the end of fn's block list, seeded with
// a placeholder terminator, and returns a builder positioned immediately
// before that placeholder.
func (d *Decoder) openBlock(fn *ir.Function, start addr.Address) (*ir.BasicBlock, *ir.Builder) {
	b := fn.NewBlock(start)
	bld := ir.NewBuilder(b)
	ph := bld.InsertPlaceholderTerminator(start)
	d.placeholders[b] = ph
	return b, ir.NewBuilderBefore(ph)
}

// openBlockAfter is openBlock's counterpart for CF_BR_FALSE/CF_BR_TRUE
// placement, which inserts the new block after a specific reference block
// instead of at the end of the function.
func (d *Decoder) openBlockAfter(fn *ir.Function, ref *ir.BasicBlock, start addr.Address) (*ir.BasicBlock, *ir.Builder) {
	b := fn.InsertBlockAfter(ref, start)
	bld := ir.NewBuilder(b)
	ph := bld.InsertPlaceholderTerminator(start)
	d.placeholders[b] = ph
	return b, ir.NewBuilderBefore(ph)
}

// finishBlock discards a still-pending placeholder terminator once at least
// one instruction has been inserted ahead of it, whether or not that
// instruction is a terminator. A block whose decode loop inserted nothing
// (an immediate translation failure) keeps its placeholder as its
// terminator, which is the best-effort outcome for a local translation
// error.
func (d *Decoder) finishBlock(b *ir.BasicBlock) {
	ph, ok := d.placeholders[b]
	if !ok {
		return
	}
	insts := b.Instructions()
	if len(insts) >= 2 && insts[len(insts)-1] == ph {
		ph.EraseFromParent()
	}
	delete(d.placeholders, b)
}
