// Package decoder drives the incremental control-flow decode: pop a jump
// target, translate one instruction at a time into the IR, classify the
// resulting terminator, and grow the CFG index and pseudo-call worklist as
// new code is discovered. The main loop is worklist-driven: each popped
// target either extends the module in place (a target inside an allowed
// range) or triggers recovery against the existing CFG index (a target that
// already landed inside decoded code), iterating until the worklist drains.
// The pseudo-call patch queue is then applied once; patches whose targets
// are still unknown at that point stay unapplied.
package decoder

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/binlift/bin2ir/internal/abi"
	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/cfgindex"
	"github.com/binlift/bin2ir/internal/config"
	"github.com/binlift/bin2ir/internal/debuginfo"
	"github.com/binlift/bin2ir/internal/image"
	"github.com/binlift/bin2ir/internal/ir"
	"github.com/binlift/bin2ir/internal/pseudocall"
	"github.com/binlift/bin2ir/internal/translator"
	"github.com/binlift/bin2ir/internal/worklist"
)

// Decoder owns one module decode from a seeded worklist through to a
// finalized, pseudo-call-patched IR module.
type Decoder struct {
	module *ir.Module
	img    image.Provider
	tr     translator.Translator
	abiCtx abi.Context
	dbg    debuginfo.Provider

	allowed     *addr.Set
	alternative *addr.Set

	queue        *worklist.Queue
	pcw          *pseudocall.Worklist
	idx          *cfgindex.Index
	placeholders map[*ir.BasicBlock]*ir.Instruction

	entry    addr.Address
	exported []addr.Address
}

// New builds a Decoder ready to run. allowed seeds the executable ranges the
// decoder is permitted to lift; alternative seeds readable-but-not-executable
// fallback ranges. entry is the binary's entry
// point; exported is the set of exported-symbol addresses to seed as call
// targets. dbg may be nil.
func New(img image.Provider, tr translator.Translator, abiCtx abi.Context, dbg debuginfo.Provider, allowed, alternative *addr.Set, entry addr.Address, exported []addr.Address) *Decoder {
	return &Decoder{
		module:       ir.NewModule(),
		img:          img,
		tr:           tr,
		abiCtx:       abiCtx,
		dbg:          dbg,
		allowed:      allowed,
		alternative:  alternative,
		queue:        worklist.NewQueue(),
		pcw:          pseudocall.New(),
		placeholders: make(map[*ir.BasicBlock]*ir.Instruction),
		entry:        entry,
		exported:     append([]addr.Address{}, exported...),
	}
}

// Module returns the IR module under construction. Safe to call during or
// after Run.
func (d *Decoder) Module() *ir.Module { return d.module }

// Allowed returns the decoder's shrinking allowed-range set.
func (d *Decoder) Allowed() *addr.Set { return d.allowed }

// Index returns the decoder's current CFG index, rebuilt after every
// processed jump target.
func (d *Decoder) Index() *cfgindex.Index { return d.idx }

// Run drains the worklist to completion and patches every resolvable
// pseudo-call before returning. It reports whether the module changed.
func (d *Decoder) Run(cfg *config.Config) (bool, error) {
	d.initJumpTargets(cfg)
	d.idx = cfgindex.Build(d.module)

	changed := false
	for !d.queue.Empty() {
		jt := d.queue.Pop()
		c, err := d.processTarget(jt)
		if err != nil {
			return changed, err
		}
		changed = changed || c
		d.idx = cfgindex.Build(d.module)
	}

	if _, err := d.pcw.Apply(d.idx); err != nil {
		return changed, inconsistentPatch(addr.Undefined, "finalization", err)
	}
	return changed, nil
}

// initJumpTargets seeds the worklist with the entry point, every exported
// address, and every debug-info function address (when dbg implements
// debuginfo.AddressLister).
func (d *Decoder) initJumpTargets(cfg *config.Config) {
	d.queue.Push(worklist.Target{Address: d.entry, Kind: worklist.EntryPoint, Mode: cfg.Mode})
	for _, a := range d.exported {
		d.queue.Push(worklist.Target{Address: a, Kind: worklist.CFCallTarget, Mode: cfg.Mode})
	}
	if lister, ok := d.dbg.(debuginfo.AddressLister); ok {
		for _, a := range lister.FunctionAddresses() {
			d.queue.Push(worklist.Target{Address: a, Kind: worklist.CFCallTarget, Mode: cfg.Mode})
		}
	}
}

// processTarget implements main-loop steps 1-2: skip undefined
// addresses, recover when the target falls outside every allowed range,
// otherwise decode normally.
func (d *Decoder) processTarget(jt worklist.Target) (bool, error) {
	if !jt.Address.Defined() {
		return false, nil
	}
	if !d.allowed.Contains(jt.Address) {
		return d.recover(jt)
	}
	return d.decodeAt(jt)
}

// recover implements step 2's kind-dependent recovery for a
// target outside every allowed range. It only ensures the right CFG entity
// exists (splitting a block/function when needed); the actual pseudo-call
// patch is left to the pseudo-call worklist's finalization pass, since by
// construction every patchable pseudo-terminator was already recorded there
// with this same target address when it was classified.
func (d *Decoder) recover(jt worklist.Target) (bool, error) {
	switch jt.Kind {
	case worklist.CFCallAfter:
		return false, invariantViolation(jt.Address, "CF_CALL_AFTER target lies outside every allowed range")

	case worklist.CFBrFalse:
		fromInst, _ := jt.FromInst.(*ir.Instruction)
		if fromInst == nil || fromInst.Block() == nil {
			return false, invariantViolation(jt.Address, "CF_BR_FALSE recovery has no originating instruction")
		}
		fn := fromInst.Block().Function()
		b := d.idx.BlockAt(jt.Address)
		if b == nil || b.Function() != fn {
			return false, invariantViolation(jt.Address, "CF_BR_FALSE target has no existing block in the originating function")
		}
		return false, nil

	case worklist.CFBrTrue:
		fromInst, _ := jt.FromInst.(*ir.Instruction)
		if fromInst == nil || fromInst.Block() == nil {
			return false, invariantViolation(jt.Address, "CF_BR_TRUE recovery has no originating instruction")
		}
		fn := fromInst.Block().Function()
		if b := d.idx.BlockAt(jt.Address); b != nil && b.Function() == fn {
			return false, nil
		}
		if b, owner := d.idx.BlockContaining(jt.Address); b != nil && owner == fn {
			if i, ok := instructionIndexAt(b, jt.Address); ok {
				b.SplitAt(i, jt.Address)
				return true, nil
			}
		}
		return false, invariantViolation(jt.Address, "CF_BR_TRUE target has no block or instruction in the originating function")

	case worklist.CFCallTarget:
		if f := d.idx.FunctionAt(jt.Address); f != nil {
			return false, nil
		}
		if b, fn := d.idx.BlockContaining(jt.Address); b != nil && fn != nil {
			if i, ok := instructionIndexAt(b, jt.Address); ok {
				name := fmt.Sprintf("function_%x", uint64(jt.Address))
				fn.SplitAt(b, i, jt.Address, name)
				return true, nil
			}
		}
		return false, invariantViolation(jt.Address, "CF_CALL_TARGET has no function or instruction at the target address")

	default:
		log.Warn("decoder: skipping recovery for an unrecognized jump-target kind", "address", jt.Address, "kind", jt.Kind)
		return false, nil
	}
}

// instructionIndexAt locates a's position within b's instruction list. The
// CFG index tracks block/function containment but not per-instruction
// addresses, so a split still needs this narrow, single-block scan to turn
// a contained address into the instruction index BasicBlock.SplitAt wants.
func instructionIndexAt(b *ir.BasicBlock, a addr.Address) (int, bool) {
	for i, inst := range b.Instructions() {
		if inst.Address() == a {
			return i, true
		}
	}
	return 0, false
}
