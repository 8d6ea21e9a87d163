// Package stackpass implements the stack reconstruction pass: for every
// function, find memory accesses whose address reduces to
// `stack_pointer + constant_offset`, intern one slot per offset, and rewrite
// accesses to reference it. Debug info, when available, supplies the slot's
// name and declared type; otherwise the slot gets a synthetic name derived
// from its offset and the type of its first access.
package stackpass

import (
	"fmt"

	"github.com/binlift/bin2ir/internal/abi"
	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/debuginfo"
	"github.com/binlift/bin2ir/internal/ir"
	"github.com/binlift/bin2ir/internal/reachdef"
	"github.com/binlift/bin2ir/internal/symtree"
)

// Slot is a per-function, per-offset anonymous local. Once created it is
// reused for every access at the same offset; the first access to establish
// a slot fixes its type ("first writer wins"), later accesses of a
// different width get a coercion at the use site.
type Slot struct {
	Offset    int64
	Type      ir.Type
	Name      string
	FromDebug bool

	value *ir.Value
}

// Value returns the stable leaf Value standing for this slot's address, set
// once by intern and reused so that re-running the stack pass against its
// own output is idempotent.
func (s *Slot) Value() *ir.Value {
	return s.value
}

type slotTable struct {
	byOffset map[int64]*Slot
}

func newSlotTable() *slotTable {
	return &slotTable{byOffset: make(map[int64]*Slot)}
}

func (t *slotTable) intern(offset int64, elemType ir.Type, dbg *debuginfo.DebugLocal, ptrType ir.Type) *Slot {
	if s, ok := t.byOffset[offset]; ok {
		return s
	}
	s := &Slot{Offset: offset, Type: elemType, Name: fmt.Sprintf("stack_%x", uint64(offset))}
	if dbg != nil {
		s.Name = dbg.Name
		s.FromDebug = true
		s.Type = ir.Type{Bits: elemType.Bits, Name: dbg.LLVMTypeName}
	}
	s.value = ir.NewArgument(s.Name, ptrType)
	t.byOffset[offset] = s
	return s
}

type replaceItem struct {
	Inst *ir.Instruction
	From *ir.Value
	To   *Slot
}

// Run executes the stack pass over every function of m, using abiCtx to
// recognize the stack-pointer register and dbg (optional, may be nil) to
// name and type slots from debug info. Returns whether any rewrite was made.
func Run(m *ir.Module, abiCtx abi.Context, dbg debuginfo.Provider) (bool, error) {
	rd := reachdef.Build(m)
	changed := false
	for _, f := range m.Functions() {
		c, err := runFunction(f, abiCtx, dbg, rd)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}

func runFunction(f *ir.Function, abiCtx abi.Context, dbg debuginfo.Provider, rd *reachdef.Analysis) (bool, error) {
	subst := make(map[*ir.Instruction]*ir.Value)
	var items []replaceItem
	slots := newSlotTable()

	var debugFn *debuginfo.DebugFunction
	if dbg != nil {
		if fn, ok := dbg.FunctionAt(f.Address()); ok {
			debugFn = &fn
		}
	}

	// Phase A — hint collection.
	for _, b := range f.Blocks() {
		for _, inst := range b.Instructions() {
			if inst.Op() != ir.OpStore {
				continue
			}
			val := inst.Operand(1)
			ctx := symtree.Context{Reach: rd, ABI: abiCtx, Function: f, Subst: subst}
			n, _ := symtree.Build(ctx, val)
			n = symtree.Simplify(ctx, n)
			if c, ok := n.ConstInt(); ok {
				subst[inst] = ir.NewConst(c, val.Type())
			}
		}
	}

	// Phase B — address analysis, and Phase C — slot interning, fused into
	// one pass over loads and stores.
	for _, b := range f.Blocks() {
		for _, inst := range b.Instructions() {
			var ptr *ir.Value
			var elemType ir.Type
			switch inst.Op() {
			case ir.OpLoad:
				ptr = inst.Operand(0)
				elemType = inst.Type()
			case ir.OpStore:
				ptr = inst.Operand(0)
				elemType = inst.Operand(1).Type()
			default:
				continue
			}
			if elemType.Bits == 1 {
				continue // single-bit pointee: a flag, never a stack slot
			}
			if ptr.Kind() == ir.Const {
				continue // a fixed/global address, not stack-relative
			}

			ctx := symtree.Context{Reach: rd, ABI: abiCtx, Function: f, Subst: subst}
			n, used := symtree.Build(ctx, ptr)
			n = symtree.Simplify(ctx, n)
			if !used && !symtree.ContainsSPLeaf(n) {
				continue
			}

			debugLocal := findDebugLocal(debugFn, n)

			offset, ok := resolveOffset(n)
			if !ok {
				continue
			}

			slot := slots.intern(offset, elemType, debugLocal, abiCtx.PointerType())
			items = append(items, replaceItem{Inst: inst, From: ptr, To: slot})
		}
	}

	if len(items) == 0 {
		return false, nil
	}

	// Phase D — apply rewrites.
	for _, ri := range items {
		if err := applyRewrite(ri); err != nil {
			return true, err
		}
	}
	return true, nil
}

// findDebugLocal mirrors getDebugStackVariable: the tree's root constant is
// the offset if one is already known; otherwise look for an
// Add(Load(register), Const) shape anywhere in the tree (an indirect SP
// loaded from a register-backed location before the offset is added).
func findDebugLocal(debugFn *debuginfo.DebugFunction, n *symtree.Node) *debuginfo.DebugLocal {
	if debugFn == nil {
		return nil
	}
	offset, ok := baseOffset(n)
	if !ok {
		return nil
	}
	for i := range debugFn.Locals {
		l := &debugFn.Locals[i]
		if l.IsStack && l.StackOffset == offset {
			return l
		}
	}
	return nil
}

func baseOffset(n *symtree.Node) (int64, bool) {
	if off, ok := resolveOffset(n); ok {
		return off, true
	}
	return scanAddLoadConst(n)
}

// resolveOffset extracts the constant displacement from the stack pointer a
// simplified address tree represents: a bare SP leaf (offset 0), a bare
// constant (taken directly as the offset), or SP +/- a constant
// (stack_pointer + constant_offset).
func resolveOffset(n *symtree.Node) (int64, bool) {
	if c, ok := n.ConstInt(); ok {
		return int64(c.Uint64()), true
	}
	if n.IsSPLeaf {
		return 0, true
	}
	if len(n.Ops) != 2 || n.Value == nil || n.Value.Def() == nil {
		return 0, false
	}
	left, right := n.Ops[0], n.Ops[1]
	switch n.Value.Def().Op() {
	case ir.OpAdd:
		if left.IsSPLeaf {
			if c, ok := right.ConstInt(); ok {
				return int64(c.Uint64()), true
			}
		}
		if right.IsSPLeaf {
			if c, ok := left.ConstInt(); ok {
				return int64(c.Uint64()), true
			}
		}
	case ir.OpSub:
		if left.IsSPLeaf {
			if c, ok := right.ConstInt(); ok {
				return -int64(c.Uint64()), true
			}
		}
	}
	return 0, false
}

func scanAddLoadConst(n *symtree.Node) (int64, bool) {
	if n == nil {
		return 0, false
	}
	if len(n.Ops) == 2 && n.Value != nil && n.Value.Def() != nil && n.Value.Def().Op() == ir.OpAdd {
		for _, pair := range [][2]*symtree.Node{{n.Ops[0], n.Ops[1]}, {n.Ops[1], n.Ops[0]}} {
			loadNode, constNode := pair[0], pair[1]
			if loadNode.Value != nil && loadNode.Value.Def() != nil && loadNode.Value.Def().Op() == ir.OpLoad {
				if c, ok := constNode.ConstInt(); ok {
					ptr := loadNode.Value.Def().Operand(0)
					if ptr != nil && ptr.Kind() == ir.Register {
						return int64(c.Uint64()), true
					}
				}
			}
		}
	}
	for _, child := range n.Ops {
		if off, ok := scanAddLoadConst(child); ok {
			return off, true
		}
	}
	return 0, false
}

func applyRewrite(ri replaceItem) error {
	switch ri.Inst.Op() {
	case ir.OpStore:
		if ri.Inst.Operand(0) == ri.From {
			return rewriteStorePointer(ri)
		}
	case ir.OpLoad:
		if ri.Inst.Operand(0) == ri.From {
			return rewriteLoadPointer(ri)
		}
	}
	return rewriteGenericUse(ri)
}

func rewriteStorePointer(ri replaceItem) error {
	bld := ir.NewBuilderBefore(ri.Inst)
	slotVal := ri.To.Value()
	if ri.To.Type.Aggregate {
		conv := bld.Insert(ri.Inst.Address(), ir.OpConvert, ri.From.Type(), slotVal).Result()
		ri.Inst.ReplaceOperand(0, conv)
		return nil
	}
	coerced := coerceValue(bld, ri.Inst.Address(), ri.Inst.Operand(1), ri.To.Type)
	bld.Insert(ri.Inst.Address(), ir.OpStore, ir.Type{}, slotVal, coerced)
	ri.Inst.EraseFromParent()
	return nil
}

func rewriteLoadPointer(ri replaceItem) error {
	bld := ir.NewBuilderBefore(ri.Inst)
	slotVal := ri.To.Value()
	if ri.To.Type.Aggregate {
		conv := bld.Insert(ri.Inst.Address(), ir.OpConvert, ri.From.Type(), slotVal).Result()
		ri.Inst.ReplaceOperand(0, conv)
		return nil
	}
	newLoad := bld.Insert(ri.Inst.Address(), ir.OpLoad, ri.To.Type, slotVal)
	coerced := coerceValue(bld, ri.Inst.Address(), newLoad.Result(), ri.Inst.Type())
	ri.Inst.ReplaceAllUsesWith(coerced)
	ri.Inst.EraseFromParent()
	return nil
}

func rewriteGenericUse(ri replaceItem) error {
	bld := ir.NewBuilderBefore(ri.Inst)
	coerced := coerceValue(bld, ri.Inst.Address(), ri.To.Value(), ri.From.Type())
	ri.Inst.ReplaceUsesOfWith(ri.From, coerced)
	return nil
}

func coerceValue(bld *ir.Builder, a addr.Address, v *ir.Value, to ir.Type) *ir.Value {
	if v.Type().Bits == to.Bits {
		return v
	}
	return bld.Insert(a, ir.OpConvert, to, v).Result()
}
