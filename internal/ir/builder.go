package ir

import "github.com/binlift/bin2ir/internal/addr"

// Builder inserts instructions into a BasicBlock at a moving cursor position.
// Every block the decoder creates is seeded with a placeholder terminator;
// Builder's insert calls always land immediately before that placeholder,
// and InsertPlaceholder below is how the decoder creates it.
type Builder struct {
	block *BasicBlock
	pos   int // insertion point; len(block.instructions) means "at the end"
}

// NewBuilder returns a Builder positioned at the end of b.
func NewBuilder(b *BasicBlock) *Builder {
	if b == nil {
		return &Builder{}
	}
	return &Builder{block: b, pos: len(b.instructions)}
}

// NewBuilderBefore returns a Builder whose next Insert lands immediately
// before inst in its block, used by the stack pass to splice a coercion or
// a replacement store/load in front of the instruction it is replacing.
func NewBuilderBefore(inst *Instruction) *Builder {
	if inst == nil || inst.block == nil {
		return &Builder{}
	}
	return &Builder{block: inst.block, pos: inst.idx}
}

// SetBlock repositions the builder to the end of b.
func (bld *Builder) SetBlock(b *BasicBlock) {
	bld.block = b
	if b == nil {
		bld.pos = 0
		return
	}
	bld.pos = len(b.instructions)
}

// Block returns the block the builder currently inserts into.
func (bld *Builder) Block() *BasicBlock {
	return bld.block
}

// Insert creates a new instruction with op, operands, a result type, and a
// source address, and places it at the builder's current position. The
// builder's position advances past the new instruction.
func (bld *Builder) Insert(a addr.Address, op Op, t Type, operands ...*Value) *Instruction {
	inst := &Instruction{op: op, operands: append([]*Value{}, operands...), addr: a, typ: t}
	for _, v := range operands {
		if v != nil && v.def != nil {
			v.def.uses = append(v.def.uses, inst)
		}
	}
	bld.block.insertBefore(bld.pos, inst)
	bld.pos++
	return inst
}

// InsertPlaceholderTerminator appends an OpUnreachablePad to an empty block,
// satisfying the invariant that every block the decoder creates has exactly
// one terminator from the moment it is created, to be
// replaced in place once the real terminator is known. The builder is left
// positioned immediately before the placeholder.
func (bld *Builder) InsertPlaceholderTerminator(a addr.Address) *Instruction {
	inst := &Instruction{op: OpUnreachablePad, addr: a, typ: Type{}}
	bld.block.append(inst)
	bld.pos = inst.idx
	return inst
}

// ReplaceTerminator puts a freshly built terminator into the slot of the
// block's current last instruction, keeping that instruction's address and
// index. The new terminator is a separate Instruction: values taken from the
// old instruction's Result() still refer to the old instruction.
func (bld *Builder) ReplaceTerminator(op Op, t Type, operands ...*Value) *Instruction {
	b := bld.block
	if b == nil || len(b.instructions) == 0 {
		return bld.Insert(addr.Undefined, op, t, operands...)
	}
	old := b.instructions[len(b.instructions)-1]
	inst := &Instruction{op: op, operands: append([]*Value{}, operands...), addr: old.addr, typ: t, idx: old.idx, block: b}
	for _, v := range operands {
		if v != nil && v.def != nil {
			v.def.uses = append(v.def.uses, inst)
		}
	}
	b.instructions[len(b.instructions)-1] = inst
	bld.pos = len(b.instructions)
	return inst
}
