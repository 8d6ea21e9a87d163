package ir

import "github.com/binlift/bin2ir/internal/addr"

// BasicBlock is a maximal straight-line instruction sequence ending in
// exactly one terminator. It keeps its own parent/child edges and a
// lazily-grown instruction list, so CFG edges stay valid across splits and
// insertions without a separate owning structure.
type BasicBlock struct {
	function     *Function
	address      addr.Address // addr.Undefined for a synthetic, address-less block
	instructions []*Instruction
	parents      []*BasicBlock
	children     []*BasicBlock
}

// Address returns the block's first-instruction address, or addr.Undefined
// if the block is a synthetic helper with no originating machine address
// of its own (such blocks are elided from the JSON CFG dump).
func (b *BasicBlock) Address() addr.Address {
	if b == nil {
		return addr.Undefined
	}
	return b.address
}

// Function returns the owning function.
func (b *BasicBlock) Function() *Function {
	if b == nil {
		return nil
	}
	return b.function
}

// Instructions returns the block's instructions in order.
func (b *BasicBlock) Instructions() []*Instruction {
	if b == nil {
		return nil
	}
	return b.instructions
}

// LastInstructionAddress returns the address of the block's last
// instruction, or addr.Undefined if the block is empty.
func (b *BasicBlock) LastInstructionAddress() addr.Address {
	if b == nil || len(b.instructions) == 0 {
		return addr.Undefined
	}
	return b.instructions[len(b.instructions)-1].addr
}

// Terminator returns the block's last instruction, or nil if empty.
func (b *BasicBlock) Terminator() *Instruction {
	if b == nil || len(b.instructions) == 0 {
		return nil
	}
	return b.instructions[len(b.instructions)-1]
}

// Parents returns the block's predecessors.
func (b *BasicBlock) Parents() []*BasicBlock {
	if b == nil {
		return nil
	}
	return b.parents
}

// Children returns the block's successors.
func (b *BasicBlock) Children() []*BasicBlock {
	if b == nil {
		return nil
	}
	return b.children
}

// AddSuccessor links b -> child, and child's parent list back to b,
// idempotently (no duplicate edges).
func (b *BasicBlock) AddSuccessor(child *BasicBlock) {
	if b == nil || child == nil {
		return
	}
	for _, c := range b.children {
		if c == child {
			return
		}
	}
	b.children = append(b.children, child)
	child.parents = append(child.parents, b)
}

// SplitAt splits b at instruction index idx: instructions [idx:] move to a
// new sibling block created immediately after b in the owning function's
// block list, taking b's outgoing edges with them. This is the same-function
// counterpart to Function.SplitAt (which splits off a new *Function*): it
// implements the CF_BR_TRUE recovery case where a jump target
// lands mid-block inside the function that already owns it.
func (b *BasicBlock) SplitAt(idx int, newAddr addr.Address) *BasicBlock {
	if b == nil || idx < 0 || idx > len(b.instructions) {
		return nil
	}
	tail := b.instructions[idx:]
	head := b.instructions[:idx]

	nb := b.function.InsertBlockAfter(b, newAddr)
	for _, inst := range tail {
		nb.append(inst)
	}
	b.instructions = head

	nb.children = b.children
	for _, c := range nb.children {
		for i, p := range c.parents {
			if p == b {
				c.parents[i] = nb
			}
		}
	}
	b.children = nil
	b.AddSuccessor(nb)
	return nb
}

func (b *BasicBlock) eraseInstruction(target *Instruction) {
	out := b.instructions[:0]
	for _, inst := range b.instructions {
		if inst == target {
			continue
		}
		inst.idx = len(out)
		out = append(out, inst)
	}
	b.instructions = out
}

func (b *BasicBlock) append(inst *Instruction) *Instruction {
	inst.block = b
	inst.idx = len(b.instructions)
	b.instructions = append(b.instructions, inst)
	return inst
}

// insertBefore inserts inst immediately before the instruction at position
// pos (or at the end if pos == len(instructions)), used to place a newly
// lifted instruction ahead of a block's placeholder terminator.
func (b *BasicBlock) insertBefore(pos int, inst *Instruction) *Instruction {
	inst.block = b
	if pos < 0 || pos > len(b.instructions) {
		pos = len(b.instructions)
	}
	b.instructions = append(b.instructions, nil)
	copy(b.instructions[pos+1:], b.instructions[pos:])
	b.instructions[pos] = inst
	for i := pos; i < len(b.instructions); i++ {
		b.instructions[i].idx = i
	}
	return inst
}
