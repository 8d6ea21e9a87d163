package ir

import "github.com/binlift/bin2ir/internal/addr"

// Function is a collection of BasicBlocks reachable from a single entry
// address. The Module arena-owns Functions; address↔function lookup lives
// in internal/cfgindex, not here.
type Function struct {
	module  *Module
	address addr.Address
	blocks  []*BasicBlock
	name    string
}

// Address returns the function's entry address.
func (f *Function) Address() addr.Address {
	if f == nil {
		return addr.Undefined
	}
	return f.address
}

// Name returns the function's display name.
func (f *Function) Name() string {
	if f == nil {
		return ""
	}
	return f.name
}

// Blocks returns the function's basic blocks in insertion order. Invariant:
// a function in the index has at least one block, and that block's address
// equals the function's address.
func (f *Function) Blocks() []*BasicBlock {
	if f == nil {
		return nil
	}
	return f.blocks
}

// EntryBlock returns the function's first block.
func (f *Function) EntryBlock() *BasicBlock {
	if f == nil || len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}

// LastInstructionAddress returns the address of the last instruction of the
// function's last block, or the function's own address if no block has been
// populated yet.
func (f *Function) LastInstructionAddress() addr.Address {
	if f == nil || len(f.blocks) == 0 {
		return f.Address()
	}
	last := f.blocks[len(f.blocks)-1]
	if a := last.LastInstructionAddress(); a.Defined() {
		return a
	}
	return f.Address()
}

// NewBlock appends a fresh, empty basic block at the end of the function's
// block list.
func (f *Function) NewBlock(start addr.Address) *BasicBlock {
	b := &BasicBlock{function: f, address: start}
	f.blocks = append(f.blocks, b)
	return b
}

// InsertBlockAfter inserts a fresh block immediately after ref in the
// function's block list.
func (f *Function) InsertBlockAfter(ref *BasicBlock, start addr.Address) *BasicBlock {
	b := &BasicBlock{function: f, address: start}
	pos := len(f.blocks)
	for i, existing := range f.blocks {
		if existing == ref {
			pos = i + 1
			break
		}
	}
	f.blocks = append(f.blocks, nil)
	copy(f.blocks[pos+1:], f.blocks[pos:])
	f.blocks[pos] = b
	return b
}

// SplitAt truncates the receiver so it ends right before splitIdx in block
// splitBlock, and returns a new sibling function (named by the caller) whose
// entry is a new block at newAddr holding splitBlock's instructions from
// splitIdx on, followed by every block after splitBlock. splitBlock itself
// stays in the receiver, keeping only the instructions before splitIdx.
// Used for the function split recovery triggered by a mid-function
// CF_CALL_TARGET.
func (f *Function) SplitAt(splitBlock *BasicBlock, splitIdx int, newAddr addr.Address, newName string) *Function {
	suffix := &Function{module: f.module, address: newAddr, name: newName}

	blockPos := -1
	for i, b := range f.blocks {
		if b == splitBlock {
			blockPos = i
			break
		}
	}
	if blockPos < 0 {
		return suffix
	}

	// The split block's tail (from splitIdx) becomes the new function's
	// entry block; its head stays behind as a (now-terminated) tail of f.
	head := splitBlock.instructions[:splitIdx]
	tail := splitBlock.instructions[splitIdx:]

	newEntry := &BasicBlock{function: suffix, address: newAddr}
	for _, inst := range tail {
		newEntry.append(inst)
	}
	suffix.blocks = append(suffix.blocks, newEntry)
	suffix.blocks = append(suffix.blocks, f.blocks[blockPos+1:]...)
	for _, b := range suffix.blocks {
		b.function = suffix
	}

	splitBlock.instructions = head
	f.blocks = f.blocks[:blockPos+1]

	// Re-home the graph edges: splitBlock's old children now belong to the
	// new entry block (the control flow that used to leave splitBlock now
	// leaves newEntry, since the tail moved there).
	newEntry.children = splitBlock.children
	for _, c := range newEntry.children {
		for i, p := range c.parents {
			if p == splitBlock {
				c.parents[i] = newEntry
			}
		}
	}
	splitBlock.children = nil
	splitBlock.AddSuccessor(newEntry)

	f.module.registerFunction(suffix)
	return suffix
}
