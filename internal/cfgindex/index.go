// Package cfgindex keeps the address-keyed lookup structures the decoder
// needs (function/block containment queries) separate from the ir package's
// arena ownership: two ordered address->entity maps, built once the arena is
// stable, holding non-owning references — rebuilt whenever the arena changes
// shape (a split, a new block), never mutated in place.
package cfgindex

import (
	"sort"

	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/ir"
)

// Index answers address -> entity containment queries over a Module's
// current set of functions and blocks. It holds no ownership; rebuilding it
// is cheap and always safe after the arena changes.
type Index struct {
	funcAddrs []addr.Address
	funcs     []*ir.Function

	blockAddrs []addr.Address
	blocks     []*ir.BasicBlock
	blockFuncs []*ir.Function
}

// Build scans every function and block currently owned by m and returns a
// fresh Index sorted by address. Blocks with addr.Undefined (synthetic
// helper blocks) are omitted, matching the CFG dump's own exclusion rule.
func Build(m *ir.Module) *Index {
	idx := &Index{}
	for _, f := range m.Functions() {
		if !f.Address().Defined() {
			continue
		}
		idx.funcAddrs = append(idx.funcAddrs, f.Address())
		idx.funcs = append(idx.funcs, f)
		for _, b := range f.Blocks() {
			if !b.Address().Defined() {
				continue
			}
			idx.blockAddrs = append(idx.blockAddrs, b.Address())
			idx.blocks = append(idx.blocks, b)
			idx.blockFuncs = append(idx.blockFuncs, f)
		}
	}
	sort.Sort(idx.functionsByAddr())
	sort.Sort(idx.blocksByAddr())
	return idx
}

type functionsByAddrSlice struct{ idx *Index }

func (idx *Index) functionsByAddr() sort.Interface { return functionsByAddrSlice{idx} }
func (s functionsByAddrSlice) Len() int             { return len(s.idx.funcAddrs) }
func (s functionsByAddrSlice) Less(i, j int) bool {
	return s.idx.funcAddrs[i].Less(s.idx.funcAddrs[j])
}
func (s functionsByAddrSlice) Swap(i, j int) {
	s.idx.funcAddrs[i], s.idx.funcAddrs[j] = s.idx.funcAddrs[j], s.idx.funcAddrs[i]
	s.idx.funcs[i], s.idx.funcs[j] = s.idx.funcs[j], s.idx.funcs[i]
}

type blocksByAddrSlice struct{ idx *Index }

func (idx *Index) blocksByAddr() sort.Interface { return blocksByAddrSlice{idx} }
func (s blocksByAddrSlice) Len() int             { return len(s.idx.blockAddrs) }
func (s blocksByAddrSlice) Less(i, j int) bool {
	return s.idx.blockAddrs[i].Less(s.idx.blockAddrs[j])
}
func (s blocksByAddrSlice) Swap(i, j int) {
	s.idx.blockAddrs[i], s.idx.blockAddrs[j] = s.idx.blockAddrs[j], s.idx.blockAddrs[i]
	s.idx.blocks[i], s.idx.blocks[j] = s.idx.blocks[j], s.idx.blocks[i]
	s.idx.blockFuncs[i], s.idx.blockFuncs[j] = s.idx.blockFuncs[j], s.idx.blockFuncs[i]
}

// FunctionAt returns the function whose entry address is exactly a.
func (idx *Index) FunctionAt(a addr.Address) *ir.Function {
	i := sort.Search(len(idx.funcAddrs), func(i int) bool { return !idx.funcAddrs[i].Less(a) })
	if i < len(idx.funcAddrs) && idx.funcAddrs[i] == a {
		return idx.funcs[i]
	}
	return nil
}

// FunctionBefore returns the function with the greatest entry address <= a,
// or nil if none.
func (idx *Index) FunctionBefore(a addr.Address) *ir.Function {
	i := sort.Search(len(idx.funcAddrs), func(i int) bool { return a.Less(idx.funcAddrs[i]) })
	if i == 0 {
		return nil
	}
	return idx.funcs[i-1]
}

// FunctionContaining returns the function whose address range
// [entry, lastInstructionAddress) contains a, found by locating the nearest
// function at-or-before a and checking its upper bound. The last instruction
// address itself is not contained — it belongs to whatever comes next.
// Returns nil if none contains a (e.g. a lies in a gap of unmapped bytes
// between functions).
func (idx *Index) FunctionContaining(a addr.Address) *ir.Function {
	f := idx.FunctionBefore(a)
	if f == nil {
		return nil
	}
	if a.Less(f.Address()) {
		return nil
	}
	if !a.Less(f.LastInstructionAddress()) {
		return nil
	}
	return f
}

// BlockAt returns the block whose first-instruction address is exactly a.
func (idx *Index) BlockAt(a addr.Address) *ir.BasicBlock {
	i := sort.Search(len(idx.blockAddrs), func(i int) bool { return !idx.blockAddrs[i].Less(a) })
	if i < len(idx.blockAddrs) && idx.blockAddrs[i] == a {
		return idx.blocks[i]
	}
	return nil
}

// BlockBefore returns the block with the greatest start address <= a, or nil.
func (idx *Index) BlockBefore(a addr.Address) *ir.BasicBlock {
	i := sort.Search(len(idx.blockAddrs), func(i int) bool { return a.Less(idx.blockAddrs[i]) })
	if i == 0 {
		return nil
	}
	return idx.blocks[i-1]
}

// BlockContaining returns the block whose instruction range
// [start, lastInstructionAddress) contains a, and the function that owns it.
// The last instruction address itself is not contained.
func (idx *Index) BlockContaining(a addr.Address) (*ir.BasicBlock, *ir.Function) {
	i := sort.Search(len(idx.blockAddrs), func(i int) bool { return a.Less(idx.blockAddrs[i]) })
	if i == 0 {
		return nil, nil
	}
	b := idx.blocks[i-1]
	if end := b.LastInstructionAddress(); end.Defined() && !a.Less(end) {
		return nil, nil
	}
	return b, idx.blockFuncs[i-1]
}

// Functions returns every indexed function, sorted by address.
func (idx *Index) Functions() []*ir.Function {
	return idx.funcs
}
