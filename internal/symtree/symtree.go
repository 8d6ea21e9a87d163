// Package symtree builds and simplifies the lazy symbolic expression tree the
// stack pass uses to recognize `stack_pointer + constant_offset` address
// forms. Building walks a value's reaching definitions and records unary and
// binary ops as child nodes without folding them; Simplify then constant-folds
// and collapses the resulting tree to find a constant offset or a bare
// stack-pointer leaf, the two
// shapes the stack pass knows how to act on.
package symtree

import (
	"github.com/holiman/uint256"

	"github.com/binlift/bin2ir/internal/abi"
	"github.com/binlift/bin2ir/internal/ir"
	"github.com/binlift/bin2ir/internal/reachdef"
)

// DefaultMaxDepth is the recommended symbolic-tree expansion depth bound.
const DefaultMaxDepth = 32

// Context bundles the read-only collaborators a tree construction/simplify
// pass needs: the reaching-definitions analysis, the ABI context, the
// function being analyzed, and the caller's substitution map.
//
// Subst is keyed by store instruction, not by Value: Phase A
// records "store_instruction -> constant k" so Phase B can see through a
// load whose reaching definition is that store without re-deriving the
// constant. The substitution is consulted exactly where a load's reaching
// store is found.
type Context struct {
	Reach    *reachdef.Analysis
	ABI      abi.Context
	Function *ir.Function
	Subst    map[*ir.Instruction]*ir.Value
	MaxDepth int
}

func (c Context) maxDepth() int {
	if c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}

// Node is one symbolic-tree node.
type Node struct {
	Value       *ir.Value
	Ops         []*Node
	Val2ValUsed bool
	IsSPLeaf    bool
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n == nil || len(n.Ops) == 0
}

// ConstInt returns n's constant payload, if n's value is a constant.
func (n *Node) ConstInt() (*uint256.Int, bool) {
	if n == nil {
		return nil, false
	}
	return n.Value.ConstInt()
}

// ContainsSPLeaf reports whether the tree rooted at n contains the canonical
// stack-pointer leaf anywhere.
func ContainsSPLeaf(n *Node) bool {
	if n == nil {
		return false
	}
	if n.IsSPLeaf {
		return true
	}
	for _, child := range n.Ops {
		if ContainsSPLeaf(child) {
			return true
		}
	}
	return false
}

type builder struct {
	ctx        Context
	seen       map[*ir.Instruction]bool
	substUsed  bool
}

// Build constructs a symbolic tree rooted at root, using ctx's substitution
// map and reaching-definitions analysis. The second return value reports
// whether construction anywhere consulted the substitution map.
func Build(ctx Context, root *ir.Value) (*Node, bool) {
	b := &builder{ctx: ctx, seen: make(map[*ir.Instruction]bool)}
	n := b.construct(root, ctx.maxDepth())
	return n, b.substUsed
}

func (b *builder) construct(v *ir.Value, depth int) *Node {
	node := &Node{Value: v}

	switch v.Kind() {
	case ir.Const, ir.Register, ir.Argument:
		return node
	case ir.Variable:
		inst := v.Def()
		if inst == nil || depth <= 0 {
			return node
		}
		if b.seen[inst] {
			return node // revisit cuts the tree to a leaf
		}
		b.seen[inst] = true

		if inst.Op() == ir.OpLoad {
			store, ok := b.ctx.Reach.ReachingStore(inst)
			if !ok {
				return node
			}
			if repl, ok := b.ctx.Subst[store]; ok {
				b.substUsed = true
				node.Val2ValUsed = true
				node.Value = repl
				return node
			}
			node.Ops = []*Node{b.construct(store.Operand(1), depth-1)}
			return node
		}
		for _, opnd := range inst.Operands() {
			node.Ops = append(node.Ops, b.construct(opnd, depth-1))
		}
		return node
	default:
		return node
	}
}

// Simplify repeatedly applies arithmetic-identity folding, constant folding,
// passthrough collapsing, and known-register substitution until a fixed point is reached.
func Simplify(ctx Context, n *Node) *Node {
	for i := 0; i < len(countNodes(n))+1; i++ {
		next, changed := simplifyOnce(ctx, n)
		n = next
		if !changed {
			break
		}
	}
	return n
}

func countNodes(n *Node) []struct{} {
	if n == nil {
		return nil
	}
	out := []struct{}{{}}
	for _, c := range n.Ops {
		out = append(out, countNodes(c)...)
	}
	return out
}

func simplifyOnce(ctx Context, n *Node) (*Node, bool) {
	if n == nil {
		return nil, false
	}

	changedAny := false
	for i, child := range n.Ops {
		simplified, changed := simplifyOnce(ctx, child)
		if changed {
			n.Ops[i] = simplified
			changedAny = true
		}
	}

	// Known-register substitution: the stack pointer canonicalizes to a
	// distinguished SP leaf; any other register with a single static
	// defining store substitutes that store's value.
	if n.Value != nil && n.Value.Kind() == ir.Register && !n.IsSPLeaf {
		if ctx.ABI != nil && ctx.ABI.IsStackPointer(n.Value) {
			n.IsSPLeaf = true
			return n, true
		}
		if store, ok := ctx.Reach.SingleDef(ctx.Function, n.Value); ok {
			sub, used := Build(ctx, store.Operand(1))
			sub = mustSimplify(ctx, sub)
			if used {
				sub.Val2ValUsed = true
			}
			return sub, true
		}
	}

	if n.IsLeaf() {
		return n, changedAny
	}

	inst := n.Value.Def()
	if inst == nil {
		return n, changedAny
	}

	if folded, ok := identityFold(inst.Op(), n.Ops); ok {
		return folded, true
	}
	if folded, ok := constFold(inst.Op(), n.Ops, inst.Type()); ok {
		return folded, true
	}
	if inst.Op() == ir.OpCast || inst.Op() == ir.OpConvert {
		if len(n.Ops) == 1 && sameWidth(n.Value.Type(), n.Ops[0].Value.Type()) {
			return n.Ops[0], true
		}
	}

	return n, changedAny
}

func mustSimplify(ctx Context, n *Node) *Node {
	return Simplify(ctx, n)
}

func sameWidth(a, b ir.Type) bool {
	return a.Bits == b.Bits
}

func asConst(n *Node) (*uint256.Int, bool) {
	if n == nil {
		return nil, false
	}
	return n.ConstInt()
}

// identityFold implements a handful of algebraic identities:
// x+0=x, x-0=x, x*1=x, x&-1=x (plus the symmetric/derived forms for the
// other bitwise and shift ops).
func identityFold(op ir.Op, ops []*Node) (*Node, bool) {
	if len(ops) != 2 {
		return nil, false
	}
	a, b := ops[0], ops[1]

	if c, ok := asConst(b); ok {
		switch op {
		case ir.OpAdd, ir.OpSub, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpShr, ir.OpSar:
			if c.IsZero() {
				return a, true
			}
		case ir.OpMul:
			if isOne(c) {
				return a, true
			}
		case ir.OpAnd:
			if isAllOnes(c, a.Value.Type()) {
				return a, true
			}
		}
	}
	if c, ok := asConst(a); ok {
		switch op {
		case ir.OpAdd, ir.OpOr, ir.OpXor:
			if c.IsZero() {
				return b, true
			}
		case ir.OpMul:
			if isOne(c) {
				return b, true
			}
		case ir.OpAnd:
			if isAllOnes(c, b.Value.Type()) {
				return b, true
			}
		}
	}
	return nil, false
}

func isOne(c *uint256.Int) bool {
	return c.Eq(uint256.NewInt(1))
}

func isAllOnes(c *uint256.Int, t ir.Type) bool {
	bits := t.Bits
	if bits <= 0 || bits > 256 {
		bits = 64
	}
	mask := new(uint256.Int)
	if bits >= 256 {
		mask.Not(mask) // all ones
	} else {
		one := uint256.NewInt(1)
		shifted := new(uint256.Int).Lsh(one, uint(bits))
		mask.Sub(shifted, uint256.NewInt(1))
	}
	return c.Eq(mask)
}

// constFold folds a node whose children are all constants.
func constFold(op ir.Op, ops []*Node, t ir.Type) (*Node, bool) {
	switch len(ops) {
	case 1:
		a, ok := asConst(ops[0])
		if !ok {
			return nil, false
		}
		out := new(uint256.Int)
		switch op {
		case ir.OpNot:
			out.Not(a)
		default:
			return nil, false
		}
		return &Node{Value: ir.NewConst(out, t)}, true
	case 2:
		a, okA := asConst(ops[0])
		b, okB := asConst(ops[1])
		if !okA || !okB {
			return nil, false
		}
		out := new(uint256.Int)
		switch op {
		case ir.OpAdd:
			out.Add(a, b)
		case ir.OpSub:
			out.Sub(a, b)
		case ir.OpMul:
			out.Mul(a, b)
		case ir.OpAnd:
			out.And(a, b)
		case ir.OpOr:
			out.Or(a, b)
		case ir.OpXor:
			out.Xor(a, b)
		case ir.OpShl:
			out.Lsh(a, uint(b.Uint64()))
		case ir.OpShr:
			out.Rsh(a, uint(b.Uint64()))
		case ir.OpSar:
			out.SRsh(a, uint(b.Uint64()))
		default:
			return nil, false
		}
		return &Node{Value: ir.NewConst(out, t)}, true
	default:
		return nil, false
	}
}
