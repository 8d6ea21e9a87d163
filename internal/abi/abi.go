// Package abi exposes the calling-convention facts the decoder and stack
// pass need without hard-coding any one architecture: which leaf Value is
// the stack pointer, which Register names are caller/callee-owned, and the
// element width of a bare pointer. This is an explicit, caller-supplied
// Context rather than a global architecture-keyed table, threaded through
// every call site that needs it.
package abi

import "github.com/binlift/bin2ir/internal/ir"

// Context answers the small set of architecture questions the stack pass and
// decoder ask. It is constructed once per decode run and passed explicitly;
// nothing in this package is package-level mutable state.
type Context interface {
	// IsStackPointer reports whether v is the leaf Value standing for this
	// architecture's stack pointer register.
	IsStackPointer(v *ir.Value) bool

	// IsRegister reports whether v is any machine-register leaf (as opposed
	// to a Variable produced by an instruction, or a Const).
	IsRegister(v *ir.Value) bool

	// PointerWidth returns the bit width of a bare pointer/address value.
	PointerWidth() int

	// PointerType returns the element Type used for address arithmetic.
	PointerType() ir.Type
}

// Generic is a minimal Context driven by a configured stack-pointer register
// name; sufficient for any architecture whose decoder translates the stack
// pointer to a single consistently-named ir.Register leaf, covering both
// register-window and flat-stack ISAs alike.
type Generic struct {
	spName string
	width  int
	ptrT   ir.Type
}

// NewGeneric builds a Context for an architecture whose stack pointer leaf is
// named spName and whose addresses are width bits wide.
func NewGeneric(spName string, width int) *Generic {
	t := ir.Type{Bits: width, Name: "ptr"}
	return &Generic{spName: spName, width: width, ptrT: t}
}

func (g *Generic) IsStackPointer(v *ir.Value) bool {
	return v != nil && v.Kind() == ir.Register && v.Name() == g.spName
}

func (g *Generic) IsRegister(v *ir.Value) bool {
	return v != nil && v.Kind() == ir.Register
}

func (g *Generic) PointerWidth() int { return g.width }

func (g *Generic) PointerType() ir.Type { return g.ptrT }
