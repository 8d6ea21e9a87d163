// Package ir is the abstract IR container: module, function, basic block,
// instruction, and builder. It models an arbitrary register+memory machine
// with addressed instructions — every instruction carries the source address
// it was lifted from, so downstream passes can relate IR back to the image.
package ir

import "github.com/holiman/uint256"

// Kind classifies a Value.
type Kind int

const (
	// Variable is the result of some Instruction within the analyzed function.
	Variable Kind = iota
	// Const is a compile-time-constant operand.
	Const
	// Register is a leaf standing for a machine register (e.g. the stack
	// pointer); it has no defining Instruction.
	Register
	// Argument is a function-entry value (e.g. an incoming parameter or the
	// ABI's designated stack-pointer argument) with no defining Instruction.
	Argument
)

// Value is an IR operand or instruction result.
type Value struct {
	kind Kind
	def  *Instruction // non-nil only for Variable
	num  *uint256.Int // non-nil only for Const
	name string       // register/argument name, e.g. "SP"
	typ  Type
}

// Type is a minimal element-type descriptor: a bit width and an aggregate
// flag, sufficient for the stack pass's coercion-at-use-site rule and for
// reconciling debug-info types against access widths.
type Type struct {
	Bits       int
	Aggregate  bool
	Name       string // optional human-readable name, e.g. "i32" or debug type string
}

// I64, I32, I16, I8, I1 are common scalar element types.
var (
	I64 = Type{Bits: 64, Name: "i64"}
	I32 = Type{Bits: 32, Name: "i32"}
	I16 = Type{Bits: 16, Name: "i16"}
	I8  = Type{Bits: 8, Name: "i8"}
	I1  = Type{Bits: 1, Name: "i1"}
	Ptr = Type{Bits: 64, Name: "ptr"}
)

// NewConst builds a constant Value from a native width-agnostic integer. A
// *uint256.Int backing store lets the symbolic-tree simplifier fold 8-bit
// flag registers and 64-bit pointer arithmetic through the same
// constant-folding code path.
func NewConst(n *uint256.Int, t Type) *Value {
	if n == nil {
		n = new(uint256.Int)
	}
	return &Value{kind: Const, num: new(uint256.Int).Set(n), typ: t}
}

// NewConstU64 is a convenience constructor for a 64-bit constant.
func NewConstU64(n uint64, t Type) *Value {
	return NewConst(new(uint256.Int).SetUint64(n), t)
}

// NewRegister builds a leaf Value standing for a named machine register.
func NewRegister(name string, t Type) *Value {
	return &Value{kind: Register, name: name, typ: t}
}

// NewArgument builds a leaf Value standing for a function-entry value.
func NewArgument(name string, t Type) *Value {
	return &Value{kind: Argument, name: name, typ: t}
}

func fromInstruction(def *Instruction) *Value {
	return &Value{kind: Variable, def: def, typ: def.typ}
}

// Kind returns the value's classification.
func (v *Value) Kind() Kind {
	if v == nil {
		return Register
	}
	return v.kind
}

// Def returns the defining Instruction, or nil for a leaf.
func (v *Value) Def() *Instruction {
	if v == nil {
		return nil
	}
	return v.def
}

// ConstInt returns the constant payload and true, or (nil, false) if v is not
// a constant.
func (v *Value) ConstInt() (*uint256.Int, bool) {
	if v == nil || v.kind != Const {
		return nil, false
	}
	return new(uint256.Int).Set(v.num), true
}

// Name returns the register/argument name for a Register/Argument leaf.
func (v *Value) Name() string {
	if v == nil {
		return ""
	}
	return v.name
}

// Type returns the value's element type.
func (v *Value) Type() Type {
	if v == nil {
		return Type{}
	}
	return v.typ
}

// Equal reports pointer identity, the only equality the IR container
// guarantees between two Values.
func (v *Value) Equal(o *Value) bool {
	return v == o
}
