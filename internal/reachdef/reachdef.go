// Package reachdef implements the reaching-definitions contract the
// symbolic tree and stack pass consult: for a given
// (instruction, value) pair, the unique definition that reaches it, if one
// exists. The chosen algorithm is the simplest one that satisfies the
// contract: a destination is reaching-unique when the function contains
// exactly one static store site to it, independent of control-flow path.
// This is the same simplification the stack pass itself relies on in
// practice.
package reachdef

import (
	"fmt"

	"github.com/binlift/bin2ir/internal/ir"
)

// Analysis answers reaching-definition queries over one decoded module. Built
// once and queried read-only for the lifetime of a single decode.
type Analysis struct {
	byFunction map[*ir.Function]*funcDefs
}

type funcDefs struct {
	byKey map[string][]*ir.Instruction
}

// Build scans every store instruction in m and indexes it by the identity of
// its destination pointer.
func Build(m *ir.Module) *Analysis {
	a := &Analysis{byFunction: make(map[*ir.Function]*funcDefs)}
	for _, f := range m.Functions() {
		fd := &funcDefs{byKey: make(map[string][]*ir.Instruction)}
		for _, b := range f.Blocks() {
			for _, inst := range b.Instructions() {
				if inst.Op() != ir.OpStore {
					continue
				}
				k, ok := key(inst.Operand(0))
				if !ok {
					continue
				}
				fd.byKey[k] = append(fd.byKey[k], inst)
			}
		}
		a.byFunction[f] = fd
	}
	return a
}

// key returns a stable identity string for a pointer/register destination: a
// Variable is identified by its defining instruction's address in memory (two
// Value handles produced from the same Instruction.Result() share it);
// Register and Argument leaves are identified by name, since the translator
// constructs a fresh *ir.Value for the same named register at every
// reference. A computed (Const) destination has no stable identity and is
// excluded from matching.
func key(v *ir.Value) (string, bool) {
	if v == nil {
		return "", false
	}
	switch v.Kind() {
	case ir.Variable:
		return fmt.Sprintf("var:%p", v.Def()), true
	case ir.Register:
		return "reg:" + v.Name(), true
	case ir.Argument:
		return "arg:" + v.Name(), true
	default:
		return "", false
	}
}

// ReachingStore returns the unique store instruction whose destination
// pointer matches load's pointer operand, or (nil, false) if none or more
// than one static store site targets it.
func (a *Analysis) ReachingStore(load *ir.Instruction) (*ir.Instruction, bool) {
	if load == nil || load.Op() != ir.OpLoad || load.Block() == nil {
		return nil, false
	}
	fd := a.byFunction[load.Block().Function()]
	if fd == nil {
		return nil, false
	}
	k, ok := key(load.Operand(0))
	if !ok {
		return nil, false
	}
	stores := fd.byKey[k]
	if len(stores) == 1 {
		return stores[0], true
	}
	return nil, false
}

// SingleDef returns fn's sole defining store of reg (typically a Register
// leaf, e.g. a callee-saved register used as a local), if there is exactly
// one such store in the function.
func (a *Analysis) SingleDef(fn *ir.Function, reg *ir.Value) (*ir.Instruction, bool) {
	fd := a.byFunction[fn]
	if fd == nil {
		return nil, false
	}
	k, ok := key(reg)
	if !ok {
		return nil, false
	}
	stores := fd.byKey[k]
	if len(stores) == 1 {
		return stores[0], true
	}
	return nil, false
}
