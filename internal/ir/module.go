package ir

import "github.com/binlift/bin2ir/internal/addr"

// Module is the arena owner of every Function (and transitively every
// BasicBlock/Instruction) produced by one decode run. Lifetime: spans the
// whole module decode plus any later stack-pass rewrite.
type Module struct {
	functions []*Function
}

// NewModule returns an empty module.
func NewModule() *Module {
	return &Module{}
}

// Functions returns every function the module owns, in creation order.
func (m *Module) Functions() []*Function {
	return m.functions
}

// NewFunction creates and arena-owns a function at the given entry address.
func (m *Module) NewFunction(entry addr.Address, name string) *Function {
	f := &Function{module: m, address: entry, name: name}
	m.functions = append(m.functions, f)
	return f
}

func (m *Module) registerFunction(f *Function) {
	f.module = m
	m.functions = append(m.functions, f)
}
