// Package debuginfo defines the debug-info contract the stack pass consults
// to reconcile a reconstructed slot's type against what source-level debug
// info says it should be, plus an in-memory fake used by tests and tools
// (no DWARF/PDB reader is in scope here).
package debuginfo

import (
	"sort"

	"github.com/binlift/bin2ir/internal/addr"
)

// DebugLocal describes one source-level local variable bound to a stack
// slot.
type DebugLocal struct {
	Name         string
	StackOffset  int64
	IsStack      bool
	LLVMTypeName string
}

// DebugFunction is the debug info known about one function.
type DebugFunction struct {
	Locals []DebugLocal
}

// Provider answers "what does debug info say about the function at a".
type Provider interface {
	FunctionAt(a addr.Address) (DebugFunction, bool)
}

// AddressLister is an optional capability a Provider may implement to
// enumerate every function address it knows about. Initialization seeds
// the decoder's worklist from debug-info function addresses, which needs
// enumeration; the core point-lookup contract in Provider does not, so
// this stays a separate, optional interface rather than widening Provider
// for every implementation.
type AddressLister interface {
	FunctionAddresses() []addr.Address
}

// Fake is a Provider backed by an explicit address->DebugFunction map.
type Fake struct {
	byAddr map[addr.Address]DebugFunction
}

// NewFake returns an empty fake provider.
func NewFake() *Fake {
	return &Fake{byAddr: make(map[addr.Address]DebugFunction)}
}

// Set registers the debug info for the function at a.
func (f *Fake) Set(a addr.Address, fn DebugFunction) {
	f.byAddr[a] = fn
}

func (f *Fake) FunctionAt(a addr.Address) (DebugFunction, bool) {
	fn, ok := f.byAddr[a]
	return fn, ok
}

// FunctionAddresses returns every address registered via Set, sorted
// ascending, implementing AddressLister.
func (f *Fake) FunctionAddresses() []addr.Address {
	out := make([]addr.Address, 0, len(f.byAddr))
	for a := range f.byAddr {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
