package cfgdump

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/ir"
)

func buildLinearModule() *ir.Module {
	m := ir.NewModule()
	fn := m.NewFunction(addr.Address(0x1000), "func_1000")
	b := fn.NewBlock(addr.Address(0x1000))
	bld := ir.NewBuilder(b)
	bld.Insert(addr.Address(0x1000), ir.OpAdd, ir.I64)
	bld.Insert(addr.Address(0x1001), ir.OpPseudoReturn, ir.Type{})
	return m
}

func TestDumpJSONSchema(t *testing.T) {
	m := buildLinearModule()
	data, err := DumpJSON(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []FunctionEntry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("dump did not round-trip as JSON: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 function entry, got %d", len(got))
	}
	if got[0].Address != "0x1000" {
		t.Fatalf("want address 0x1000, got %q", got[0].Address)
	}
	if len(got[0].BBs) != 1 || got[0].BBs[0].Address != "0x1000" {
		t.Fatalf("want one block at 0x1000, got %+v", got[0].BBs)
	}
	if got[0].BBs[0].Succs == nil {
		t.Fatalf("want succs to be an empty array, not null")
	}
}

func TestDumpJSONIsPure(t *testing.T) {
	m := buildLinearModule()
	first, err := DumpJSON(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := DumpJSON(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("DumpJSON is not pure: %s != %s", first, second)
	}
}

// TestDumpJSONElidesSyntheticBlocks covers a successor with no
// recorded address is elided, and its own addressed descendant surfaces in
// its place.
func TestDumpJSONElidesSyntheticBlocks(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction(addr.Address(0x1000), "func_1000")
	head := fn.NewBlock(addr.Address(0x1000))
	synthetic := fn.NewBlock(addr.Undefined)
	tail := fn.NewBlock(addr.Address(0x1010))
	head.AddSuccessor(synthetic)
	synthetic.AddSuccessor(tail)

	data, err := DumpJSON(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []FunctionEntry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("dump did not round-trip: %v", err)
	}
	headEntry := got[0].BBs[0]
	if len(headEntry.Succs) != 1 || headEntry.Succs[0] != "0x1010" {
		t.Fatalf("want the synthetic hop elided down to 0x1010, got %v", headEntry.Succs)
	}
}

func TestDumpDOTContainsBlockAndEdge(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction(addr.Address(0x1000), "func_1000")
	a := fn.NewBlock(addr.Address(0x1000))
	b := fn.NewBlock(addr.Address(0x1008))
	a.AddSuccessor(b)

	dot := DumpDOT(m)
	if !strings.HasPrefix(dot, "digraph CFG {") {
		t.Fatalf("want a digraph header, got %q", dot[:20])
	}
	if !strings.Contains(dot, "0x1000") || !strings.Contains(dot, "0x1008") {
		t.Fatalf("want both block addresses in the DOT output")
	}
	if !strings.Contains(dot, "->") {
		t.Fatalf("want at least one edge in the DOT output")
	}
}
