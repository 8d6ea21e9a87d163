// Package cfgdump renders a decoded module as the JSON CFG schema or as
// Graphviz DOT for interactive inspection. Both are pure functions of the
// module: called twice on an unmodified module, they produce byte-identical
// output. The DOT rendering labels each block with its addressed
// register+memory instructions and draws one edge per successor.
package cfgdump

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/ir"
)

// FunctionEntry is one element of the JSON CFG dump.
type FunctionEntry struct {
	Address    string       `json:"address"`
	AddressEnd string       `json:"address_end"`
	BBs        []BlockEntry `json:"bbs"`
	CodeRefs   []string     `json:"code_refs"`
}

// BlockEntry is one basic block within a FunctionEntry.
type BlockEntry struct {
	Address    string   `json:"address"`
	AddressEnd string   `json:"address_end"`
	Succs      []string `json:"succs"`
}

// DumpJSON renders m using lower-case 0x-prefixed hex addresses, with
// synthetic address-less blocks elided from bbs and, when one is a
// successor, replaced by the nearest addressed predecessor.
func DumpJSON(m *ir.Module) ([]byte, error) {
	entries := buildEntries(m)
	return json.Marshal(entries)
}

func buildEntries(m *ir.Module) []FunctionEntry {
	entries := make([]FunctionEntry, 0, len(m.Functions()))
	for _, f := range m.Functions() {
		if !f.Address().Defined() {
			continue
		}
		entries = append(entries, FunctionEntry{
			Address:    hexAddr(f.Address()),
			AddressEnd: hexAddr(f.LastInstructionAddress()),
			BBs:        buildBlocks(f),
			CodeRefs:   []string{},
		})
	}
	return entries
}

func buildBlocks(f *ir.Function) []BlockEntry {
	bbs := make([]BlockEntry, 0, len(f.Blocks()))
	for _, b := range f.Blocks() {
		if !b.Address().Defined() {
			continue
		}
		bbs = append(bbs, BlockEntry{
			Address:    hexAddr(b.Address()),
			AddressEnd: hexAddr(b.LastInstructionAddress()),
			Succs:      addressedSuccessors(b),
		})
	}
	return bbs
}

// addressedSuccessors walks past any address-less synthetic child (a
// macro-instruction's internal helper block) to the nearest addressed
// block reachable through it, returning each as a hex address string.
func addressedSuccessors(b *ir.BasicBlock) []string {
	var out []string
	seen := make(map[*ir.BasicBlock]bool)
	var walk func(c *ir.BasicBlock)
	walk = func(c *ir.BasicBlock) {
		if c == nil || seen[c] {
			return
		}
		seen[c] = true
		if c.Address().Defined() {
			out = append(out, hexAddr(c.Address()))
			return
		}
		for _, gc := range c.Children() {
			walk(gc)
		}
	}
	for _, c := range b.Children() {
		walk(c)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func hexAddr(a addr.Address) string {
	if !a.Defined() {
		return ""
	}
	return fmt.Sprintf("0x%x", uint64(a))
}

// DumpDOT renders m as a Graphviz digraph, one node per addressed block
// labeled with its address range and instruction list, edges for every
// block-to-block successor (including through synthetic blocks, walked the
// same way DumpJSON does). Node identifiers are function/block address pairs
// so the graph stays readable across an entire module, not just one
// function at a time.
func DumpDOT(m *ir.Module) string {
	var sb strings.Builder
	sb.WriteString("digraph CFG {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, fontname=\"Courier\"];\n")

	for _, f := range m.Functions() {
		if !f.Address().Defined() {
			continue
		}
		for _, b := range f.Blocks() {
			if !b.Address().Defined() {
				continue
			}
			id := dotID(b)
			label := fmt.Sprintf("%s\\n%s..%s", f.Name(), hexAddr(b.Address()), hexAddr(b.LastInstructionAddress()))
			const maxInstrShown = 20
			count := 0
			for _, inst := range b.Instructions() {
				if count >= maxInstrShown {
					label += "\\n..."
					break
				}
				opStr := fmt.Sprintf("%s @ %s", inst.Op(), hexAddr(inst.Address()))
				opStr = strings.ReplaceAll(opStr, "\"", "\\\"")
				label += fmt.Sprintf("\\n%s", opStr)
				count++
			}
			sb.WriteString(fmt.Sprintf("  %s [label=\"%s\"];\n", id, label))
			for _, succ := range addressedSuccessorBlocks(b) {
				sb.WriteString(fmt.Sprintf("  %s -> %s;\n", id, dotID(succ)))
			}
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func addressedSuccessorBlocks(b *ir.BasicBlock) []*ir.BasicBlock {
	var out []*ir.BasicBlock
	seen := make(map[*ir.BasicBlock]bool)
	var walk func(c *ir.BasicBlock)
	walk = func(c *ir.BasicBlock) {
		if c == nil || seen[c] {
			return
		}
		seen[c] = true
		if c.Address().Defined() {
			out = append(out, c)
			return
		}
		for _, gc := range c.Children() {
			walk(gc)
		}
	}
	for _, c := range b.Children() {
		walk(c)
	}
	return out
}

func dotID(b *ir.BasicBlock) string {
	return fmt.Sprintf("blk_%x_%x", uint64(b.Function().Address()), uint64(b.Address()))
}
