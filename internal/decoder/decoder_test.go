package decoder

import (
	"testing"

	"github.com/binlift/bin2ir/internal/abi"
	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/config"
	"github.com/binlift/bin2ir/internal/image"
	"github.com/binlift/bin2ir/internal/ir"
	"github.com/binlift/bin2ir/internal/translator"
)

// multiImage unions several image.Flat regions, for scenarios whose code
// spans disjoint parts of the address space (e.g. a caller at 0x1000 and a
// callee at 0x2000).
type multiImage struct {
	flats []*image.Flat
}

func (m multiImage) RawBytes(a addr.Address) ([]byte, int) {
	for _, f := range m.flats {
		if data, n := f.RawBytes(a); n > 0 {
			return data, n
		}
	}
	return nil, 0
}

func buildFiller(op ir.Op) func(a addr.Address, bld *ir.Builder) translator.Result {
	return func(a addr.Address, bld *ir.Builder) translator.Result {
		inst := bld.Insert(a, op, ir.I64)
		return translator.Result{Inst: inst, Size: 1}
	}
}

func buildReturn(a addr.Address, bld *ir.Builder) translator.Result {
	inst := bld.Insert(a, ir.OpPseudoReturn, ir.Type{})
	return translator.Result{Inst: inst, PseudoCall: inst, Size: 1}
}

func buildCallTo(target uint64, size uint64) func(a addr.Address, bld *ir.Builder) translator.Result {
	return func(a addr.Address, bld *ir.Builder) translator.Result {
		tgt := ir.NewConstU64(target, ir.Ptr)
		inst := bld.Insert(a, ir.OpPseudoCall, ir.Type{}, tgt)
		return translator.Result{Inst: inst, PseudoCall: inst, Size: size}
	}
}

func buildCondBrTo(target uint64, size uint64) func(a addr.Address, bld *ir.Builder) translator.Result {
	return func(a addr.Address, bld *ir.Builder) translator.Result {
		cond := ir.NewConstU64(0, ir.I1)
		tgt := ir.NewConstU64(target, ir.Ptr)
		inst := bld.Insert(a, ir.OpPseudoCondBr, ir.Type{}, cond, tgt)
		return translator.Result{Inst: inst, PseudoCall: inst, Size: size}
	}
}

func testConfig() *config.Config {
	cfg, _ := config.Load("")
	return cfg
}

// Scenario 1: three arithmetic ops followed by a return.
func TestRunLinearBlock(t *testing.T) {
	tbl := translator.NewTable()
	tbl.Add([]byte{0x01}, buildFiller(ir.OpAdd))
	tbl.Add([]byte{0x02}, buildFiller(ir.OpSub))
	tbl.Add([]byte{0x03}, buildFiller(ir.OpMul))
	tbl.Add([]byte{0xFE}, buildReturn)

	img := image.NewFlat(0x1000, []byte{0x01, 0x02, 0x03, 0xFE})
	abiCtx := abi.NewGeneric("SP", 64)
	dec := New(img, tbl, abiCtx, nil, addr.NewSet(addr.NewRange(0x1000, 0x1010)), addr.NewSet(), addr.Address(0x1000), nil)

	changed, err := dec.Run(testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected the module to change")
	}

	fns := dec.Module().Functions()
	if len(fns) != 1 {
		t.Fatalf("want 1 function, got %d", len(fns))
	}
	f := fns[0]
	if f.Address() != addr.Address(0x1000) {
		t.Fatalf("want function at 0x1000, got %s", f.Address())
	}
	if len(f.Blocks()) != 1 {
		t.Fatalf("want 1 block, got %d", len(f.Blocks()))
	}
	b := f.Blocks()[0]
	if len(b.Instructions()) != 4 {
		t.Fatalf("want 4 instructions (3 ops + return), got %d", len(b.Instructions()))
	}
	if b.Terminator().Op() != ir.OpPseudoReturn {
		t.Fatalf("want the block to end in the return, got %s", b.Terminator().Op())
	}
	if dec.Allowed().Contains(addr.Address(0x1000)) || dec.Allowed().Contains(addr.Address(0x1003)) {
		t.Fatalf("want [0x1000, 0x1004) fully consumed from allowed")
	}
}

// Scenario 2: a direct call followed by its fallthrough return,
// with the callee decoded separately.
func TestRunDirectCallAndFallthrough(t *testing.T) {
	tbl := translator.NewTable()
	tbl.Add([]byte{0xCA, 0x00, 0x00, 0x00, 0x00}, buildCallTo(0x2000, 5))
	tbl.Add([]byte{0xFE}, buildReturn)

	img := multiImage{flats: []*image.Flat{
		image.NewFlat(0x1000, []byte{0xCA, 0x00, 0x00, 0x00, 0x00, 0xFE}),
		image.NewFlat(0x2000, []byte{0xFE}),
	}}
	abiCtx := abi.NewGeneric("SP", 64)
	allowed := addr.NewSet(addr.NewRange(0x1000, 0x1010), addr.NewRange(0x2000, 0x2010))
	dec := New(img, tbl, abiCtx, nil, allowed, addr.NewSet(), addr.Address(0x1000), nil)

	if _, err := dec.Run(testConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fns := dec.Module().Functions()
	if len(fns) != 2 {
		t.Fatalf("want 2 functions, got %d", len(fns))
	}
	var callerFn, calleeFn *ir.Function
	for _, f := range fns {
		switch f.Address() {
		case addr.Address(0x1000):
			callerFn = f
		case addr.Address(0x2000):
			calleeFn = f
		}
	}
	if callerFn == nil || calleeFn == nil {
		t.Fatalf("want functions at both 0x1000 and 0x2000")
	}
	if len(callerFn.Blocks()) != 2 {
		t.Fatalf("want 2 blocks in the caller (call block + fallthrough), got %d", len(callerFn.Blocks()))
	}
	second := callerFn.Blocks()[1]
	if second.Address() != addr.Address(0x1005) {
		t.Fatalf("want the fallthrough block at 0x1005, got %s", second.Address())
	}

	callInst := callerFn.Blocks()[0].Terminator()
	if callInst.Op() != ir.OpPseudoCall {
		t.Fatalf("want the caller's first block to end in the call, got %s", callInst.Op())
	}
	if callInst.TargetFunction() != calleeFn {
		t.Fatalf("want the pseudo-call patched to the callee function")
	}
}

// Scenario 3: a forward conditional branch over one block,
// rejoining at another.
func TestRunConditionalBranchForward(t *testing.T) {
	tbl := translator.NewTable()
	tbl.Add([]byte{0x10, 0x00}, func(a addr.Address, bld *ir.Builder) translator.Result {
		res := buildFiller(ir.OpAnd)(a, bld)
		res.Size = 2
		return res
	})
	tbl.Add([]byte{0x20, 0x00, 0x00, 0x00, 0x00, 0x00}, buildCondBrTo(0x1010, 6))
	tbl.Add([]byte{0xFE}, buildReturn)

	data := make([]byte, 0x11)
	data[0], data[1] = 0x10, 0x00
	data[2] = 0x20 // remaining 5 bytes of the condbr window already zero
	data[8] = 0xFE
	data[0x10] = 0xFE

	img := image.NewFlat(0x1000, data)
	abiCtx := abi.NewGeneric("SP", 64)
	allowed := addr.NewSet(addr.NewRange(0x1000, 0x1020))
	dec := New(img, tbl, abiCtx, nil, allowed, addr.NewSet(), addr.Address(0x1000), nil)

	if _, err := dec.Run(testConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fns := dec.Module().Functions()
	if len(fns) != 1 {
		t.Fatalf("want 1 function, got %d", len(fns))
	}
	blocks := fns[0].Blocks()
	if len(blocks) != 3 {
		t.Fatalf("want 3 blocks, got %d", len(blocks))
	}
	wantAddrs := []addr.Address{0x1000, 0x1008, 0x1010}
	for i, want := range wantAddrs {
		if blocks[i].Address() != want {
			t.Fatalf("block %d: want address %s, got %s", i, want, blocks[i].Address())
		}
	}
	condbr := blocks[0].Terminator()
	if condbr.Op() != ir.OpPseudoCondBr {
		t.Fatalf("want the first block to end in the conditional branch, got %s", condbr.Op())
	}
	if condbr.TargetTrue() != blocks[2] {
		t.Fatalf("want the true target to be the 0x1010 block")
	}
	if condbr.TargetFalse() != blocks[1] {
		t.Fatalf("want the false target to be the 0x1008 block")
	}
}

// Scenario 5: a conditional branch targets an address no function precedes
// at all. The target must spawn its own function rather than being folded
// into the branching instruction's own function as a stray low-address
// block.
func TestRunConditionalBranchToUnclaimedFunction(t *testing.T) {
	tbl := translator.NewTable()
	tbl.Add([]byte{0x20, 0x00, 0x00, 0x00, 0x00, 0x00}, buildCondBrTo(0x1800, 6))
	tbl.Add([]byte{0xFE}, buildReturn)

	img := multiImage{flats: []*image.Flat{
		image.NewFlat(0x1800, []byte{0xFE}),
		image.NewFlat(0x2000, []byte{0x20, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFE}),
	}}
	abiCtx := abi.NewGeneric("SP", 64)
	allowed := addr.NewSet(addr.NewRange(0x1800, 0x1810), addr.NewRange(0x2000, 0x2010))
	dec := New(img, tbl, abiCtx, nil, allowed, addr.NewSet(), addr.Address(0x2000), nil)

	if _, err := dec.Run(testConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fns := dec.Module().Functions()
	if len(fns) != 2 {
		t.Fatalf("want 2 functions (entry + spawned target), got %d", len(fns))
	}
	var entryFn, targetFn *ir.Function
	for _, f := range fns {
		switch f.Address() {
		case addr.Address(0x2000):
			entryFn = f
		case addr.Address(0x1800):
			targetFn = f
		}
	}
	if entryFn == nil {
		t.Fatalf("want a function at the entry address 0x2000")
	}
	if targetFn == nil {
		t.Fatalf("want the branch target 0x1800 to spawn its own function, not a block owned by 0x2000")
	}
	if len(targetFn.Blocks()) == 0 || targetFn.Blocks()[0].Address() != addr.Address(0x1800) {
		t.Fatalf("want the spawned function's entry block at 0x1800")
	}

	condbr := entryFn.Blocks()[0].Terminator()
	if condbr.Op() != ir.OpPseudoCondBr {
		t.Fatalf("want the entry function's first block to end in the conditional branch, got %s", condbr.Op())
	}
	if condbr.TargetTrue() != targetFn.Blocks()[0] {
		t.Fatalf("want the true target patched to the spawned function's block")
	}
}

// Scenario 4: a later-discovered call target lands inside an
// already-emitted function, splitting it.
func TestRunMidFunctionCallBackSplitsFunction(t *testing.T) {
	tbl := translator.NewTable()
	tbl.Add([]byte{0x01}, buildFiller(ir.OpAdd))
	tbl.Add([]byte{0xFE}, buildReturn)
	tbl.Add([]byte{0xCB, 0x00, 0x00, 0x00, 0x00}, buildCallTo(0x1003, 5))

	img := multiImage{flats: []*image.Flat{
		image.NewFlat(0x1000, []byte{0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0xFE}),
		image.NewFlat(0x2000, []byte{0xCB, 0x00, 0x00, 0x00, 0x00, 0xFE}),
	}}
	abiCtx := abi.NewGeneric("SP", 64)
	allowed := addr.NewSet(addr.NewRange(0x1000, 0x1010), addr.NewRange(0x2000, 0x2010))
	dec := New(img, tbl, abiCtx, nil, allowed, addr.NewSet(), addr.Address(0x1000), []addr.Address{0x2000})

	if _, err := dec.Run(testConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fns := dec.Module().Functions()
	if len(fns) != 3 {
		t.Fatalf("want 3 functions (original head, split tail, callee), got %d", len(fns))
	}

	var head, tail *ir.Function
	for _, f := range fns {
		switch f.Address() {
		case addr.Address(0x1000):
			head = f
		case addr.Address(0x1003):
			tail = f
		}
	}
	if head == nil || tail == nil {
		t.Fatalf("want functions at both 0x1000 (head) and 0x1003 (split tail)")
	}
	if head.LastInstructionAddress() != addr.Address(0x1002) {
		t.Fatalf("want the head function truncated to end at 0x1002, got %s", head.LastInstructionAddress())
	}
	if len(tail.Blocks()) == 0 || tail.Blocks()[0].Address() != addr.Address(0x1003) {
		t.Fatalf("want the split tail's entry block at 0x1003")
	}

	var callInst *ir.Instruction
	for _, f := range fns {
		for _, b := range f.Blocks() {
			if term := b.Terminator(); term != nil && term.Op() == ir.OpPseudoCall {
				callInst = term
			}
		}
	}
	if callInst == nil {
		t.Fatalf("expected to find the pseudo-call instruction")
	}
	if callInst.TargetFunction() != tail {
		t.Fatalf("want the pseudo-call patched to the split tail function")
	}
}
