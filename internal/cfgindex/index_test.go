package cfgindex

import (
	"testing"

	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/ir"
)

func buildSample() (*ir.Module, *Index) {
	m := ir.NewModule()

	f1 := m.NewFunction(addr.Address(0x100), "func_100")
	b1 := f1.NewBlock(addr.Address(0x100))
	bld1 := ir.NewBuilder(b1)
	bld1.Insert(addr.Address(0x100), ir.OpAdd, ir.I64, ir.NewConstU64(1, ir.I64), ir.NewConstU64(1, ir.I64))
	bld1.InsertPlaceholderTerminator(addr.Address(0x108))

	f2 := m.NewFunction(addr.Address(0x200), "func_200")
	b2 := f2.NewBlock(addr.Address(0x200))
	bld2 := ir.NewBuilder(b2)
	bld2.InsertPlaceholderTerminator(addr.Address(0x200))
	b2b := f2.NewBlock(addr.Address(0x210))
	bld2b := ir.NewBuilder(b2b)
	bld2b.Insert(addr.Address(0x210), ir.OpAdd, ir.I64, ir.NewConstU64(1, ir.I64), ir.NewConstU64(1, ir.I64))
	bld2b.InsertPlaceholderTerminator(addr.Address(0x218))

	return m, Build(m)
}

func TestFunctionAtAndBefore(t *testing.T) {
	_, idx := buildSample()

	if f := idx.FunctionAt(addr.Address(0x100)); f == nil || f.Name() != "func_100" {
		t.Fatalf("FunctionAt(0x100) = %v", f)
	}
	if f := idx.FunctionAt(addr.Address(0x101)); f != nil {
		t.Fatalf("FunctionAt(0x101) should miss, got %v", f)
	}
	if f := idx.FunctionBefore(addr.Address(0x180)); f == nil || f.Name() != "func_100" {
		t.Fatalf("FunctionBefore(0x180) = %v", f)
	}
	if f := idx.FunctionBefore(addr.Address(0x50)); f != nil {
		t.Fatalf("FunctionBefore(0x50) should be nil, got %v", f)
	}
}

func TestFunctionContaining(t *testing.T) {
	_, idx := buildSample()

	if f := idx.FunctionContaining(addr.Address(0x100)); f == nil || f.Name() != "func_100" {
		t.Fatalf("FunctionContaining(0x100) = %v", f)
	}
	if f := idx.FunctionContaining(addr.Address(0x150)); f != nil {
		t.Fatalf("0x150 is past func_100's last instruction; want nil, got %v", f)
	}
	if f := idx.FunctionContaining(addr.Address(0x107)); f == nil || f.Name() != "func_100" {
		t.Fatalf("0x107 is strictly before func_100's last instruction address (0x108); want func_100, got %v", f)
	}
	if f := idx.FunctionContaining(addr.Address(0x108)); f != nil {
		t.Fatalf("0x108 is exactly func_100's last instruction address; want nil (strict upper bound), got %v", f)
	}
	if f := idx.FunctionContaining(addr.Address(0x210)); f == nil || f.Name() != "func_200" {
		t.Fatalf("FunctionContaining(0x210) = %v", f)
	}
	if f := idx.FunctionContaining(addr.Address(0x218)); f != nil {
		t.Fatalf("0x218 is exactly func_200's last instruction address; want nil (strict upper bound), got %v", f)
	}
}

func TestBlockContaining(t *testing.T) {
	_, idx := buildSample()

	b, f := idx.BlockContaining(addr.Address(0x210))
	if b == nil || f == nil || f.Name() != "func_200" {
		t.Fatalf("BlockContaining(0x210) = %v, %v", b, f)
	}
	if b := idx.BlockAt(addr.Address(0x210)); b == nil {
		t.Fatalf("BlockAt(0x210) should find the second block of func_200")
	}
	if b, _ := idx.BlockContaining(addr.Address(0x218)); b != nil {
		t.Fatalf("0x218 is exactly the block's last instruction address; want nil (strict upper bound), got %v", b)
	}
}
