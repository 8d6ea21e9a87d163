package abi

import (
	"testing"

	"github.com/binlift/bin2ir/internal/ir"
)

func TestGenericIsStackPointer(t *testing.T) {
	ctx := NewGeneric("SP", 64)
	sp := ir.NewRegister("SP", ir.Ptr)
	other := ir.NewRegister("FP", ir.Ptr)
	c := ir.NewConstU64(8, ir.I64)

	if !ctx.IsStackPointer(sp) {
		t.Fatalf("SP register must be recognized as the stack pointer")
	}
	if ctx.IsStackPointer(other) {
		t.Fatalf("FP register must not be recognized as the stack pointer")
	}
	if ctx.IsStackPointer(c) {
		t.Fatalf("a constant must never be the stack pointer")
	}
	if !ctx.IsRegister(other) || ctx.IsRegister(c) {
		t.Fatalf("IsRegister must distinguish registers from constants")
	}
	if ctx.PointerWidth() != 64 {
		t.Fatalf("want pointer width 64, got %d", ctx.PointerWidth())
	}
}
