package main

import (
	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/ir"
	"github.com/binlift/bin2ir/internal/translator"
)

// illustrativeTranslator recognizes a handful of x86-shaped control-flow
// opcodes (call rel32, short jmp, short jz/jnz, ret) and treats every other
// byte as a one-byte filler instruction. It exists only to give this tool
// something to draw a CFG with; it is not a disassembler for any real ISA.
type illustrativeTranslator struct{}

func (illustrativeTranslator) TranslateOne(data []byte, a addr.Address, mode translator.ModeToken, b *ir.Builder) (translator.Result, error) {
	if len(data) == 0 {
		return translator.Result{Size: 1, Failed: true}, nil
	}

	switch {
	case data[0] == 0xC3: // ret
		inst := b.Insert(a, ir.OpPseudoReturn, ir.Type{})
		return translator.Result{Inst: inst, PseudoCall: inst, Size: 1}, nil

	case data[0] == 0xE8 && len(data) >= 5: // call rel32
		disp := int32(uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16 | uint32(data[4])<<24)
		target := a.Add(5).Add(uint64(int64(disp)))
		tgt := ir.NewConstU64(uint64(target), ir.Ptr)
		inst := b.Insert(a, ir.OpPseudoCall, ir.Type{}, tgt)
		return translator.Result{Inst: inst, PseudoCall: inst, Size: 5}, nil

	case data[0] == 0xEB && len(data) >= 2: // jmp rel8
		target := a.Add(2).Add(uint64(int64(int8(data[1]))))
		tgt := ir.NewConstU64(uint64(target), ir.Ptr)
		inst := b.Insert(a, ir.OpPseudoBr, ir.Type{}, tgt)
		return translator.Result{Inst: inst, PseudoCall: inst, Size: 2}, nil

	case (data[0] == 0x74 || data[0] == 0x75) && len(data) >= 2: // jz/jnz rel8
		target := a.Add(2).Add(uint64(int64(int8(data[1]))))
		cond := ir.NewConstU64(0, ir.I1)
		tgt := ir.NewConstU64(uint64(target), ir.Ptr)
		inst := b.Insert(a, ir.OpPseudoCondBr, ir.Type{}, cond, tgt)
		return translator.Result{Inst: inst, PseudoCall: inst, Size: 2}, nil

	default:
		inst := b.Insert(a, ir.OpAdd, ir.I64)
		return translator.Result{Inst: inst, Size: 1}, nil
	}
}
