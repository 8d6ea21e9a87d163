package ir

import "fmt"

// PatchError reports an attempt to set a pseudo-terminator's target twice
// with two different values — InconsistentPatch, fatal to the
// enclosing decode.
type PatchError struct {
	Field string
	Inst  *Instruction
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("inconsistent patch: %s on pseudo-terminator at %s set twice with different targets", e.Field, e.Inst.Address())
}

func errInconsistentPatch(field string, inst *Instruction) error {
	return &PatchError{Field: field, Inst: inst}
}
