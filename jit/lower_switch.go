package jit

import (
	"amxjit/asmx86"
	"amxjit/decode"
	"amxjit/opcode"
)

// lowerSwitch lowers SWITCH, a dispatch on PRI against the (value,
// address) pairs of the CASETBL instruction immediately named by its
// operand (spec.md §4.3 "SWITCH/CASETBL"). CASETBL itself is pure data
// — it occupies a slot in the decoded instruction stream only because
// the decoder walks the code section linearly — so encountering it
// directly in the main lowering loop emits nothing; all of its bytes
// are consumed when the preceding SWITCH is lowered.
func (tr *Translator) lowerSwitch(in decode.Instruction) error {
	if in.Opcode == opcode.CASETBL {
		return nil
	}

	tblInstr, ok := tr.instrForAddr(in.Operand(0))
	if !ok || tblInstr.Opcode != opcode.CASETBL {
		return loweringError(in.Address, "SWITCH: no CASETBL at %#06x", in.Operand(0))
	}
	ct := decode.NewCaseTable(tblInstr)

	a := tr.asm
	defaultLabel := tr.labels.labelFor(ct.DefaultAddress())

	if ct.NumCases() == 0 {
		a.JmpLabel(defaultLabel)
		return nil
	}

	for i := 0; i < ct.NumCases(); i++ {
		a.CmpRI(asmx86.EAX, ct.Value(i))
		a.JeLabel(tr.labels.labelFor(ct.Address(i)))
	}
	a.JmpLabel(defaultLabel)
	return nil
}
