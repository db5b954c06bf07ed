package jit

import (
	"amxjit/amx"
	"amxjit/asmx86"
	"amxjit/decode"
	"amxjit/opcode"
)

// lowerArith covers shifts, multiply/divide, bitwise/arithmetic
// two-register ops, the comparison family (spec.md §4.3's "comparisons
// produce a 0/1 boolean in PRI"), increment/decrement, and the
// block-memory opcodes MOVS/CMPS/FILL. ALT already lives in ECX, which
// is why SHL/SHR/SSHR need no register shuffling at all: the shift
// count the x86 shift-by-CL form wants is already sitting where AMX
// convention puts it.
func (tr *Translator) lowerArith(in decode.Instruction) error {
	a := tr.asm
	off := in.Operand(0)

	switch in.Opcode {
	case opcode.SHL:
		a.ShlCL(asmx86.EAX)
	case opcode.SHR:
		a.ShrCL(asmx86.EAX)
	case opcode.SSHR:
		a.SarCL(asmx86.EAX)
	case opcode.SHL_C_PRI:
		a.ShlImm(asmx86.EAX, byte(off))
	case opcode.SHL_C_ALT:
		a.ShlImm(asmx86.ECX, byte(off))
	case opcode.SHR_C_PRI:
		a.ShrImm(asmx86.EAX, byte(off))
	case opcode.SHR_C_ALT:
		a.ShrImm(asmx86.ECX, byte(off))

	case opcode.SMUL:
		a.ImulR(asmx86.ECX)
	case opcode.UMUL:
		a.MulR(asmx86.ECX)

	case opcode.SDIV:
		tr.emitDivideByZeroGuard(asmx86.ECX, in.Address)
		a.Cdq()
		a.IdivR(asmx86.ECX)
		a.MovRR(asmx86.ECX, asmx86.EDX)
	case opcode.UDIV:
		tr.emitDivideByZeroGuard(asmx86.ECX, in.Address)
		a.XorRR(asmx86.EDX, asmx86.EDX)
		a.DivR(asmx86.ECX)
		a.MovRR(asmx86.ECX, asmx86.EDX)
	case opcode.SDIV_ALT:
		a.MovRR(asmx86.EDX, asmx86.EAX)
		a.MovRR(asmx86.EAX, asmx86.ECX)
		a.MovRR(asmx86.ECX, asmx86.EDX)
		tr.emitDivideByZeroGuard(asmx86.ECX, in.Address)
		a.Cdq()
		a.IdivR(asmx86.ECX)
		a.MovRR(asmx86.ECX, asmx86.EDX)
	case opcode.UDIV_ALT:
		a.MovRR(asmx86.EDX, asmx86.EAX)
		a.MovRR(asmx86.EAX, asmx86.ECX)
		a.MovRR(asmx86.ECX, asmx86.EDX)
		tr.emitDivideByZeroGuard(asmx86.ECX, in.Address)
		a.XorRR(asmx86.EDX, asmx86.EDX)
		a.DivR(asmx86.ECX)
		a.MovRR(asmx86.ECX, asmx86.EDX)

	case opcode.ADD:
		a.AddRR(asmx86.EAX, asmx86.ECX)
	case opcode.SUB:
		a.SubRR(asmx86.EAX, asmx86.ECX)
	case opcode.SUB_ALT:
		a.MovRR(asmx86.EDX, asmx86.EAX)
		a.MovRR(asmx86.EAX, asmx86.ECX)
		a.SubRR(asmx86.EAX, asmx86.EDX)
	case opcode.AND:
		a.AndRR(asmx86.EAX, asmx86.ECX)
	case opcode.OR:
		a.OrRR(asmx86.EAX, asmx86.ECX)
	case opcode.XOR:
		a.XorRR(asmx86.EAX, asmx86.ECX)
	case opcode.NOT:
		tr.emitBoolFromZeroTest(asmx86.EAX)
	case opcode.NEG:
		a.NegR(asmx86.EAX)
	case opcode.INVERT:
		a.NotR(asmx86.EAX)
	case opcode.ADD_C:
		a.AddRI(asmx86.EAX, off)
	case opcode.SMUL_C:
		a.MovRI(asmx86.EDX, off)
		a.ImulR(asmx86.EDX)

	case opcode.EQ:
		tr.emitBoolCompareRR(a.JeLabel)
	case opcode.NEQ:
		tr.emitBoolCompareRR(a.JneLabel)
	case opcode.LESS:
		tr.emitBoolCompareRR(a.JbLabel)
	case opcode.LEQ:
		tr.emitBoolCompareRR(a.JbeLabel)
	case opcode.GRTR:
		tr.emitBoolCompareRR(a.JaLabel)
	case opcode.GEQ:
		tr.emitBoolCompareRR(a.JaeLabel)
	case opcode.SLESS:
		tr.emitBoolCompareRR(a.JlLabel)
	case opcode.SLEQ:
		tr.emitBoolCompareRR(a.JleLabel)
	case opcode.SGRTR:
		tr.emitBoolCompareRR(a.JgLabel)
	case opcode.SGEQ:
		tr.emitBoolCompareRR(a.JgeLabel)

	case opcode.EQ_C_PRI:
		a.CmpRI(asmx86.EAX, off)
		tr.emitBoolFromFlags(a.JeLabel)
	case opcode.EQ_C_ALT:
		a.CmpRI(asmx86.ECX, off)
		tr.emitBoolFromFlags(a.JeLabel)

	case opcode.INC_PRI:
		a.IncR(asmx86.EAX)
	case opcode.INC_ALT:
		a.IncR(asmx86.ECX)
	case opcode.INC:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EBX, off))
		a.IncR(asmx86.EDX)
		a.MovMR(asmx86.Indirect(asmx86.EBX, off), asmx86.EDX)
	case opcode.INC_S:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EBP, off))
		a.IncR(asmx86.EDX)
		a.MovMR(asmx86.Indirect(asmx86.EBP, off), asmx86.EDX)
	case opcode.INC_I:
		a.MovRR(asmx86.ESI, asmx86.EAX)
		a.AddRR(asmx86.ESI, asmx86.EBX)
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.ESI, 0))
		a.IncR(asmx86.EDX)
		a.MovMR(asmx86.Indirect(asmx86.ESI, 0), asmx86.EDX)

	case opcode.DEC_PRI:
		a.DecR(asmx86.EAX)
	case opcode.DEC_ALT:
		a.DecR(asmx86.ECX)
	case opcode.DEC:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EBX, off))
		a.DecR(asmx86.EDX)
		a.MovMR(asmx86.Indirect(asmx86.EBX, off), asmx86.EDX)
	case opcode.DEC_S:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EBP, off))
		a.DecR(asmx86.EDX)
		a.MovMR(asmx86.Indirect(asmx86.EBP, off), asmx86.EDX)
	case opcode.DEC_I:
		a.MovRR(asmx86.ESI, asmx86.EAX)
		a.AddRR(asmx86.ESI, asmx86.EBX)
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.ESI, 0))
		a.DecR(asmx86.EDX)
		a.MovMR(asmx86.Indirect(asmx86.ESI, 0), asmx86.EDX)

	case opcode.MOVS:
		tr.emitMovs(off)
	case opcode.CMPS:
		tr.emitCmps(off)
	case opcode.FILL:
		tr.emitFill(off)

	default:
		return loweringError(in.Address, "unhandled arithmetic opcode %s", in.Opcode)
	}
	return nil
}

// emitDivideByZeroGuard halts with AMX_ERR_DIVIDE if divisor is zero,
// ahead of an IdivR/DivR that would otherwise fault the host process.
func (tr *Translator) emitDivideByZeroGuard(divisor asmx86.Register, addr amx.Cell) {
	a := tr.asm
	ok := a.NewLabel()
	a.TestRR(divisor, divisor)
	a.JneLabel(ok)
	a.MovRI(asmx86.EAX, int32(amx.ErrDivide))
	a.JmpLabel(tr.tramp.haltHelper)
	a.Bind(ok)
}

// emitBoolCompareRR encodes "cmp eax, ecx" followed by a boolean fold
// into EAX, using jccTrue (one of the Assembler's JxxLabel methods,
// bound as a method value) to pick which comparison result means true.
func (tr *Translator) emitBoolCompareRR(jccTrue func(*asmx86.Label)) {
	tr.asm.CmpRR(asmx86.EAX, asmx86.ECX)
	tr.emitBoolFromFlags(jccTrue)
}

// emitBoolFromFlags folds the flags already set by a preceding cmp into
// a 0/1 value in EAX, per jccTrue's sense.
func (tr *Translator) emitBoolFromFlags(jccTrue func(*asmx86.Label)) {
	a := tr.asm
	isTrue := a.NewLabel()
	done := a.NewLabel()
	jccTrue(isTrue)
	a.MovRI(asmx86.EAX, 0)
	a.JmpLabel(done)
	a.Bind(isTrue)
	a.MovRI(asmx86.EAX, 1)
	a.Bind(done)
}

// emitBoolFromZeroTest implements NOT's logical (not bitwise) negation:
// r becomes 1 if it was zero, 0 otherwise.
func (tr *Translator) emitBoolFromZeroTest(r asmx86.Register) {
	a := tr.asm
	a.TestRR(r, r)
	isZero := a.NewLabel()
	done := a.NewLabel()
	a.JeLabel(isZero)
	a.MovRI(asmx86.EAX, 0)
	a.JmpLabel(done)
	a.Bind(isZero)
	a.MovRI(asmx86.EAX, 1)
	a.Bind(done)
}

// emitMovs lowers MOVS count: copy count bytes from data+PRI to
// data+ALT, preserving ALT. ECX is needed as the rep counter, so ALT's
// value is parked in EDX for the duration.
func (tr *Translator) emitMovs(count int32) {
	a := tr.asm
	a.MovRR(asmx86.EDX, asmx86.ECX)
	a.MovRR(asmx86.ESI, asmx86.EAX)
	a.AddRR(asmx86.ESI, asmx86.EBX)
	a.MovRR(asmx86.EDI, asmx86.EDX)
	a.AddRR(asmx86.EDI, asmx86.EBX)
	a.Cld()
	if count%4 == 0 {
		a.MovRI(asmx86.ECX, count/4)
		a.RepMovsd()
	} else {
		a.MovRI(asmx86.ECX, count)
		a.RepMovsb()
	}
	a.MovRR(asmx86.ECX, asmx86.EDX)
}

// emitCmps lowers CMPS count: lexicographically compares count bytes at
// data+PRI against data+ALT, leaving -1/0/+1 in PRI and ALT unchanged.
func (tr *Translator) emitCmps(count int32) {
	a := tr.asm
	a.MovRR(asmx86.EDX, asmx86.ECX)
	a.MovRR(asmx86.ESI, asmx86.EAX)
	a.AddRR(asmx86.ESI, asmx86.EBX)
	a.MovRR(asmx86.EDI, asmx86.EDX)
	a.AddRR(asmx86.EDI, asmx86.EBX)
	a.MovRI(asmx86.ECX, count)
	a.Cld()
	a.RepeCmpsb()

	equal := a.NewLabel()
	less := a.NewLabel()
	done := a.NewLabel()
	a.JeLabel(equal)
	a.JbLabel(less)
	a.MovRI(asmx86.EAX, 1)
	a.JmpLabel(done)
	a.Bind(less)
	a.MovRI(asmx86.EAX, -1)
	a.JmpLabel(done)
	a.Bind(equal)
	a.MovRI(asmx86.EAX, 0)
	a.Bind(done)

	a.MovRR(asmx86.ECX, asmx86.EDX)
}

// emitFill lowers FILL count: stores the cell value in PRI into count
// bytes starting at data+ALT, preserving ALT.
func (tr *Translator) emitFill(count int32) {
	a := tr.asm
	a.MovRR(asmx86.EDX, asmx86.ECX)
	a.MovRR(asmx86.EDI, asmx86.ECX)
	a.AddRR(asmx86.EDI, asmx86.EBX)
	a.MovRI(asmx86.ECX, count/4)
	a.Cld()
	a.RepStosd()
	a.MovRR(asmx86.ECX, asmx86.EDX)
}
