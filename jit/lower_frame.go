package jit

import (
	"amxjit/asmx86"
	"amxjit/decode"
	"amxjit/opcode"
)

// lowerFrameStack covers the stack/frame management group (spec.md
// §4.3): push/pop, STACK/HEAP pointer adjustment, and the PROC/RET/RETN
// pair that bracket a call. Because esp already IS the native AMX stack
// pointer while generated code runs, every PUSH/POP lowers to a single
// real x86 push/pop — no separate AMX-stack emulation is needed.
func (tr *Translator) lowerFrameStack(in decode.Instruction) error {
	a := tr.asm
	off := in.Operand(0)
	heaMem := regField(tr.module, regOffHEA)

	switch in.Opcode {
	case opcode.PUSH_PRI:
		a.PushR(asmx86.EAX)
	case opcode.PUSH_ALT:
		a.PushR(asmx86.ECX)
	case opcode.PUSH_C:
		a.PushI(off)
	case opcode.PUSH:
		a.PushM(asmx86.Indirect(asmx86.EBX, off))
	case opcode.PUSH_S:
		a.PushM(asmx86.Indirect(asmx86.EBP, off))
	case opcode.PUSH_ADR:
		a.Lea(asmx86.EDX, asmx86.Indirect(asmx86.EBP, off))
		a.SubRR(asmx86.EDX, asmx86.EBX)
		a.PushR(asmx86.EDX)

	case opcode.POP_PRI:
		a.PopR(asmx86.EAX)
	case opcode.POP_ALT:
		a.PopR(asmx86.ECX)

	case opcode.STACK:
		// ALT = old STK (data-relative), then STK += value.
		a.MovRR(asmx86.ECX, asmx86.ESP)
		a.SubRR(asmx86.ECX, asmx86.EBX)
		a.AddRI(asmx86.ESP, off)

	case opcode.HEAP:
		// ALT = old HEA, then HEA += value.
		a.MovRM(asmx86.ECX, heaMem)
		a.MovRR(asmx86.EDX, asmx86.ECX)
		a.AddRI(asmx86.EDX, off)
		a.MovMR(heaMem, asmx86.EDX)

	case opcode.PROC:
		a.PushR(asmx86.EBP)
		a.SubMR(asmx86.Indirect(asmx86.ESP, 0), asmx86.EBX)
		a.MovRR(asmx86.EBP, asmx86.ESP)

	case opcode.RET:
		a.PopR(asmx86.EBP)
		a.AddRR(asmx86.EBP, asmx86.EBX)
		a.Ret()

	case opcode.RETN:
		a.PopR(asmx86.EBP)
		a.AddRR(asmx86.EBP, asmx86.EBX)
		a.PopR(asmx86.EDX) // return address
		a.PopR(asmx86.ESI) // paramcount*4 cell pushed by the caller
		a.AddRR(asmx86.ESP, asmx86.ESI)
		a.JmpR(asmx86.EDX)

	default:
		return loweringError(in.Address, "unhandled frame/stack opcode %s", in.Opcode)
	}
	return nil
}
