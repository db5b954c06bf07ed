package jit

import (
	"amxjit/amx"
	"amxjit/asmx86"
	"amxjit/decode"
	"amxjit/opcode"
)

// lowerControlFlow covers direct and indirect jumps/calls, the
// conditional-branch family, HALT, and BOUNDS (spec.md §4.3's "Control
// Flow" group). Every direct branch target resolves to a labelTable
// entry; indirect transfers route through a trampoline (trampolines.go)
// chosen by whether the transfer behaves like a goto (JUMP.PRI, and
// SCTRL(6) in lower_loadstore.go: jump_helper) or a call (CALL.PRI:
// callHelper) on a miss.
func (tr *Translator) lowerControlFlow(in decode.Instruction) error {
	a := tr.asm
	target := in.Operand(0)

	switch in.Opcode {
	case opcode.JUMP:
		a.JmpLabel(tr.labels.labelFor(target))
	case opcode.JUMP_PRI:
		a.CallLabel(tr.tramp.jumpHelper)

	case opcode.JZER:
		a.TestRR(asmx86.EAX, asmx86.EAX)
		a.JeLabel(tr.labels.labelFor(target))
	case opcode.JNZ:
		a.TestRR(asmx86.EAX, asmx86.EAX)
		a.JneLabel(tr.labels.labelFor(target))

	case opcode.JEQ:
		a.CmpRR(asmx86.EAX, asmx86.ECX)
		a.JeLabel(tr.labels.labelFor(target))
	case opcode.JNEQ:
		a.CmpRR(asmx86.EAX, asmx86.ECX)
		a.JneLabel(tr.labels.labelFor(target))
	case opcode.JLESS:
		a.CmpRR(asmx86.EAX, asmx86.ECX)
		a.JbLabel(tr.labels.labelFor(target))
	case opcode.JLEQ:
		a.CmpRR(asmx86.EAX, asmx86.ECX)
		a.JbeLabel(tr.labels.labelFor(target))
	case opcode.JGRTR:
		a.CmpRR(asmx86.EAX, asmx86.ECX)
		a.JaLabel(tr.labels.labelFor(target))
	case opcode.JGEQ:
		a.CmpRR(asmx86.EAX, asmx86.ECX)
		a.JaeLabel(tr.labels.labelFor(target))
	case opcode.JSLESS:
		a.CmpRR(asmx86.EAX, asmx86.ECX)
		a.JlLabel(tr.labels.labelFor(target))
	case opcode.JSLEQ:
		a.CmpRR(asmx86.EAX, asmx86.ECX)
		a.JleLabel(tr.labels.labelFor(target))
	case opcode.JSGRTR:
		a.CmpRR(asmx86.EAX, asmx86.ECX)
		a.JgLabel(tr.labels.labelFor(target))
	case opcode.JSGEQ:
		a.CmpRR(asmx86.EAX, asmx86.ECX)
		a.JgeLabel(tr.labels.labelFor(target))

	case opcode.CALL:
		a.CallLabel(tr.labels.labelFor(target))
	case opcode.CALL_PRI:
		a.CallLabel(tr.tramp.callHelper)

	case opcode.HALT:
		a.MovRI(asmx86.EAX, target)
		a.JmpLabel(tr.tramp.haltHelper)

	case opcode.BOUNDS:
		fail := a.NewLabel()
		ok := a.NewLabel()
		a.CmpRI(asmx86.EAX, 0)
		a.JlLabel(fail)
		a.CmpRI(asmx86.EAX, target)
		a.JgLabel(fail)
		a.JmpLabel(ok)
		a.Bind(fail)
		a.MovRI(asmx86.EAX, int32(amx.ErrBounds))
		a.JmpLabel(tr.tramp.haltHelper)
		a.Bind(ok)

	default:
		return loweringError(in.Address, "unhandled control-flow opcode %s", in.Opcode)
	}
	return nil
}
