package jit

import (
	"amxjit/asmx86"
	"amxjit/decode"
	"amxjit/opcode"
)

// lowerLoadStore covers every opcode that moves a cell between PRI/ALT,
// the data section, and the stack frame (spec.md §4.3's "Load/Store"
// group). ebx holds data_base for the whole generated-code entry, ebp
// and esp already point at the native addresses of FRM and STK, so a
// stack-relative access is one [ebp+off]/[esp+off] away while a
// data-relative access needs ebx added in.
func (tr *Translator) lowerLoadStore(in decode.Instruction) error {
	a := tr.asm
	off := in.Operand(0)

	switch in.Opcode {
	case opcode.LOAD_PRI:
		a.MovRM(asmx86.EAX, asmx86.Indirect(asmx86.EBX, off))
	case opcode.LOAD_ALT:
		a.MovRM(asmx86.ECX, asmx86.Indirect(asmx86.EBX, off))
	case opcode.LOAD_S_PRI:
		a.MovRM(asmx86.EAX, asmx86.Indirect(asmx86.EBP, off))
	case opcode.LOAD_S_ALT:
		a.MovRM(asmx86.ECX, asmx86.Indirect(asmx86.EBP, off))

	case opcode.LREF_PRI:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EBX, off))
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovRM(asmx86.EAX, asmx86.Indirect(asmx86.EDX, 0))
	case opcode.LREF_ALT:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EBX, off))
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovRM(asmx86.ECX, asmx86.Indirect(asmx86.EDX, 0))
	case opcode.LREF_S_PRI:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EBP, off))
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovRM(asmx86.EAX, asmx86.Indirect(asmx86.EDX, 0))
	case opcode.LREF_S_ALT:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EBP, off))
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovRM(asmx86.ECX, asmx86.Indirect(asmx86.EDX, 0))

	case opcode.LOAD_I:
		a.MovRR(asmx86.EDX, asmx86.EAX)
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovRM(asmx86.EAX, asmx86.Indirect(asmx86.EDX, 0))
	case opcode.LODB_I:
		width := in.Operand(0)
		if width != 1 && width != 2 && width != 4 {
			return loweringError(in.Address, "LODB.I: unsupported width %d", width)
		}
		a.MovRR(asmx86.EDX, asmx86.EAX)
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovRM(asmx86.EAX, asmx86.Indirect(asmx86.EDX, 0))
		switch width {
		case 1:
			a.AndRI(asmx86.EAX, 0xFF)
		case 2:
			a.AndRI(asmx86.EAX, 0xFFFF)
		}

	case opcode.CONST_PRI:
		a.MovRI(asmx86.EAX, off)
	case opcode.CONST_ALT:
		a.MovRI(asmx86.ECX, off)

	case opcode.ADDR_PRI:
		a.Lea(asmx86.EAX, asmx86.Indirect(asmx86.EBP, off))
		a.SubRR(asmx86.EAX, asmx86.EBX)
	case opcode.ADDR_ALT:
		a.Lea(asmx86.ECX, asmx86.Indirect(asmx86.EBP, off))
		a.SubRR(asmx86.ECX, asmx86.EBX)

	case opcode.STOR_PRI:
		a.MovMR(asmx86.Indirect(asmx86.EBX, off), asmx86.EAX)
	case opcode.STOR_ALT:
		a.MovMR(asmx86.Indirect(asmx86.EBX, off), asmx86.ECX)
	case opcode.STOR_S_PRI:
		a.MovMR(asmx86.Indirect(asmx86.EBP, off), asmx86.EAX)
	case opcode.STOR_S_ALT:
		a.MovMR(asmx86.Indirect(asmx86.EBP, off), asmx86.ECX)

	case opcode.SREF_PRI:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EBX, off))
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovMR(asmx86.Indirect(asmx86.EDX, 0), asmx86.EAX)
	case opcode.SREF_ALT:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EBX, off))
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovMR(asmx86.Indirect(asmx86.EDX, 0), asmx86.ECX)
	case opcode.SREF_S_PRI:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EBP, off))
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovMR(asmx86.Indirect(asmx86.EDX, 0), asmx86.EAX)
	case opcode.SREF_S_ALT:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EBP, off))
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovMR(asmx86.Indirect(asmx86.EDX, 0), asmx86.ECX)

	case opcode.STOR_I:
		a.MovRR(asmx86.EDX, asmx86.EAX)
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovMR(asmx86.Indirect(asmx86.EDX, 0), asmx86.ECX)
	case opcode.STRB_I:
		width := in.Operand(0)
		a.MovRR(asmx86.EDX, asmx86.ECX)
		a.AddRR(asmx86.EDX, asmx86.EBX)
		switch width {
		case 1:
			a.MovM8R(asmx86.Indirect(asmx86.EDX, 0), asmx86.EAX)
		case 2:
			a.MovM16R(asmx86.Indirect(asmx86.EDX, 0), asmx86.EAX)
		case 4:
			a.MovMR(asmx86.Indirect(asmx86.EDX, 0), asmx86.EAX)
		default:
			return loweringError(in.Address, "STRB.I: unsupported width %d", width)
		}

	case opcode.LIDX:
		a.MovRR(asmx86.EDX, asmx86.EAX)
		a.ShlImm(asmx86.EDX, 2)
		a.AddRR(asmx86.EDX, asmx86.ECX)
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovRM(asmx86.EAX, asmx86.Indirect(asmx86.EDX, 0))
	case opcode.LIDX_B:
		a.MovRR(asmx86.EDX, asmx86.EAX)
		a.ShlImm(asmx86.EDX, byte(off))
		a.AddRR(asmx86.EDX, asmx86.ECX)
		a.AddRR(asmx86.EDX, asmx86.EBX)
		a.MovRM(asmx86.EAX, asmx86.Indirect(asmx86.EDX, 0))

	case opcode.IDXADDR:
		a.MovRR(asmx86.EDX, asmx86.EAX)
		a.ShlImm(asmx86.EDX, 2)
		a.AddRR(asmx86.EDX, asmx86.ECX)
		a.MovRR(asmx86.EAX, asmx86.EDX)
	case opcode.IDXADDR_B:
		a.MovRR(asmx86.EDX, asmx86.EAX)
		a.ShlImm(asmx86.EDX, byte(off))
		a.AddRR(asmx86.EDX, asmx86.ECX)
		a.MovRR(asmx86.EAX, asmx86.EDX)

	case opcode.ALIGN_PRI, opcode.ALIGN_ALT:
		// no-op: the host runs little-endian, the only endianness
		// ALIGN's partial-cell adjustment matters for.

	case opcode.LCTRL:
		return tr.lowerLctrl(in)
	case opcode.SCTRL:
		return tr.lowerSctrl(in)

	case opcode.MOVE_PRI:
		a.MovRR(asmx86.EAX, asmx86.ECX)
	case opcode.MOVE_ALT:
		a.MovRR(asmx86.ECX, asmx86.EAX)
	case opcode.XCHG:
		a.XorRR(asmx86.EAX, asmx86.ECX)
		a.XorRR(asmx86.ECX, asmx86.EAX)
		a.XorRR(asmx86.EAX, asmx86.ECX)

	case opcode.SWAP_PRI:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.ESP, 0))
		a.MovMR(asmx86.Indirect(asmx86.ESP, 0), asmx86.EAX)
		a.MovRR(asmx86.EAX, asmx86.EDX)
	case opcode.SWAP_ALT:
		a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.ESP, 0))
		a.MovMR(asmx86.Indirect(asmx86.ESP, 0), asmx86.ECX)
		a.MovRR(asmx86.ECX, asmx86.EDX)

	case opcode.ZERO_PRI:
		a.XorRR(asmx86.EAX, asmx86.EAX)
	case opcode.ZERO_ALT:
		a.XorRR(asmx86.ECX, asmx86.ECX)
	case opcode.ZERO:
		a.MovMI(asmx86.Indirect(asmx86.EBX, off), 0)
	case opcode.ZERO_S:
		a.MovMI(asmx86.Indirect(asmx86.EBP, off), 0)

	case opcode.SIGN_PRI:
		// sign-extend the low byte of PRI to a full cell: shift it up
		// into the top byte and back down arithmetically.
		a.ShlImm(asmx86.EAX, 24)
		a.SarImm(asmx86.EAX, 24)
	case opcode.SIGN_ALT:
		a.ShlImm(asmx86.ECX, 24)
		a.SarImm(asmx86.ECX, 24)

	default:
		return loweringError(in.Address, "unhandled load/store opcode %s", in.Opcode)
	}
	return nil
}

// lowerLctrl implements LCTRL i (spec.md's "load control/state register
// into PRI"): i selects a fixed header field, a live register, or the
// address of the instruction following this one.
func (tr *Translator) lowerLctrl(in decode.Instruction) error {
	a := tr.asm
	hdr := tr.module.Header()
	switch in.Operand(0) {
	case 0:
		a.MovRI(asmx86.EAX, hdr.Cod)
	case 1:
		a.MovRI(asmx86.EAX, hdr.Dat)
	case 2:
		a.MovRM(asmx86.EAX, regField(tr.module, regOffHEA))
	case 3:
		a.MovRI(asmx86.EAX, hdr.Stp)
	case 4:
		a.MovRR(asmx86.EAX, asmx86.ESP)
		a.SubRR(asmx86.EAX, asmx86.EBX)
	case 5:
		a.MovRR(asmx86.EAX, asmx86.EBP)
		a.SubRR(asmx86.EAX, asmx86.EBX)
	case 6:
		a.MovRI(asmx86.EAX, in.Address+in.Size())
	default:
		return loweringError(in.Address, "LCTRL: unsupported selector %d", in.Operand(0))
	}
	return nil
}

// lowerSctrl implements SCTRL i, the write-side counterpart of LCTRL.
// Only the mutable selectors (HEA, STK, FRM) and the indirect-jump
// selector (6, "set CIP") are legal; the others name read-only header
// fields.
func (tr *Translator) lowerSctrl(in decode.Instruction) error {
	a := tr.asm
	switch in.Operand(0) {
	case 2:
		a.MovMR(regField(tr.module, regOffHEA), asmx86.EAX)
	case 4:
		a.MovRR(asmx86.EDX, asmx86.EBX)
		a.AddRR(asmx86.EDX, asmx86.EAX)
		a.MovRR(asmx86.ESP, asmx86.EDX)
	case 5:
		a.MovRR(asmx86.EDX, asmx86.EBX)
		a.AddRR(asmx86.EDX, asmx86.EAX)
		a.MovRR(asmx86.EBP, asmx86.EDX)
	case 6:
		a.CallLabel(tr.tramp.jumpHelper)
	default:
		return loweringError(in.Address, "SCTRL: unsupported selector %d", in.Operand(0))
	}
	return nil
}
