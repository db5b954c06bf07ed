package jit

import (
	"amxjit/asmx86"
	"amxjit/decode"
	"amxjit/opcode"
)

// lowerSysreq covers native-function call sites (spec.md §4.3/§6).
// SYSREQ.C's native index is known at compile time, so its lowering
// gets first pick at the intrinsics table (intrinsics.go) before
// falling back to a real call through sysreq_c_helper or, when
// jit_sysreq_d is enabled and the native's address is already resolved,
// sysreq_d_helper.
func (tr *Translator) lowerSysreq(in decode.Instruction) error {
	a := tr.asm

	// jit_sleep (SPEC_FULL.md §4.5 "(added)"): a native is the only way
	// this opcode set can raise AMX_ERR_SLEEP (there is no dedicated
	// SLEEP instruction here), so the resume address — the AMX address
	// of the instruction right after this call — is a compile-time
	// constant. Stashing it into amx.cip before every native call, only
	// when the flag is set, costs nothing when sleep support is off and
	// gives Program.Resume an instruction-boundary address that is
	// guaranteed to be in the address map.
	if tr.opts.Sleep {
		a.MovMI(tr.cipMem(), in.Address+in.Size())
	}

	switch in.Opcode {
	case opcode.SYSREQ_PRI:
		// index already sits in EAX (PRI), exactly where
		// sysreq_c_helper expects it.
		a.CallLabel(tr.tramp.sysreqC)

	case opcode.SYSREQ_C:
		idx := in.Operand(0)
		name := tr.module.NativeName(int(idx))
		if emit, ok := intrinsicFor(name); ok {
			emit(tr)
			return nil
		}
		if tr.opts.SysreqD {
			if addr := tr.module.NativeAddress(int(idx)); addr != 0 {
				a.MovRI(asmx86.EAX, addr)
				a.CallLabel(tr.tramp.sysreqD)
				return nil
			}
		}
		a.MovRI(asmx86.EAX, idx)
		a.CallLabel(tr.tramp.sysreqC)

	case opcode.SYSREQ_D:
		a.MovRI(asmx86.EAX, in.Operand(0))
		a.CallLabel(tr.tramp.sysreqD)

	default:
		return loweringError(in.Address, "unhandled sysreq opcode %s", in.Opcode)
	}
	return nil
}
