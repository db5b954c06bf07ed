package jit

import (
	"amxjit/amx"
	"amxjit/asmx86"
)

// emitTrampolines emits exec_helper, halt_helper, jump_helper,
// call_helper, sysreq_c_helper, and sysreq_d_helper (spec.md §4.5), in that order,
// right after the Runtime Block and address-map region. Every per-opcode
// lowering that needs to leave generated code references these labels.
func (tr *Translator) emitTrampolines() {
	tr.tramp.execHelper = tr.asm.NewLabel()
	tr.tramp.haltHelper = tr.asm.NewLabel()
	tr.tramp.jumpHelper = tr.asm.NewLabel()
	tr.tramp.callHelper = tr.asm.NewLabel()
	tr.tramp.sysreqC = tr.asm.NewLabel()
	tr.tramp.sysreqD = tr.asm.NewLabel()

	tr.emitExecHelper()
	tr.emitHaltHelper()
	tr.emitJumpHelper()
	tr.emitCallHelper()
	tr.emitSysreqHelper(tr.tramp.sysreqC, false)
	tr.emitSysreqHelper(tr.tramp.sysreqD, true)
}

func (tr *Translator) dataBaseMem() asmx86.Mem { return ribField(tr.base, ribDataBase) }
func (tr *Translator) ebpSaveMem() asmx86.Mem  { return ribField(tr.base, ribEbpSave) }
func (tr *Translator) espSaveMem() asmx86.Mem  { return ribField(tr.base, ribEspSave) }
func (tr *Translator) amxEbpMem() asmx86.Mem   { return ribField(tr.base, ribAmxEbp) }
func (tr *Translator) amxEspMem() asmx86.Mem   { return ribField(tr.base, ribAmxEsp) }
func (tr *Translator) resetEbpMem() asmx86.Mem { return ribField(tr.base, ribResetEbp) }
func (tr *Translator) resetEspMem() asmx86.Mem { return ribField(tr.base, ribResetEsp) }

func (tr *Translator) frmMem() asmx86.Mem   { return regField(tr.module, regOffFRM) }
func (tr *Translator) stkMem() asmx86.Mem   { return regField(tr.module, regOffSTK) }
func (tr *Translator) errMem() asmx86.Mem   { return regField(tr.module, regOffError) }
func (tr *Translator) priMem() asmx86.Mem   { return regField(tr.module, regOffPRI) }
func (tr *Translator) cipMem() asmx86.Mem   { return regField(tr.module, regOffCIP) }

// emitExecHelper: the stack-swap half of spec.md §4.5's `exec` sequence.
// Called from the host (Program.Exec) with the target machine address in
// EAX — a simplification of cdecl argument passing documented in
// unsafe.go; the body itself is ordinary generated x86.
func (tr *Translator) emitExecHelper() {
	a := tr.asm
	a.Bind(tr.tramp.execHelper)

	a.PushR(asmx86.ESI)
	a.PushR(asmx86.EDI)
	a.PushR(asmx86.EBX)

	a.MovMR(tr.ebpSaveMem(), asmx86.EBP)
	a.MovMR(tr.espSaveMem(), asmx86.ESP)

	a.MovRM(asmx86.EDX, tr.dataBaseMem())
	a.AddRM(asmx86.EDX, tr.frmMem())
	a.MovRR(asmx86.EBP, asmx86.EDX)

	a.MovRM(asmx86.EDX, tr.dataBaseMem())
	a.AddRM(asmx86.EDX, tr.stkMem())
	a.MovRR(asmx86.ESP, asmx86.EDX)

	// rollback pair, captured before `call target` pushes a return
	// address onto what is now the AMX stack.
	a.MovMR(tr.resetEbpMem(), asmx86.EBP)
	a.Lea(asmx86.EDX, asmx86.Indirect(asmx86.ESP, -4))
	a.MovMR(tr.resetEspMem(), asmx86.EDX)

	a.MovRM(asmx86.EBX, tr.dataBaseMem())

	a.CallR(asmx86.EAX)

	// normal-return path: sync amx.pri/amx.frm/amx.stk back from
	// eax/ebp/esp.
	a.MovMR(tr.priMem(), asmx86.EAX)
	a.MovRR(asmx86.EDX, asmx86.EBP)
	a.SubRM(asmx86.EDX, tr.dataBaseMem())
	a.MovMR(tr.frmMem(), asmx86.EDX)
	a.MovRR(asmx86.EDX, asmx86.ESP)
	a.SubRM(asmx86.EDX, tr.dataBaseMem())
	a.MovMR(tr.stkMem(), asmx86.EDX)

	a.MovRM(asmx86.EBP, tr.ebpSaveMem())
	a.MovRM(asmx86.ESP, tr.espSaveMem())
	a.PopR(asmx86.EBX)
	a.PopR(asmx86.EDI)
	a.PopR(asmx86.ESI)
	a.Ret()
}

// emitHaltHelper: writes amx.error, loads the rollback pair recorded by
// exec_helper, then mimics RETN's own cleanup (pop the return address,
// pop the synthetic paramcount cell exec() pushed, and add it to esp)
// before jumping to the instruction right after exec_helper's `call
// target` (spec.md §4.5 "halt_helper"). A bare `ret` here would pop only
// the return address and leave the paramcount cell on the stack, which
// would desynchronize amx.stk from what exec_helper's normal-return path
// expects whenever paramcount is nonzero. Error code arrives in EAX, the
// internal convention every HALT/BOUNDS lowering and sysreq-not-found
// path uses.
func (tr *Translator) emitHaltHelper() {
	a := tr.asm
	a.Bind(tr.tramp.haltHelper)
	a.MovMR(tr.errMem(), asmx86.EAX)
	a.MovRM(asmx86.EBP, tr.resetEbpMem())
	a.MovRM(asmx86.ESP, tr.resetEspMem())
	a.PopR(asmx86.EDX) // return address into exec_helper
	a.PopR(asmx86.ESI) // synthetic paramcount*4 cell
	a.AddRR(asmx86.ESP, asmx86.ESI)
	a.JmpR(asmx86.EDX)
}

// emitJumpHelper: resolves an AMX address (in EAX) to a machine address
// via a linear scan of the address map embedded in the buffer (spec.md
// §4.5 "jump_helper" — JUMP.PRI and SCTRL(6), the indirect-jump/"goto"
// opcodes). A linear scan rather than the binary search the map's layout
// would support is a deliberate simplification for an emitter that has
// to hand-write its own search loop in raw x86; the Go-side addressMap
// type used at compile time does binary search. The loop counts in ESI,
// a scratch register, so ALT (ECX) is left as it was on both paths.
//
// Every call site reaches this with `call jump_helper` (CallLabel), not
// a plain jmp, which is what lets the not-found path fall through
// cleanly: with the call's own return address sitting on top of the AMX
// stack (esp is the live AMX stack here), a bare `ret` pops exactly that
// value back off and resumes right where the call site left off — the
// next instruction in the generated stream, which by construction of
// linear codegen is the translation of the AMX instruction right after
// the jump, i.e. "continuing execution as if the jump did not happen"
// (spec.md §8 boundary behavior for JUMP_PRI). The found path has the
// opposite obligation: "the current stack frame is preserved" means the
// call's pushed return address must not linger, so it is discarded
// (`add esp,4`) before the tail jmp to target.
func (tr *Translator) emitJumpHelper() {
	a := tr.asm
	a.Bind(tr.tramp.jumpHelper)

	loop := a.NewLabel()
	found := a.NewLabel()
	notFound := a.NewLabel()

	a.MovRI(asmx86.ESI, int32(len(tr.instrs)))
	a.MovRI(asmx86.EDX, int32(tr.base+addrMapBase))

	a.Bind(loop)
	a.TestRR(asmx86.ESI, asmx86.ESI)
	a.JeLabel(notFound)
	a.CmpRM(asmx86.EAX, asmx86.Indirect(asmx86.EDX, 0))
	a.JeLabel(found)
	a.AddRI(asmx86.EDX, addrMapEntrySize)
	a.DecR(asmx86.ESI)
	a.JmpLabel(loop)

	a.Bind(found)
	a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EDX, wordSize))
	a.AddRI(asmx86.ESP, wordSize)
	a.JmpR(asmx86.EDX)

	a.Bind(notFound)
	a.Ret()
}

// emitCallHelper: the CALL.PRI counterpart to jump_helper. Spec.md §4.5
// only describes jump_helper for the JUMP.PRI/SCTRL(6) "goto" case;
// CALL.PRI needs the same address-map scan but the opposite stack
// discipline, since its pushed return address is the one AMX's CALL
// semantics require the eventual RETN to find. The found path is a pure
// tail jmp that leaves the stack untouched; a miss halts rather than
// silently resuming past a call whose effect (the callee never ran) a
// guest could not safely ignore the way it can a missed goto.
func (tr *Translator) emitCallHelper() {
	a := tr.asm
	a.Bind(tr.tramp.callHelper)

	loop := a.NewLabel()
	found := a.NewLabel()
	notFound := a.NewLabel()

	a.MovRI(asmx86.ECX, int32(len(tr.instrs)))
	a.MovRI(asmx86.EDX, int32(tr.base+addrMapBase))

	a.Bind(loop)
	a.TestRR(asmx86.ECX, asmx86.ECX)
	a.JeLabel(notFound)
	a.CmpRM(asmx86.EAX, asmx86.Indirect(asmx86.EDX, 0))
	a.JeLabel(found)
	a.AddRI(asmx86.EDX, addrMapEntrySize)
	a.DecR(asmx86.ECX)
	a.JmpLabel(loop)

	a.Bind(found)
	a.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.EDX, wordSize))
	a.JmpR(asmx86.EDX)

	a.Bind(notFound)
	a.MovRI(asmx86.EAX, int32(amx.ErrInvInstr))
	a.JmpLabel(tr.tramp.haltHelper)
}

// emitSysreqHelper emits sysreq_c_helper (byAddress=false, argument is a
// native index) or sysreq_d_helper (byAddress=true, argument is a
// resolved native address), per spec.md §4.5. Both perform the same
// symmetric stack swap; they differ only in how the host shim resolves
// which native to call.
func (tr *Translator) emitSysreqHelper(label *asmx86.Label, byAddress bool) {
	a := tr.asm
	a.Bind(label)

	a.MovMR(tr.amxEbpMem(), asmx86.EBP)
	a.MovMR(tr.amxEspMem(), asmx86.ESP)

	a.MovRR(asmx86.EDX, asmx86.EBP)
	a.SubRM(asmx86.EDX, tr.dataBaseMem())
	a.MovMR(tr.frmMem(), asmx86.EDX)
	a.MovRR(asmx86.EDX, asmx86.ESP)
	a.AddRI(asmx86.EDX, wordSize) // step over this helper's return address to the count cell
	a.SubRM(asmx86.EDX, tr.dataBaseMem())
	a.MovMR(tr.stkMem(), asmx86.EDX)

	a.MovRM(asmx86.EBP, tr.ebpSaveMem())
	a.MovRM(asmx86.ESP, tr.espSaveMem())

	a.PushR(asmx86.EAX)
	shimAddr := tr.shimAddr(byAddress)
	a.MovRI(asmx86.EDX, shimAddr)
	a.CallR(asmx86.EDX)
	a.AddRI(asmx86.ESP, 4)

	a.MovRM(asmx86.EBP, tr.amxEbpMem())
	a.MovRM(asmx86.ESP, tr.amxEspMem())

	noErr := a.NewLabel()
	a.CmpMI(tr.errMem(), 0)
	a.JeLabel(noErr)
	a.MovRM(asmx86.EAX, tr.errMem())
	a.CallLabel(tr.tramp.haltHelper)
	a.Bind(noErr)
	a.Ret()
}
