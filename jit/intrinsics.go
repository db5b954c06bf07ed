package jit

import "amxjit/asmx86"

// intrinsicEmitter inlines one native function's effect directly into
// the call site, in place of a sysreq_c_helper call. Arguments sit on
// the AMX stack exactly where the guest's PUSH sequence left them:
// [esp] is the argument count cell, [esp+4] is the first argument,
// [esp+8] the second, and so on — the standard AMX native calling
// convention (spec.md §6, "amx.callback... params_ptr"). An intrinsic
// leaves that layout untouched; the guest code that follows SYSREQ_C is
// responsible for popping it, same as it would be after a real call.
type intrinsicEmitter func(tr *Translator)

// intrinsics is the closed, additive set spec.md §9 describes: floating
// point arithmetic and a handful of integer helpers. Looked up by name
// at lowering time (spec.md §3 "Intrinsics table").
var intrinsics = map[string]intrinsicEmitter{
	"floatadd": floatArith(func(a *asmx86.Assembler, m asmx86.Mem) { a.FaddM(m) }),
	"floatsub": floatArith(func(a *asmx86.Assembler, m asmx86.Mem) { a.FsubM(m) }),
	"floatmul": floatArith(func(a *asmx86.Assembler, m asmx86.Mem) { a.FmulM(m) }),
	"floatdiv": floatArith(func(a *asmx86.Assembler, m asmx86.Mem) { a.FdivM(m) }),
	"float":    emitFloatConvert,
	"min":      emitMin,
	"max":      emitMax,
	"clamp":    emitClamp,
}

// intrinsicFor looks up name, the way SYSREQ_C lowering consults this
// table before falling back to sysreq_c_helper.
func intrinsicFor(name string) (intrinsicEmitter, bool) {
	e, ok := intrinsics[name]
	return e, ok
}

// storeST0ToPRI spills the x87 top-of-stack register into PRI (eax)
// using a scratch cell carved temporarily out of the AMX stack just
// below esp; esp is restored to its original value once done.
func storeST0ToPRI(tr *Translator) {
	tr.asm.SubRI(asmx86.ESP, 4)
	tr.asm.FstpM(asmx86.Indirect(asmx86.ESP, 0))
	tr.asm.PopR(asmx86.EAX)
}

// floatArith builds a two-operand x87 emitter: ST(0) = arg0 <op> arg1,
// spilled into PRI.
func floatArith(op func(a *asmx86.Assembler, m asmx86.Mem)) intrinsicEmitter {
	return func(tr *Translator) {
		tr.asm.FldM(asmx86.Indirect(asmx86.ESP, 4))
		op(tr.asm, asmx86.Indirect(asmx86.ESP, 8))
		storeST0ToPRI(tr)
	}
}

func emitFloatConvert(tr *Translator) {
	tr.asm.FildM(asmx86.Indirect(asmx86.ESP, 4))
	storeST0ToPRI(tr)
}

func emitMin(tr *Translator) {
	done := tr.asm.NewLabel()
	tr.asm.MovRM(asmx86.EAX, asmx86.Indirect(asmx86.ESP, 4))
	tr.asm.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.ESP, 8))
	tr.asm.CmpRR(asmx86.EAX, asmx86.EDX)
	tr.asm.JleLabel(done)
	tr.asm.MovRR(asmx86.EAX, asmx86.EDX)
	tr.asm.Bind(done)
}

func emitMax(tr *Translator) {
	done := tr.asm.NewLabel()
	tr.asm.MovRM(asmx86.EAX, asmx86.Indirect(asmx86.ESP, 4))
	tr.asm.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.ESP, 8))
	tr.asm.CmpRR(asmx86.EAX, asmx86.EDX)
	tr.asm.JgeLabel(done)
	tr.asm.MovRR(asmx86.EAX, asmx86.EDX)
	tr.asm.Bind(done)
}

func emitClamp(tr *Translator) {
	aboveMin := tr.asm.NewLabel()
	belowMax := tr.asm.NewLabel()
	tr.asm.MovRM(asmx86.EAX, asmx86.Indirect(asmx86.ESP, 4))  // value
	tr.asm.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.ESP, 8))  // min
	tr.asm.CmpRR(asmx86.EAX, asmx86.EDX)
	tr.asm.JgeLabel(aboveMin)
	tr.asm.MovRR(asmx86.EAX, asmx86.EDX)
	tr.asm.Bind(aboveMin)
	tr.asm.MovRM(asmx86.EDX, asmx86.Indirect(asmx86.ESP, 12)) // max
	tr.asm.CmpRR(asmx86.EAX, asmx86.EDX)
	tr.asm.JleLabel(belowMax)
	tr.asm.MovRR(asmx86.EAX, asmx86.EDX)
	tr.asm.Bind(belowMax)
}
