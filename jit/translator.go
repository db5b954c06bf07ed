package jit

import (
	"github.com/sirupsen/logrus"

	"amxjit/amx"
	"amxjit/asmx86"
	"amxjit/decode"
	"amxjit/opcode"
)

// Options carries the configuration knobs spec.md §6 lists as consumed
// by the core (jit_sysreq_d, jit_sleep, jit_debug); jit_log is handled
// by the caller choosing whether to attach a logger at all.
type Options struct {
	SysreqD bool
	Sleep   bool
	Debug   uint32
}

// Translator drives a single-pass lowering of one AMX module's code
// section into x86-32, per spec.md §4.3. It is used once per Compile
// call and discarded.
type Translator struct {
	module *amx.Module
	reloc  *opcode.RelocationMap
	opts   Options
	log    *logrus.Entry

	buf  *Buffer
	base uint32 // buf's final, page-mapped absolute address

	asm     *asmx86.Assembler
	labels  *labelTable
	addrMap addressMap
	instrs  []decode.Instruction

	// trampoline entry points, bound once at the start of translation
	// and referenced by every per-opcode lowering that needs to leave
	// generated code (spec.md §4.5).
	tramp trampolineLabels
}

type trampolineLabels struct {
	execHelper *asmx86.Label
	haltHelper *asmx86.Label
	jumpHelper *asmx86.Label
	callHelper *asmx86.Label
	sysreqC    *asmx86.Label
	sysreqD    *asmx86.Label
}

// NewTranslator returns a Translator for module. reloc may be nil (see
// decode.NewDecoder). log may be nil, in which case a disabled
// logger is used so call sites never need a nil check.
func NewTranslator(module *amx.Module, reloc *opcode.RelocationMap, opts Options, log *logrus.Entry) *Translator {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(discardWriter{})
		log = logrus.NewEntry(discard)
	}
	return &Translator{module: module, reloc: reloc, opts: opts, log: log}
}

// Translate performs the full single-pass compile described by spec.md
// §4.3-§4.5: decode, emit the Runtime Block and trampolines, then lower
// every instruction, recording the address map as it goes. buf must
// already be at its final, page-mapped address — every absolute
// reference this package emits (Runtime Block slots, register-block
// fields) is baked in directly as it's written, rather than patched
// afterward, which is only possible because the buffer never moves
// after allocation.
func (tr *Translator) Translate(buf *Buffer) (*compiledModule, error) {
	instrs, err := decode.DecodeAll(tr.module.Code(), tr.reloc)
	if err != nil {
		return nil, &CompileError{Decode: err.(*decode.Error)}
	}

	tr.instrs = instrs
	tr.buf = buf
	tr.base = buf.base()
	tr.asm = asmx86.NewAssemblerIn(buf.bytes())
	tr.labels = newLabelTable(tr.asm)

	headerLen := int32(ribSize) + int32(len(instrs))*addrMapEntrySize
	tr.asm.Reserve(headerLen)

	tr.emitTrampolines()

	for _, in := range instrs {
		if in.Opcode == opcode.PROC {
			tr.asm.AlignTo16()
		}
		tr.labels.bind(in.Address)
		tr.addrMap.record(in.Address, tr.asm.Len())
		if err := tr.lower(in); err != nil {
			return nil, err
		}
	}

	if unresolved := tr.labels.unbound(); len(unresolved) > 0 {
		return nil, loweringError(unresolved[0], "branch target is outside the code section")
	}
	if !tr.addrMap.sorted() {
		panic("jit: address map not sorted despite in-order emission")
	}

	r := newRIB(tr.asm.Bytes())
	r.setAmxPtr(abs32Uint(tr.module.RegistersPointer()))
	r.setDataBase(abs32Uint(tr.module.DataPointer()))
	r.setExecPtr(tr.base + uint32(tr.tramp.execHelper.Offset()))
	r.setInstrTablePtr(tr.base + addrMapBase)
	r.setInstrTableSize(uint32(tr.addrMap.len()))
	tr.addrMap.writeTo(tr.asm.Bytes(), tr.base)

	return &compiledModule{
		buf:           buf,
		addrMap:       tr.addrMap,
		execHelperOff: tr.tramp.execHelper.Offset(),
	}, nil
}

func abs32Uint(p uintptr) uint32 { return uint32(p) }

// compiledModule is the finished translation: the published buffer plus
// the bookkeeping Program needs to invoke it.
type compiledModule struct {
	buf           *Buffer
	addrMap       addressMap
	execHelperOff int32
}

// lower dispatches one decoded instruction to its opcode-specific
// emitter. The switch is split across lower_*.go files by concern, the
// way a single-pass codegen pass is usually organized; this file only
// owns the dispatch table.
func (tr *Translator) lower(in decode.Instruction) error {
	switch {
	case isLoadStore(in.Opcode):
		return tr.lowerLoadStore(in)
	case isArith(in.Opcode):
		return tr.lowerArith(in)
	case isControlFlow(in.Opcode):
		return tr.lowerControlFlow(in)
	case isFrameOrStack(in.Opcode):
		return tr.lowerFrameStack(in)
	case isSysreq(in.Opcode):
		return tr.lowerSysreq(in)
	case in.Opcode == opcode.SWITCH || in.Opcode == opcode.CASETBL:
		return tr.lowerSwitch(in)
	case in.Opcode == opcode.NOP:
		return nil
	case in.Opcode == opcode.BREAK:
		if tr.opts.Debug != 0 {
			tr.asm.Int3()
		}
		return nil
	default:
		return loweringError(in.Address, "no lowering for %s", in.Opcode)
	}
}

// instrForAddr finds the decoded instruction at the given AMX address,
// the way SWITCH lowering locates its associated CASETBL payload.
func (tr *Translator) instrForAddr(addr amx.Cell) (decode.Instruction, bool) {
	for _, in := range tr.instrs {
		if in.Address == addr {
			return in, true
		}
	}
	return decode.Instruction{}, false
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
