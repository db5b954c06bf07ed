package jit

import (
	"github.com/sirupsen/logrus"

	"amxjit/amx"
	"amxjit/decode"
	"amxjit/opcode"
)

// ExecMain is the index convention for "run the module's main entry
// point" (spec.md §4.5 step 2: "index = MAIN → use header.cip").
const ExecMain amx.Cell = -1

// estimateBufferSize sizes the output buffer before a single byte of
// code is emitted. The buffer can never grow once mmap'd (Translate
// bakes in absolute addresses as it writes, see buffer.go's doc
// comment), so the estimate has to be generous rather than tight:
// instrByteBudget covers the longest fixed-length lowerings (CMPS's
// compare-and-fold sequence is 57 bytes, BOUNDS's two-compare branch
// 37), and trampolineByteBudget covers the six fixed-size trampolines
// emitted once regardless of instruction count. SWITCH's compare chain
// grows with its case count, so a SWITCH with many cases relies on the
// slack that shorter instructions leave in the total.
const (
	instrByteBudget      = 64
	trampolineByteBudget = 768
)

func estimateBufferSize(numInstrs int) int {
	return int(ribSize) + numInstrs*addrMapEntrySize + trampolineByteBudget + numInstrs*instrByteBudget
}

// Program is a compiled module ready to run (spec.md §2/§6): the
// published output buffer (compiledModule, declared in translator.go)
// plus the Bytecode View it was compiled against. Compile is the only
// way to obtain one; Release is the only way to tear it down.
type Program struct {
	module   *amx.Module
	compiled *compiledModule
	log      *logrus.Entry

	// compileFailed is AMX_ERR_INIT_JIT's sticky-failure modeling
	// (spec.md §7): once translation has failed, every Exec call returns
	// ErrInitJIT immediately rather than touching a nil compiled and
	// panicking, and without retrying a translation already known to
	// fail.
	compileFailed bool
}

// Compile decodes module's code section, translates it to x86-32, and
// publishes the result as executable memory (spec.md §4.3-§4.4). reloc
// may be nil; log may be nil (a discarding logger is substituted, see
// NewTranslator).
//
// Compile always returns a non-nil *Program, even on failure: a real
// AMX host calls amx_InitJIT once per module and, on failure, still
// holds onto the instance to return AMX_ERR_INIT_JIT from every later
// exec() rather than re-attempting a translation already known to fail.
// Program.compileFailed models that; callers that only care about the
// immediate failure, without keeping a (useless) Program around, can
// ignore the returned Program and check the error.
//
// Compile decodes the module once here (to size the buffer) and
// Translate decodes again internally (translator.go); the duplicated
// pass is traded for keeping Translate a self-contained entry point,
// and is cheap next to the mmap/codegen work either call does.
func Compile(module *amx.Module, reloc *opcode.RelocationMap, opts Options, log *logrus.Entry) (*Program, error) {
	tr := NewTranslator(module, reloc, opts, log)
	p := &Program{module: module, log: tr.log}

	instrs, err := decode.DecodeAll(module.Code(), reloc)
	if err != nil {
		p.compileFailed = true
		return p, &CompileError{Decode: err.(*decode.Error)}
	}

	buf, err := newBuffer(estimateBufferSize(len(instrs)))
	if err != nil {
		p.compileFailed = true
		return p, err
	}

	cm, err := tr.Translate(buf)
	if err != nil {
		buf.Release()
		p.compileFailed = true
		return p, err
	}
	if err := buf.Publish(); err != nil {
		buf.Release()
		p.compileFailed = true
		return p, err
	}

	tr.log.WithFields(logrus.Fields{
		"instructions": len(instrs),
		"bufferBytes":  len(buf.liveBytes()),
	}).Debug("jit: module compiled")

	p.compiled = cm
	return p, nil
}

// Exec runs one public function, or the module's main entry point when
// index is ExecMain, and is the host-facing `exec(cell index, cell*
// retval)` of spec.md §4.5/§6. It performs every step that entry point
// describes ahead of the actual transfer into generated code: state
// validation, index resolution, and the address-map lookup that turns
// an AMX address into a machine pointer; exec_helper (trampolines.go)
// performs the stack swap and the call itself.
func (p *Program) Exec(index amx.Cell, retval *amx.Cell) (amx.ErrorCode, error) {
	if p.compileFailed {
		return amx.ErrInitJIT, nil
	}

	m := p.module
	hdr := m.Header()

	switch {
	case m.Registers.HEA >= m.Registers.STK:
		return amx.ErrStackErr, nil
	case m.Registers.STK > hdr.Stp:
		return amx.ErrStackLow, nil
	case m.Registers.HEA < hdr.Hea:
		return amx.ErrHeapLow, nil
	case !m.NativesRegistered():
		return amx.ErrNotFound, nil
	}

	var entryAddr amx.Cell
	switch {
	case index == ExecMain:
		entryAddr = hdr.Cip
	case index >= 0 && int(index) < m.NumPublics():
		entryAddr = m.PublicAddress(int(index))
	default:
		return amx.ErrIndex, nil
	}

	machineOff, ok := p.compiled.addrMap.lookup(entryAddr)
	if !ok {
		return amx.ErrIndex, nil
	}
	target := p.compiled.buf.base() + uint32(machineOff)

	m.PushCell(m.Registers.ParamCount * 4)
	m.Registers.ParamCount = 0
	m.Registers.Error = amx.ErrNone

	// Save/restore the rollback pair around the call so a nested exec
	// (guest -> native -> guest, spec.md §9 "Re-entrancy of exec") can't
	// leave this invocation's own unwind target clobbered by the inner
	// call's use of the same Runtime Block slot.
	r := newRIB(p.compiled.buf.liveBytes())
	savedResetEbp, savedResetEsp := r.resetEbp(), r.resetEsp()

	entryFn := asExecFunc(uintptr(p.compiled.buf.base()) + uintptr(p.compiled.execHelperOff))
	entryFn(target)

	r.setResetEbp(savedResetEbp)
	r.setResetEsp(savedResetEsp)

	if retval != nil {
		*retval = m.Registers.PRI
	}

	err := m.Registers.Error
	m.Registers.Error = amx.ErrNone
	return err, nil
}

// Resume re-enters a module that previously returned ErrSleep from Exec,
// continuing at the AMX address lower_sysreq.go stashed into amx.cip
// right before the native call that requested sleep (SPEC_FULL.md §4.5
// "(added)" jit_sleep extension). Unlike Exec, Resume pushes no new
// paramcount cell: the AMX stack is exactly where the sleeping call left
// it, including the original entry's paramcount cell, which a later
// RETN still expects to find. Resume is only meaningful when Options.Sleep
// was set at Compile time; calling it otherwise finds amx.cip stuck at
// whatever it last held (likely 0) and returns ErrIndex.
func (p *Program) Resume(retval *amx.Cell) (amx.ErrorCode, error) {
	if p.compileFailed {
		return amx.ErrInitJIT, nil
	}

	m := p.module
	hdr := m.Header()

	switch {
	case m.Registers.HEA >= m.Registers.STK:
		return amx.ErrStackErr, nil
	case m.Registers.STK > hdr.Stp:
		return amx.ErrStackLow, nil
	case m.Registers.HEA < hdr.Hea:
		return amx.ErrHeapLow, nil
	}

	machineOff, ok := p.compiled.addrMap.lookup(m.Registers.CIP)
	if !ok {
		return amx.ErrIndex, nil
	}
	target := p.compiled.buf.base() + uint32(machineOff)

	m.Registers.Error = amx.ErrNone

	r := newRIB(p.compiled.buf.liveBytes())
	savedResetEbp, savedResetEsp := r.resetEbp(), r.resetEsp()

	entryFn := asExecFunc(uintptr(p.compiled.buf.base()) + uintptr(p.compiled.execHelperOff))
	entryFn(target)

	r.setResetEbp(savedResetEbp)
	r.setResetEsp(savedResetEsp)

	if retval != nil {
		*retval = m.Registers.PRI
	}

	err := m.Registers.Error
	m.Registers.Error = amx.ErrNone
	return err, nil
}

// Release unmaps the compiled buffer. The Program must not be used
// again afterward. A Program whose compilation failed has nothing
// mapped and Release is a no-op.
func (p *Program) Release() error {
	if p.compiled == nil {
		return nil
	}
	return p.compiled.buf.Release()
}
