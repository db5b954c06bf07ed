package jit

import (
	"encoding/binary"
	"testing"

	"amxjit/amx"
	"amxjit/opcode"
)

// assembleCode packs a stream of int32 cells (opcodes and operands, in
// the same raw layout the decoder reads) into a byte slice.
func assembleCode(cells ...int32) []byte {
	buf := make([]byte, 4*len(cells))
	for i, c := range cells {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(c))
	}
	return buf
}

// buildModule assembles a minimal, header-valid module image around
// code, with a data section big enough to hold dataSize bytes of stack
// and heap. The single public is at code offset 0; its name offset is
// left 0, so it carries no real name.
func buildModule(t *testing.T, code []byte, dataSize int32) *amx.Module {
	t.Helper()

	const headerSize = 56
	const entryRecordSize = 8

	cod := int32(headerSize)
	dat := cod + int32(len(code))
	hea := dat + dataSize/2
	stp := dat + dataSize
	publics := stp
	natives := publics + entryRecordSize
	libraries := natives

	size := libraries
	img := make([]byte, size)
	r := binary.LittleEndian

	r.PutUint32(img[0:4], uint32(size))
	r.PutUint16(img[4:6], 0xF1E0)
	img[6] = 8
	img[7] = 8
	r.PutUint16(img[10:12], 8)
	r.PutUint32(img[12:16], uint32(cod))
	r.PutUint32(img[16:20], uint32(dat))
	r.PutUint32(img[20:24], uint32(hea))
	r.PutUint32(img[24:28], uint32(stp))
	r.PutUint32(img[28:32], 0) // cip: entry at start of code (code-relative)
	r.PutUint32(img[32:36], uint32(publics))
	r.PutUint32(img[36:40], uint32(natives))
	r.PutUint32(img[40:44], uint32(libraries))
	r.PutUint32(img[44:48], uint32(libraries))
	r.PutUint32(img[48:52], uint32(libraries))
	r.PutUint32(img[52:56], uint32(libraries))

	copy(img[cod:dat], code)

	r.PutUint32(img[publics:publics+4], 0) // public "main" at code offset 0
	r.PutUint32(img[publics+4:publics+8], 0)

	m, err := amx.NewModule(img)
	if err != nil {
		t.Fatalf("buildModule: NewModule: %v", err)
	}
	m.RegisterNatives(func(*amx.Module, int32, []amx.Cell) (amx.Cell, amx.ErrorCode) {
		return 0, amx.ErrNativeNotFound
	})
	return m
}

func compileAndRun(t *testing.T, code []byte) (amx.ErrorCode, amx.Cell) {
	t.Helper()
	return compileAndRunModule(t, buildModule(t, code, 256))
}

func compileAndRunModule(t *testing.T, m *amx.Module) (amx.ErrorCode, amx.Cell) {
	t.Helper()

	prog, err := Compile(m, nil, Options{}, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer prog.Release()

	var retval amx.Cell
	code2, err := prog.Exec(ExecMain, &retval)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	return code2, retval
}

// TestExecConstantReturn is spec.md §8 scenario (a), literally.
func TestExecConstantReturn(t *testing.T) {
	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), 42,
		int32(opcode.RETN),
	)
	errCode, retval := compileAndRun(t, code)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != 42 {
		t.Fatalf("expected 42, got %d", retval)
	}
}

// TestExecScenarioSignedComparisonBranch is spec.md §8 scenario (b),
// literally: a JSLESS branch over a ZERO_PRI/JUMP pair.
func TestExecScenarioSignedComparisonBranch(t *testing.T) {
	// addr 0: PROC
	// addr 4: CONST_PRI -3
	// addr 12: CONST_ALT 5
	// addr 20: JSLESS 40 (L_end)
	// addr 28: ZERO_PRI
	// addr 32: JUMP 48 (L_exit)
	// addr 40: L_end: CONST_PRI 1
	// addr 48: L_exit: RETN
	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), -3,
		int32(opcode.CONST_ALT), 5,
		int32(opcode.JSLESS), 40,
		int32(opcode.ZERO_PRI),
		int32(opcode.JUMP), 48,
		int32(opcode.CONST_PRI), 1,
		int32(opcode.RETN),
	)
	errCode, retval := compileAndRun(t, code)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != 1 {
		t.Fatalf("expected 1, got %d", retval)
	}
}

// TestExecScenarioStackRoundTrip is spec.md §8 scenario (c), literally.
func TestExecScenarioStackRoundTrip(t *testing.T) {
	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.PUSH_C), 7,
		int32(opcode.PUSH_C), 11,
		int32(opcode.POP_ALT),
		int32(opcode.POP_PRI),
		int32(opcode.SUB),
		int32(opcode.RETN),
	)
	errCode, retval := compileAndRun(t, code)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != -4 {
		t.Fatalf("expected 7-11=-4, got %d", retval)
	}
}

// TestExecScenarioMemoryCopy is spec.md §8 scenario (e), literally: MOVS
// followed by LOAD_I reads back the little-endian reinterpretation of
// the copied bytes.
func TestExecScenarioMemoryCopy(t *testing.T) {
	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), 0,
		int32(opcode.CONST_ALT), 4,
		int32(opcode.MOVS), 4,
		int32(opcode.LOAD_I),
		int32(opcode.RETN),
	)
	m := buildModule(t, code, 256)
	dat := m.Header().Dat
	m.SetCellAt(dat+0, int32(0x44332211))

	errCode, retval := compileAndRunModule(t, m)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != 0x44332211 {
		t.Fatalf("expected 0x44332211, got %#x", retval)
	}
}

func TestExecSignedComparison(t *testing.T) {
	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), 3,
		int32(opcode.CONST_ALT), 5,
		int32(opcode.SLESS),
		int32(opcode.RETN),
	)
	errCode, retval := compileAndRun(t, code)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != 1 {
		t.Fatalf("expected 1 (3 < 5), got %d", retval)
	}
}

func TestExecStackRoundTrip(t *testing.T) {
	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.PUSH_C), 99,
		int32(opcode.POP_PRI),
		int32(opcode.RETN),
	)
	errCode, retval := compileAndRun(t, code)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != 99 {
		t.Fatalf("expected 99, got %d", retval)
	}
}

// TestExecBoundsFault covers spec.md §8 scenario (d) (PRI beyond the
// bound faults); the exact operand values differ from the literal
// example but exercise the identical boundary behavior.
func TestExecBoundsFault(t *testing.T) {
	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), 10,
		int32(opcode.BOUNDS), 5,
		int32(opcode.RETN),
	)
	errCode, _ := compileAndRun(t, code)
	if errCode != amx.ErrBounds {
		t.Fatalf("expected ErrBounds, got %s", errCode)
	}
}

func TestExecBoundsWithinRangeSucceeds(t *testing.T) {
	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), 3,
		int32(opcode.BOUNDS), 5,
		int32(opcode.RETN),
	)
	errCode, retval := compileAndRun(t, code)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != 3 {
		t.Fatalf("expected 3, got %d", retval)
	}
}

// TestExecJumpPriFallsThrough covers spec.md §8's boundary property for
// JUMP.PRI: a target with no entry in the address map is a no-op, not a
// fault. CONST_PRI here loads an address nothing in this tiny program
// ever occupies, so the lookup inside jump_helper is guaranteed to miss.
func TestExecJumpPriFallsThrough(t *testing.T) {
	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), 0x7FFF,
		int32(opcode.JUMP_PRI),
		int32(opcode.CONST_PRI), 7,
		int32(opcode.RETN),
	)
	errCode, retval := compileAndRun(t, code)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != 7 {
		t.Fatalf("expected fallthrough to set PRI=7, got %d", retval)
	}
}

func TestExecDirectJump(t *testing.T) {
	// PROC at 0 (1 cell), JUMP at 4 (2 cells) skips over a CONST_PRI at
	// 12 (2 cells) straight to the CONST_PRI at 20, falling into RETN at
	// 28.
	code := assembleCode(
		int32(opcode.PROC),           // addr 0
		int32(opcode.JUMP), 20,       // addr 4, jump straight to addr 20
		int32(opcode.CONST_PRI), 999, // addr 12 (skipped)
		int32(opcode.CONST_PRI), 5,   // addr 20
		int32(opcode.RETN),           // addr 28
	)
	errCode, retval := compileAndRun(t, code)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != 5 {
		t.Fatalf("expected 5, got %d", retval)
	}
}

// TestExecValidatesStackHeapCollision is spec.md §8 scenario (f).
func TestExecValidatesStackHeapCollision(t *testing.T) {
	m := buildModule(t, assembleCode(int32(opcode.PROC), int32(opcode.RETN)), 256)
	m.Registers.HEA = m.Registers.STK // force collision

	prog, err := Compile(m, nil, Options{}, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer prog.Release()

	errCode, err := prog.Exec(ExecMain, nil)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if errCode != amx.ErrStackErr {
		t.Fatalf("expected ErrStackErr, got %s", errCode)
	}
}

func TestExecRequiresRegisteredNatives(t *testing.T) {
	m := buildModule(t, assembleCode(int32(opcode.PROC), int32(opcode.RETN)), 256)
	m.Registers.Flags = 0 // undo buildModule's RegisterNatives call

	prog, err := Compile(m, nil, Options{}, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer prog.Release()

	errCode, err := prog.Exec(ExecMain, nil)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if errCode != amx.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %s", errCode)
	}
}

func TestCompileRejectsInvalidOpcode(t *testing.T) {
	m := buildModule(t, assembleCode(int32(opcode.NONE)), 64)

	prog, err := Compile(m, nil, Options{}, nil)
	if err == nil {
		t.Fatalf("expected a decode error for NONE")
	}
	if !prog.compileFailed {
		t.Fatalf("expected compileFailed to be set")
	}

	errCode, execErr := prog.Exec(ExecMain, nil)
	if execErr != nil {
		t.Fatalf("Exec: %v", execErr)
	}
	if errCode != amx.ErrInitJIT {
		t.Fatalf("expected sticky ErrInitJIT, got %s", errCode)
	}
}

// TestExecFillWritesPriAtAltDestination covers spec.md §8 invariant 6 for
// FILL: the fill value is PRI, the destination is data+ALT, and ALT is
// unchanged by the instruction (checked here via a trailing MOVE_PRI,
// since ALT otherwise never gets flushed back to amx.Registers).
func TestExecFillWritesPriAtAltDestination(t *testing.T) {
	const dstOff = int32(16)
	const fillValue = int32(0x41414141)

	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), fillValue,
		int32(opcode.CONST_ALT), dstOff,
		int32(opcode.FILL), 8,
		int32(opcode.MOVE_PRI),
		int32(opcode.RETN),
	)
	m := buildModule(t, code, 256)

	errCode, retval := compileAndRunModule(t, m)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != dstOff {
		t.Fatalf("expected ALT preserved as %d, got %d", dstOff, retval)
	}

	dat := m.Header().Dat
	for _, off := range []int32{dstOff, dstOff + 4} {
		if got := m.CellAt(dat + off); got != fillValue {
			t.Fatalf("expected cell at data+%d to be %#x, got %#x", off, fillValue, got)
		}
	}
}

// TestExecMovsCopiesBytesAndPreservesAlt covers spec.md §8 invariant 6 for
// MOVS: bytes move from data+PRI to data+ALT, and ALT is unchanged.
func TestExecMovsCopiesBytesAndPreservesAlt(t *testing.T) {
	const srcOff = int32(0)
	const dstOff = int32(32)
	const payload = int32(0x13572468)

	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), srcOff,
		int32(opcode.CONST_ALT), dstOff,
		int32(opcode.MOVS), 4,
		int32(opcode.MOVE_PRI),
		int32(opcode.RETN),
	)
	m := buildModule(t, code, 256)
	m.SetCellAt(m.Header().Dat+srcOff, payload)

	errCode, retval := compileAndRunModule(t, m)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != dstOff {
		t.Fatalf("expected ALT preserved as %d, got %d", dstOff, retval)
	}
	if got := m.CellAt(m.Header().Dat + dstOff); got != payload {
		t.Fatalf("expected copied cell %#x at data+%d, got %#x", payload, dstOff, got)
	}
}

// TestExecCmpsComparesBytes covers spec.md §8 invariant 6 for CMPS: a
// lexicographic byte comparison of data+PRI against data+ALT, result in
// PRI (-1/0/+1).
func TestExecCmpsComparesBytes(t *testing.T) {
	const aOff = int32(0)
	const bOff = int32(32)

	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), aOff,
		int32(opcode.CONST_ALT), bOff,
		int32(opcode.CMPS), 4,
		int32(opcode.RETN),
	)
	m := buildModule(t, code, 256)
	m.SetCellAt(m.Header().Dat+aOff, 1)
	m.SetCellAt(m.Header().Dat+bOff, 2)

	errCode, retval := compileAndRunModule(t, m)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != -1 {
		t.Fatalf("expected -1 (a < b), got %d", retval)
	}
}

// TestExecCmpsPreservesAlt covers spec.md §8 invariant 6's ALT-unchanged
// clause for CMPS, separately from the comparison result itself since
// CMPS overwrites PRI with its result.
func TestExecCmpsPreservesAlt(t *testing.T) {
	const aOff = int32(0)
	const bOff = int32(32)

	code := assembleCode(
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), aOff,
		int32(opcode.CONST_ALT), bOff,
		int32(opcode.CMPS), 4,
		int32(opcode.MOVE_PRI),
		int32(opcode.RETN),
	)
	m := buildModule(t, code, 256)

	errCode, retval := compileAndRunModule(t, m)
	if errCode != amx.ErrNone {
		t.Fatalf("expected ErrNone, got %s", errCode)
	}
	if retval != bOff {
		t.Fatalf("expected ALT preserved as %d, got %d", bOff, retval)
	}
}

func TestAddressMapSortedByConstruction(t *testing.T) {
	m := buildModule(t, assembleCode(
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), 1,
		int32(opcode.CONST_PRI), 2,
		int32(opcode.RETN),
	), 64)

	prog, err := Compile(m, nil, Options{}, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer prog.Release()

	if !prog.compiled.addrMap.sorted() {
		t.Fatalf("expected address map to be sorted")
	}
}
