package decode

import (
	"encoding/binary"
	"testing"

	"amxjit/amx"
	"amxjit/opcode"
)

func assemble(t *testing.T, cells ...int32) []byte {
	t.Helper()
	buf := make([]byte, 4*len(cells))
	for i, c := range cells {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(c))
	}
	return buf
}

func decodeAll(t *testing.T, code []byte) []Instruction {
	t.Helper()
	instrs, err := DecodeAll(code, nil)
	if err != nil {
		t.Fatalf("DecodeAll failed: %v", err)
	}
	return instrs
}

func TestDecodeFixedArity(t *testing.T) {
	code := assemble(t,
		int32(opcode.PROC),
		int32(opcode.CONST_PRI), 42,
		int32(opcode.RETN),
	)

	instrs := decodeAll(t, code)
	if len(instrs) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(instrs))
	}

	if instrs[0].Opcode != opcode.PROC || instrs[0].Address != 0 {
		t.Fatalf("unexpected first instruction: %+v", instrs[0])
	}
	if instrs[1].Opcode != opcode.CONST_PRI || instrs[1].Operand(0) != 42 {
		t.Fatalf("unexpected second instruction: %+v", instrs[1])
	}
	// PROC occupies 4 bytes, CONST.PRI occupies 8 bytes.
	if instrs[2].Address != 12 {
		t.Fatalf("successive addresses did not advance by (1+operands)*4: got %d", instrs[2].Address)
	}
}

func TestDecodeCaseTable(t *testing.T) {
	code := assemble(t,
		int32(opcode.CASETBL), 2, 999, // num_cases=2, default=999
		1, 100, // value=1 -> addr=100
		2, 200, // value=2 -> addr=200
	)

	instrs := decodeAll(t, code)
	if len(instrs) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(instrs))
	}

	ct := NewCaseTable(instrs[0])
	if ct.NumCases() != 2 {
		t.Fatalf("expected 2 cases, got %d", ct.NumCases())
	}
	if ct.DefaultAddress() != 999 {
		t.Fatalf("expected default address 999, got %d", ct.DefaultAddress())
	}
	if ct.Value(0) != 1 || ct.Address(0) != 100 {
		t.Fatalf("unexpected case 0: value=%d address=%d", ct.Value(0), ct.Address(0))
	}
	if ct.Value(1) != 2 || ct.Address(1) != 200 {
		t.Fatalf("unexpected case 1: value=%d address=%d", ct.Value(1), ct.Address(1))
	}
}

func TestDecodeEmptyCaseTable(t *testing.T) {
	code := assemble(t, int32(opcode.CASETBL), 0, 999)
	instrs := decodeAll(t, code)
	ct := NewCaseTable(instrs[0])
	if ct.NumCases() != 0 {
		t.Fatalf("expected 0 cases, got %d", ct.NumCases())
	}
}

func TestDecodeObsoleteInstruction(t *testing.T) {
	code := assemble(t, int32(opcode.PUSH_R), 0)
	_, err := DecodeAll(code, nil)
	derr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *decode.Error, got %v (%T)", err, err)
	}
	if derr.Kind != ObsoleteInstruction {
		t.Fatalf("expected ObsoleteInstruction, got %v", derr.Kind)
	}
}

func TestDecodeInvalidInstruction(t *testing.T) {
	code := assemble(t, 0x7FFFFFFF)
	_, err := DecodeAll(code, nil)
	derr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *decode.Error, got %v (%T)", err, err)
	}
	if derr.Kind != InvalidInstruction {
		t.Fatalf("expected InvalidInstruction, got %v", derr.Kind)
	}
}

func TestDecodeWithRelocationMap(t *testing.T) {
	// Simulate a threaded-dispatch host: raw cell values are arbitrary
	// "code pointers" rather than logical opcode IDs.
	raw := make([]int32, int(opcode.BREAK)+1)
	for i := range raw {
		raw[i] = int32(0x1000 + i*0x10)
	}
	reloc := opcode.NewRelocationMap(raw)

	code := assemble(t, raw[opcode.NOP])
	instrs, err := DecodeAll(code, reloc)
	if err != nil {
		t.Fatalf("DecodeAll with relocation map failed: %v", err)
	}
	if len(instrs) != 1 || instrs[0].Opcode != opcode.NOP {
		t.Fatalf("expected a single NOP, got %+v", instrs)
	}
}

func TestInstructionSize(t *testing.T) {
	in := Instruction{Opcode: opcode.CONST_PRI, Operands: []amx.Cell{1}}
	if in.Size() != 8 {
		t.Fatalf("expected size 8, got %d", in.Size())
	}
}
