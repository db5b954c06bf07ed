package decode

import (
	"errors"
	"fmt"

	"amxjit/amx"
	"amxjit/opcode"
)

// ErrorKind classifies why decoding an instruction failed.
type ErrorKind int

const (
	// InvalidInstruction means the opcode cell does not name any known
	// opcode (and, when a relocation map is in use, does not appear in
	// it either).
	InvalidInstruction ErrorKind = iota
	// ObsoleteInstruction means the opcode is recognized but has been
	// dropped from the supported instruction set (PUSH_R, FILE, LINE,
	// SYMBOL, SRANGE, SYMTAG, JREL).
	ObsoleteInstruction
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidInstruction:
		return "invalid instruction"
	case ObsoleteInstruction:
		return "obsolete instruction"
	default:
		return "unknown decode error"
	}
}

// Error is a decode-time failure, captured together with the address
// and (when known) opcode of the offending instruction so a caller can
// report "<mnemonic> at <address>" the way spec.md §7 requires.
type Error struct {
	Kind    ErrorKind
	Address amx.Cell
	Opcode  opcode.Opcode // NONE if the raw cell didn't resolve to any opcode
}

func (e *Error) Error() string {
	if e.Opcode == opcode.NONE {
		return fmt.Sprintf("decode: %s at %#06x", e.Kind, e.Address)
	}
	return fmt.Sprintf("decode: %s %s at %#06x", e.Kind, e.Opcode, e.Address)
}

// ErrEndOfCode is returned by Next once the cursor reaches or exceeds
// the end of the code section; it is not a decode failure.
var ErrEndOfCode = errors.New("decode: end of code section")

// Decoder is a single-shot iterator over one AMX code section.
type Decoder struct {
	code  []byte
	ip    int32 // cursor, relative to the start of code
	reloc *opcode.RelocationMap
}

// NewDecoder returns a Decoder over code. reloc may be nil, meaning the
// host was built with plain (non-threaded) dispatch and on-disk opcode
// cells already are logical opcode IDs.
func NewDecoder(code []byte, reloc *opcode.RelocationMap) *Decoder {
	return &Decoder{code: code, reloc: reloc}
}

func (d *Decoder) cellAt(off int32) amx.Cell {
	b := d.code[off : off+4]
	return int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24
}

// Next decodes one instruction and advances the cursor past it. It
// returns ErrEndOfCode when the code section is exhausted, or an *Error
// for an unknown or obsolete opcode.
func (d *Decoder) Next() (Instruction, error) {
	if d.ip >= int32(len(d.code)) {
		return Instruction{}, ErrEndOfCode
	}

	addr := d.ip
	raw := d.cellAt(d.ip)

	op := opcode.Opcode(raw)
	if d.reloc != nil {
		resolved, ok := d.reloc.Resolve(raw)
		if !ok {
			return Instruction{}, &Error{Kind: InvalidInstruction, Address: addr}
		}
		op = resolved
	}

	if !opcode.Valid(op) {
		return Instruction{}, &Error{Kind: InvalidInstruction, Address: addr, Opcode: op}
	}
	if opcode.Obsolete(op) {
		return Instruction{}, &Error{Kind: ObsoleteInstruction, Address: addr, Opcode: op}
	}

	in := Instruction{Address: addr, Opcode: op}
	cursor := d.ip + 4

	switch op.Arity() {
	case opcode.ArityZero:
		// no operands
	case opcode.ArityOne:
		in.Operands = []amx.Cell{d.cellAt(cursor)}
		cursor += 4
	case opcode.ArityVariable:
		// CASETBL: (num_cases, default_address, v1, a1, ..., vN, aN)
		n := d.cellAt(cursor)
		total := 2 * (n + 1)
		ops := make([]amx.Cell, total)
		for i := int32(0); i < total; i++ {
			ops[i] = d.cellAt(cursor)
			cursor += 4
		}
		in.Operands = ops
	}

	d.ip = cursor
	return in, nil
}

// DecodeAll walks the entire code section and returns every decoded
// instruction, or the first decode error encountered. Callers size the
// Runtime Block's address-map region (spec.md §4.4) from the length of
// the result: one slot per instruction.
func DecodeAll(code []byte, reloc *opcode.RelocationMap) ([]Instruction, error) {
	d := NewDecoder(code, reloc)
	var out []Instruction
	for {
		in, err := d.Next()
		if err == ErrEndOfCode {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
}
