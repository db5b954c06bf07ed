// Package decode walks an AMX code section once, producing a stream of
// typed instructions with their operand lists — the Decoder component
// of spec.md §4.2.
package decode

import (
	"fmt"

	"amxjit/amx"
	"amxjit/opcode"
)

// Instruction is one decoded AMX instruction: its address (as a
// code-relative cell offset), its opcode, and its operand cells.
// CASETBL is the only opcode whose Operands has more than one element
// beyond what Arity() would suggest; see CaseTable for the structured
// view of its payload.
type Instruction struct {
	Address  amx.Cell
	Opcode   opcode.Opcode
	Operands []amx.Cell
}

// Operand returns the i-th operand cell, or 0 if the instruction has
// fewer than i+1 operands.
func (in Instruction) Operand(i int) amx.Cell {
	if i < 0 || i >= len(in.Operands) {
		return 0
	}
	return in.Operands[i]
}

// Size returns the number of bytes this instruction occupies in the
// code section: one cell for the opcode plus one cell per operand.
func (in Instruction) Size() int32 {
	return int32(1+len(in.Operands)) * 4
}

func (in Instruction) String() string {
	if len(in.Operands) == 0 {
		return fmt.Sprintf("%06x: %s", in.Address, in.Opcode)
	}
	return fmt.Sprintf("%06x: %s %v", in.Address, in.Opcode, in.Operands)
}

// CaseTable is the logical view over a CASETBL instruction's payload:
// operands laid out as (num_cases, default_address, v1, a1, ..., vN, aN).
// The default and case addresses are taken as code-relative cells, like
// every other branch operand; the Translator uses them as they are and
// does not convert absolute addresses. CaseTable itself is a thin
// accessor over whatever operand slice it's given.
type CaseTable struct {
	instr Instruction
}

// NewCaseTable wraps a decoded CASETBL instruction. It panics if instr
// is not a CASETBL — this is a programmer error, never a data error,
// since the decoder is the only place CaseTable values are constructed.
func NewCaseTable(instr Instruction) CaseTable {
	if instr.Opcode != opcode.CASETBL {
		panic("decode: NewCaseTable called on a non-CASETBL instruction")
	}
	return CaseTable{instr: instr}
}

// NumCases returns the number of (value, address) records, not
// counting the default target.
func (ct CaseTable) NumCases() int {
	if len(ct.instr.Operands) == 0 {
		return 0
	}
	return int(ct.instr.Operands[0])
}

// DefaultAddress returns the address control transfers to when PRI
// matches none of the case values.
func (ct CaseTable) DefaultAddress() amx.Cell {
	return ct.instr.Operand(1)
}

// Value returns the i-th case's compare value, 0 <= i < NumCases().
func (ct CaseTable) Value(i int) amx.Cell {
	return ct.instr.Operand(2 + 2*i)
}

// Address returns the i-th case's jump target, 0 <= i < NumCases().
func (ct CaseTable) Address(i int) amx.Cell {
	return ct.instr.Operand(2 + 2*i + 1)
}
