// Package asmx86 is a small hand-rolled x86-32 instruction encoder.
//
// It exists because the generated code this project produces is
// position-dependent and never copied (spec.md §1, §9): the Translator
// allocates the output buffer first, then encodes instructions directly
// at their final address, patching only label references. That's a much
// better fit for a direct byte-emitting encoder than for a general
// relocatable assembler — the closest analog in the examined corpus
// (go-interpreter/wagon's native JIT backend) does exactly this rather
// than reach for a full assembler package.
package asmx86

// Register is one of the eight general-purpose 32-bit x86 registers,
// numbered the way ModRM/SIB bytes encode them.
type Register byte

const (
	EAX Register = 0
	ECX Register = 1
	EDX Register = 2
	EBX Register = 3
	ESP Register = 4
	EBP Register = 5
	ESI Register = 6
	EDI Register = 7
)

var registerNames = [8]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"}

func (r Register) String() string {
	if int(r) >= len(registerNames) {
		return "?"
	}
	return registerNames[r]
}

// ByteRegister returns the low 8-bit sub-register name for diagnostics
// (al/cl/dl/bl); only the first four general-purpose registers have one
// without a REX prefix, which x86-32 mode never has.
func (r Register) ByteRegister() string {
	switch r {
	case EAX:
		return "al"
	case ECX:
		return "cl"
	case EDX:
		return "dl"
	case EBX:
		return "bl"
	default:
		return "?"
	}
}

// Mem is a memory operand: either [Base+Disp] when HasBase is true, or
// the absolute address Disp when it is false. AMX's register convention
// (spec.md §4.3) never needs scaled-index addressing, so Mem omits it.
type Mem struct {
	Base    Register
	HasBase bool
	Disp    int32
}

// Indirect builds a [base+disp] memory operand.
func Indirect(base Register, disp int32) Mem {
	return Mem{Base: base, HasBase: true, Disp: disp}
}

// Abs builds an absolute memory operand, used for referencing fixed
// Runtime Block slots and host AMX struct fields by their final address.
func Abs(addr int32) Mem {
	return Mem{HasBase: false, Disp: addr}
}
