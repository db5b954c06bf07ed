package jit

import (
	"unsafe"

	"amxjit/amx"
	"amxjit/asmx86"
)

// Field offsets within amx.Registers, computed from the real struct
// layout rather than hardcoded, so generated code's raw memory accesses
// stay correct if the struct's field order or padding ever changes.
var (
	regOffPRI        = unsafe.Offsetof(amx.Registers{}.PRI)
	regOffALT        = unsafe.Offsetof(amx.Registers{}.ALT)
	regOffFRM        = unsafe.Offsetof(amx.Registers{}.FRM)
	regOffSTK        = unsafe.Offsetof(amx.Registers{}.STK)
	regOffHEA        = unsafe.Offsetof(amx.Registers{}.HEA)
	regOffCIP        = unsafe.Offsetof(amx.Registers{}.CIP)
	regOffParamCount = unsafe.Offsetof(amx.Registers{}.ParamCount)
	regOffError      = unsafe.Offsetof(amx.Registers{}.Error)
	regOffFlags      = unsafe.Offsetof(amx.Registers{}.Flags)
)

// abs32 truncates a host pointer to the 32-bit immediate every emitted
// Abs() operand ultimately is. On the 386 target this design describes,
// uintptr is already 32 bits; running the translator itself on a 64-bit
// host (as this implementation does, for lack of a 386 Go toolchain in
// the reference environment) keeps only the low 32 bits of the pointer.
func abs32(p uintptr) int32 { return int32(uint32(p)) }

// regField returns the absolute-address memory operand for one field of
// module's live register block.
func regField(module *amx.Module, fieldOffset uintptr) asmx86.Mem {
	return asmx86.Abs(abs32(module.RegistersPointer() + fieldOffset))
}

// ribField returns the absolute-address memory operand for one Runtime
// Block slot, given the buffer's base address.
func ribField(base uint32, offset int) asmx86.Mem {
	return asmx86.Abs(int32(base) + int32(offset))
}
