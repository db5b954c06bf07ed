package jit

import (
	"reflect"

	"amxjit/amx"
)

// shimAddr returns the host-side entry point sysreq_c_helper /
// sysreq_d_helper calls to actually dispatch a native, once it has
// switched back to the host ABI (spec.md §4.5 steps iii-v). Like
// exec_helper's boundary (unsafe.go), this is a documented
// simplification of what a real cdecl call site would need.
func (tr *Translator) shimAddr(byAddress bool) int32 {
	var fn func(int32) int32
	if byAddress {
		fn = tr.sysreqDShim
	} else {
		fn = tr.sysreqCShim
	}
	return int32(uint32(reflect.ValueOf(fn).Pointer()))
}

// sysreqCShim resolves idx to a native via the Bytecode View's natives
// table and invokes the module's callback, returning the native's
// result. A NOTFOUND condition is signaled by writing amx.Registers.Error
// and returning 0; the caller (sysreq_c_helper) checks that field
// afterward and transfers to halt_helper if it is set.
func (tr *Translator) sysreqCShim(idx int32) int32 {
	name := tr.module.NativeName(int(idx))
	if name == "" || tr.module.Callback == nil {
		tr.module.Registers.Error = amx.ErrNativeNotFound
		return 0
	}
	return tr.invokeNative(idx)
}

// sysreqDShim dispatches by resolved native address rather than index,
// used when direct-call mode (jit_sysreq_d) is enabled and the native's
// address is already known at compile time.
func (tr *Translator) sysreqDShim(addr int32) int32 {
	idx, ok := tr.module.FindNative(addr)
	if !ok || tr.module.Callback == nil {
		tr.module.Registers.Error = amx.ErrNativeNotFound
		return 0
	}
	return tr.invokeNative(int32(idx))
}

func (tr *Translator) invokeNative(idx int32) int32 {
	params := tr.paramsSlice()
	result, err := tr.module.Callback(tr.module, idx, params)
	if err != amx.ErrNone {
		tr.module.Registers.Error = err
		return 0
	}
	return result
}

// paramsSlice views the pushed-argument region of the AMX stack (the
// count cell at amx.stk, followed by one cell per argument) as a Go
// slice, the params_ptr a native callback receives (spec.md §6).
func (tr *Translator) paramsSlice() []amx.Cell {
	numArgs := tr.peekStackCell(0) / 4
	out := make([]amx.Cell, numArgs+1)
	for i := int32(0); i <= numArgs; i++ {
		out[i] = tr.peekStackCell(i * 4)
	}
	return out
}

func (tr *Translator) peekStackCell(byteOffset int32) amx.Cell {
	return tr.module.CellAt(tr.module.Header().Dat + tr.module.Registers.STK + byteOffset)
}
