package jit

import (
	"fmt"

	"amxjit/amx"
	"amxjit/decode"
)

// CompileError is returned by Compile when a module cannot be
// translated: either the Decoder rejected an instruction, or the
// Translator itself rejected one during lowering (spec.md §7,
// "Decode errors" and the lowering-time failures it groups alongside
// them — bad LODB.I/STRB.I widths, branches to addresses outside the
// code section).
type CompileError struct {
	// Decode is set when the failure came from the Decoder.
	Decode *decode.Error
	// Address and Reason are set when the failure came from lowering.
	Address amx.Cell
	Reason  string
}

func (e *CompileError) Error() string {
	if e.Decode != nil {
		return e.Decode.Error()
	}
	return fmt.Sprintf("jit: compile error at %#06x: %s", e.Address, e.Reason)
}

func (e *CompileError) Unwrap() error {
	if e.Decode != nil {
		return e.Decode
	}
	return nil
}

func loweringError(addr amx.Cell, format string, args ...any) *CompileError {
	return &CompileError{Address: addr, Reason: fmt.Sprintf(format, args...)}
}
