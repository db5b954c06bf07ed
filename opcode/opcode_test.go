package opcode

import "testing"

func TestValidRejectsNoneAndOutOfRange(t *testing.T) {
	if Valid(NONE) {
		t.Fatalf("NONE must not be valid")
	}
	if Valid(numOpcodes) {
		t.Fatalf("numOpcodes is one past the last real opcode")
	}
	if !Valid(PROC) {
		t.Fatalf("PROC must be valid")
	}
}

func TestObsoleteOpcodesAreStillRecognized(t *testing.T) {
	for op := range obsolete {
		if !Valid(op) {
			t.Fatalf("%s is marked obsolete but not a recognized opcode", op)
		}
		if !Obsolete(op) {
			t.Fatalf("Obsolete(%s) should report true", op)
		}
	}
	if Obsolete(PROC) {
		t.Fatalf("PROC must not be obsolete")
	}
}

func TestArityMatchesZeroArityTable(t *testing.T) {
	if CASETBL.Arity() != ArityVariable {
		t.Fatalf("CASETBL should be ArityVariable")
	}
	for op := range zeroArity {
		if op.Arity() != ArityZero {
			t.Fatalf("%s is in zeroArity but Arity() returned %v", op, op.Arity())
		}
	}
	for op := NONE + 1; op < numOpcodes; op++ {
		if op == CASETBL || zeroArity[op] {
			continue
		}
		if op.Arity() != ArityOne {
			t.Fatalf("%s should default to ArityOne, got %v", op, op.Arity())
		}
	}
}

func TestStringUnknownOpcode(t *testing.T) {
	if got := Opcode(-1).String(); got != "???" {
		t.Fatalf("expected ??? for a negative opcode, got %q", got)
	}
	if got := numOpcodes.String(); got != "???" {
		t.Fatalf("expected ??? for numOpcodes, got %q", got)
	}
}

func TestRelocationMapResolve(t *testing.T) {
	// A threaded-dispatch host's goto-table: raw[i] is whatever value
	// that host's interpreter uses in place of logical opcode i.
	raw := make([]int32, numOpcodes)
	for i := range raw {
		raw[i] = int32(i)*16 + 0x1000
	}
	rm := NewRelocationMap(raw)

	op, ok := rm.Resolve(raw[PROC])
	if !ok || op != PROC {
		t.Fatalf("expected to resolve PROC, got op=%s ok=%v", op, ok)
	}

	if _, ok := rm.Resolve(0x7FFFFFFF); ok {
		t.Fatalf("expected an unrecognized raw value to miss")
	}
}
