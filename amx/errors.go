package amx

import "fmt"

// ErrorCode is the error-code type that crosses the exec() boundary to
// the host, and that HALT/BOUNDS/etc. write into Registers.Error.
// Numeric values match the reference AMX interpreter so guest code that
// inspects error codes observes identical behavior whether run by the
// JIT or by a correct interpreter.
type ErrorCode int32

// AMX error codes, per the reference interpreter.
const (
	ErrNone           ErrorCode = 0
	ErrExit           ErrorCode = 1
	ErrAssert         ErrorCode = 2
	ErrStackErr       ErrorCode = 3
	ErrBounds         ErrorCode = 4
	ErrMemAccess      ErrorCode = 5
	ErrInvInstr       ErrorCode = 6
	ErrStackLow       ErrorCode = 7
	ErrHeapLow        ErrorCode = 8
	ErrCallbackErr    ErrorCode = 9
	ErrNativeNotFound ErrorCode = 10
	ErrDivide         ErrorCode = 11
	ErrSleep          ErrorCode = 12
	ErrInvState       ErrorCode = 13
	ErrIndex          ErrorCode = 16
	ErrDebug          ErrorCode = 20
	ErrInit           ErrorCode = 23
	ErrUserData       ErrorCode = 24
	ErrInitJIT        ErrorCode = 25
	ErrParams         ErrorCode = 26
	ErrDomain         ErrorCode = 27
	ErrGeneral        ErrorCode = 28

	// ErrNotFound is the core's name for "unresolved native at a SYSREQ
	// call site" and "no such public index" alike, matching spec.md's
	// prose use of a single NOTFOUND outcome for both; it is the same
	// numeric value as ErrNativeNotFound.
	ErrNotFound ErrorCode = ErrNativeNotFound
)

var errorNames = map[ErrorCode]string{
	ErrNone:           "no error",
	ErrExit:           "forced exit",
	ErrAssert:         "assertion failed",
	ErrStackErr:       "stack/heap collision",
	ErrBounds:         "index out of bounds",
	ErrMemAccess:      "invalid memory access",
	ErrInvInstr:       "invalid instruction",
	ErrStackLow:       "stack underflow",
	ErrHeapLow:        "heap underflow",
	ErrCallbackErr:    "native function failed",
	ErrNativeNotFound: "native function not found",
	ErrDivide:         "divide by zero",
	ErrSleep:          "go into sleepmode - code can be restarted",
	ErrInvState:       "invalid state for this access",
	ErrIndex:          "index out of range, or bad public index",
	ErrDebug:          "debugger cannot run",
	ErrInit:           "AMX not initialized",
	ErrUserData:       "unable to set user data field",
	ErrInitJIT:        "cannot initialize the JIT",
	ErrParams:         "parameter error",
	ErrDomain:         "domain error, expression result does not fit in range",
	ErrGeneral:        "general error (unknown or unspecific error)",
}

func (e ErrorCode) String() string {
	if name, ok := errorNames[e]; ok {
		return name
	}
	return fmt.Sprintf("amx error %d", int32(e))
}
