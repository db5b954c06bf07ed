// Package amx provides a typed, read-only view over a loaded AMX module:
// the compiled-program image produced by the Pawn compiler, consisting of
// a header, a code section, a data section, and tables of public and
// native functions.
//
// This package only interprets the in-memory layout of a module that has
// already been loaded into a byte slice; it does not read or validate any
// on-disk container format. That remains the host's job.
package amx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unsafe"
)

// Cell is the 32-bit signed integer word of the AMX. All AMX addresses
// are cell-valued offsets relative to either the code or data section,
// never host pointers.
type Cell = int32

// headerSize is the size in bytes of the fixed portion of AMX_HEADER, up
// to and including the "libraries" field. Everything after that (name
// table, tags) is not needed by the core.
const headerSize = 56

// Header mirrors the fixed prefix of AMX_HEADER as produced by the Pawn
// compiler. Cod, Dat, Hea, Stp and the table fields (Publics through
// NameTable) are offsets relative to the start of the module image; Cip
// is relative to the start of the code section (see NewModule).
type Header struct {
	Size       uint32
	Magic      uint16
	FileVers   uint8
	AmxVers    uint8
	Flags      uint16
	DefSize    uint16
	Cod        int32 // start of the code section
	Dat        int32 // start of the data section
	Hea        int32 // initial heap low-water mark
	Stp        int32 // stack/heap top (capacity)
	Cip        int32 // main entry point, or 0
	Publics    int32 // start of the publics table
	Natives    int32 // start of the natives table
	Libraries  int32 // terminator for the natives table
	Pubvars    int32
	Tags       int32
	NameTable  int32
}

const (
	flagNTVREG = 0x1000
	flagDebug  = 0x0002
)

// entryRecord is the common {address, name_offset} shape shared by the
// publics and natives tables.
type entryRecord struct {
	Address int32
	NameOfs int32
}

const entryRecordSize = 8

// Module is the Bytecode View: a typed, read-only accessor over a loaded
// AMX program image. It never mutates the underlying bytes and it never
// owns them — the image is borrowed from the host for as long as the
// Module is alive.
type Module struct {
	image []byte
	hdr   Header

	// Registers holds the live AMX CPU state: PRI/ALT/FRM/STK/HEA/CIP and
	// friends. Unlike the header and tables, this is mutated during
	// execution — by generated code directly, and by the core between
	// exec() calls.
	Registers Registers

	// Callback is the host-installed native dispatcher. Compile does not
	// check it; if it is nil, a SYSREQ that no intrinsic covers fails at
	// run time with ErrNativeNotFound.
	Callback NativeCallback
}

// NativeCallback is the host-installed native dispatcher invoked at a
// SYSREQ call site: spec.md §3's "callback function pointer for native
// dispatch" and §6's "amx.callback... invoked with (amx_ptr, index,
// result_cell_ptr, params_ptr)", expressed as a Go closure instead of a
// raw function pointer. params holds the pushed arguments exactly as
// the guest's PUSH sequence left them on the AMX stack, count cell
// included at params[0].
type NativeCallback func(m *Module, index int32, params []Cell) (result Cell, err ErrorCode)

// Registers is the runtime-visible portion of the AMX state. Field names
// follow the AMX specification (PRI/ALT/FRM/STK/HEA/CIP) rather than Go
// convention, because that is the vocabulary every opcode lowering in
// this module is written against.
type Registers struct {
	PRI        Cell
	ALT        Cell
	FRM        Cell
	STK        Cell
	HEA        Cell
	CIP        Cell
	ParamCount int32
	Error      ErrorCode
	Flags      uint16
}

var (
	// ErrTruncated is returned when the image is shorter than its own
	// header claims, or a table read would run past the image end.
	ErrTruncated = errors.New("amx: truncated module image")
	// ErrBadHeader is returned when the header fails the invariants this
	// package relies on (cod < dat <= hea <= stp, tables inside
	// [publics, libraries)).
	ErrBadHeader = errors.New("amx: header invariants violated")
)

// NewModule parses the fixed header prefix of image and returns a Module
// view over it. image is borrowed: the Module must not outlive it, and
// the core never copies or relocates it.
func NewModule(image []byte) (*Module, error) {
	if len(image) < headerSize {
		return nil, ErrTruncated
	}

	var h Header
	r := binary.LittleEndian
	h.Size = r.Uint32(image[0:4])
	h.Magic = r.Uint16(image[4:6])
	h.FileVers = image[6]
	h.AmxVers = image[7]
	h.Flags = r.Uint16(image[8:10])
	h.DefSize = r.Uint16(image[10:12])
	h.Cod = int32(r.Uint32(image[12:16]))
	h.Dat = int32(r.Uint32(image[16:20]))
	h.Hea = int32(r.Uint32(image[20:24]))
	h.Stp = int32(r.Uint32(image[24:28]))
	h.Cip = int32(r.Uint32(image[28:32]))
	h.Publics = int32(r.Uint32(image[32:36]))
	h.Natives = int32(r.Uint32(image[36:40]))
	h.Libraries = int32(r.Uint32(image[40:44]))
	h.Pubvars = int32(r.Uint32(image[44:48]))
	h.Tags = int32(r.Uint32(image[48:52]))
	h.NameTable = int32(r.Uint32(image[52:56]))

	if h.Cod >= h.Dat || h.Dat > h.Hea || h.Hea > h.Stp {
		return nil, fmt.Errorf("%w: cod=%d dat=%d hea=%d stp=%d", ErrBadHeader, h.Cod, h.Dat, h.Hea, h.Stp)
	}
	if h.Publics > h.Natives || h.Natives > h.Libraries {
		return nil, fmt.Errorf("%w: publics=%d natives=%d libraries=%d", ErrBadHeader, h.Publics, h.Natives, h.Libraries)
	}
	// Cip, like PublicAddress/NativeAddress, is code-relative (an offset
	// from Cod, not an absolute file offset) — matching the decoder's own
	// addressing (decode.Decoder's ip starts at 0 at the first code byte)
	// so it can be used directly as an address-map lookup key.
	if h.Cip != 0 && (h.Cip < 0 || h.Cip >= h.Dat-h.Cod) {
		return nil, fmt.Errorf("%w: cip=%d out of code range [0,%d)", ErrBadHeader, h.Cip, h.Dat-h.Cod)
	}

	m := &Module{image: image, hdr: h}
	m.Registers.STK = h.Stp
	m.Registers.HEA = h.Hea
	m.Registers.CIP = h.Cip
	m.Registers.Flags = h.Flags
	return m, nil
}

// Header returns a copy of the parsed module header.
func (m *Module) Header() Header { return m.hdr }

// CodeBase returns the offset of the start of the code section, relative
// to the module image.
func (m *Module) CodeBase() int32 { return m.hdr.Cod }

// DataBase returns the offset of the start of the data section, relative
// to the module image (header.Dat). The data section always lives in the
// same image as the code.
func (m *Module) DataBase() int32 { return m.hdr.Dat }

// Code returns the code section as a byte slice.
func (m *Module) Code() []byte {
	end := m.hdr.Dat
	if end > int32(len(m.image)) {
		end = int32(len(m.image))
	}
	return m.image[m.hdr.Cod:end]
}

// DataPointer returns the absolute host address of the data section's
// first byte. Generated code loads this once, at the start of a
// generated-code entry, into the register that plays the role of
// data_base for the remainder of that entry (spec.md §4.3's register
// convention: "ebx = data_base (constant for the duration of one
// generated-code entry)").
func (m *Module) DataPointer() uintptr {
	return uintptr(unsafe.Pointer(&m.image[m.hdr.Dat]))
}

// RegistersPointer returns the absolute host address of the live
// register block, the value the Runtime Block's amx_ptr field holds
// (spec.md §3/§4.4).
func (m *Module) RegistersPointer() uintptr {
	return uintptr(unsafe.Pointer(&m.Registers))
}

// CellAt reads one little-endian cell at the given byte offset within
// the module image.
func (m *Module) CellAt(offset int32) Cell {
	return int32(binary.LittleEndian.Uint32(m.image[offset : offset+4]))
}

// SetCellAt writes one little-endian cell at the given byte offset
// within the module image. The data section is the one part of the
// image that is genuinely mutable at run time (arrays, the stack, the
// heap all live there); Module's "read-only Bytecode View" doc comment
// describes the header and tables, not this.
func (m *Module) SetCellAt(offset int32, v Cell) {
	binary.LittleEndian.PutUint32(m.image[offset:offset+4], uint32(v))
}

// PushCell pushes one cell onto the AMX stack: decrements STK by the
// cell width and writes v at the new top. Used by exec() to push the
// synthetic paramcount*sizeof(cell) argument-size cell the RETN calling
// convention requires (spec.md §4.5 step 4).
func (m *Module) PushCell(v Cell) {
	m.Registers.STK -= 4
	m.SetCellAt(m.hdr.Dat+m.Registers.STK, v)
}

// NumPublics returns the number of entries in the publics table.
func (m *Module) NumPublics() int {
	return int((m.hdr.Natives - m.hdr.Publics) / entryRecordSize)
}

// NumNatives returns the number of entries in the natives table.
func (m *Module) NumNatives() int {
	return int((m.hdr.Libraries - m.hdr.Natives) / entryRecordSize)
}

func (m *Module) entry(tableStart int32, index, count int) (entryRecord, bool) {
	if index < 0 || index >= count {
		return entryRecord{}, false
	}
	off := tableStart + int32(index)*entryRecordSize
	return entryRecord{
		Address: m.CellAt(off),
		NameOfs: m.CellAt(off + 4),
	}, true
}

// PublicAddress returns the code-relative entry address of the i-th
// public function, or 0 if i is out of range — callers treat 0 as a
// domain error (no such public), per §4.1.
func (m *Module) PublicAddress(i int) int32 {
	e, ok := m.entry(m.hdr.Publics, i, m.NumPublics())
	if !ok {
		return 0
	}
	return e.Address
}

// PublicName returns the name of the i-th public function, or "" if i is
// out of range.
func (m *Module) PublicName(i int) string {
	e, ok := m.entry(m.hdr.Publics, i, m.NumPublics())
	if !ok {
		return ""
	}
	return m.cString(e.NameOfs)
}

// NativeAddress returns the resolved host address of the i-th native, or
// 0 if unresolved or out of range.
func (m *Module) NativeAddress(i int) int32 {
	e, ok := m.entry(m.hdr.Natives, i, m.NumNatives())
	if !ok {
		return 0
	}
	return e.Address
}

// NativeName returns the name of the i-th native function, or "" if i is
// out of range.
func (m *Module) NativeName(i int) string {
	e, ok := m.entry(m.hdr.Natives, i, m.NumNatives())
	if !ok {
		return ""
	}
	return m.cString(e.NameOfs)
}

func (m *Module) cString(offset int32) string {
	if offset < 0 || int(offset) >= len(m.image) {
		return ""
	}
	end := offset
	for int(end) < len(m.image) && m.image[end] != 0 {
		end++
	}
	return string(m.image[offset:end])
}

// FindPublic returns the index of the public function whose entry
// address equals addr, and whether one was found.
func (m *Module) FindPublic(addr int32) (int, bool) {
	for i := 0; i < m.NumPublics(); i++ {
		if m.PublicAddress(i) == addr {
			return i, true
		}
	}
	return 0, false
}

// FindNative returns the index of the native function whose address
// equals addr, and whether one was found.
func (m *Module) FindNative(addr int32) (int, bool) {
	for i := 0; i < m.NumNatives(); i++ {
		if m.NativeAddress(i) == addr {
			return i, true
		}
	}
	return 0, false
}

// NativesRegistered reports whether the NTVREG flag is set, i.e. every
// native the module imports has been resolved by the host.
func (m *Module) NativesRegistered() bool {
	return m.Registers.Flags&flagNTVREG != 0
}

// RegisterNatives installs cb as the module's native dispatcher and sets
// the NTVREG flag, mirroring what amx_Register does in a reference
// host: exec() refuses to run at all until every native is accounted
// for (see the ErrNotFound check this flag drives). The core does not
// verify that cb actually knows every name in the natives table — that
// mapping is the host's responsibility, same as a real AMX host owns
// its own native resolution.
func (m *Module) RegisterNatives(cb NativeCallback) {
	m.Callback = cb
	m.Registers.Flags |= flagNTVREG
}

// Float32Bits reinterprets a cell's bit pattern as a float32, matching
// the AMX convention that FLOAT opcodes operate on raw bit patterns
// rather than converting numeric value.
func Float32Bits(c Cell) float32 { return math.Float32frombits(uint32(c)) }

// CellFromFloat32 is the inverse of Float32Bits.
func CellFromFloat32(f float32) Cell { return int32(math.Float32bits(f)) }
