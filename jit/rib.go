// Package jit is the Translator, Runtime Block, address map, and
// trampolines described by spec.md §3/§4.3-4.5: it turns a decoded AMX
// code section into a single buffer of native x86-32 machine code and
// drives execution of that buffer on the host's behalf.
package jit

import "encoding/binary"

// Runtime Block field offsets, in the order spec.md §3 lists them. Every
// field is one 4-byte word (wordSize), the x86-32 pointer width and the
// AMX's own cell width, whatever the host's uintptr size; the Block sits
// word-aligned at offset 0 of the output buffer.
const (
	ribExecPtr        = 0 * wordSize
	ribAmxPtr         = 1 * wordSize
	ribEbpSave        = 2 * wordSize
	ribEspSave        = 3 * wordSize
	ribAmxEbp         = 4 * wordSize
	ribAmxEsp         = 5 * wordSize
	ribResetEbp       = 6 * wordSize
	ribResetEsp       = 7 * wordSize
	ribInstrTablePtr  = 8 * wordSize
	ribInstrTableSize = 9 * wordSize
	// ribDataBase is an implementation extension beyond spec.md §3's
	// listed fields: the constant ebx loads at every generated-code
	// entry (spec.md §4.3 register convention) has to come from
	// somewhere, and the Runtime Block — the one place per-module state
	// already lives — is the natural home for it.
	ribDataBase = 10 * wordSize
	ribSize     = 11 * wordSize
)

// wordSize is the width of one Runtime Block slot: 4 bytes, the x86-32
// pointer width. Every slot access goes through the helpers below, which
// read and write uint32 values, so the slot width is fixed at 4 bytes.
const wordSize = 4

// writeWord writes v into buf at offset off as a wordSize-wide
// little-endian value, matching AMX's own byte order.
func writeWord(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}

func readWord(buf []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(buf[off : off+4])
}

// rib is a thin accessor over the Runtime Block's bytes inside the
// output buffer. It never copies the block; every method reads or
// writes through to buf.
type rib struct {
	buf []byte // the full output buffer; the block occupies buf[:ribSize]
}

func newRIB(buf []byte) rib { return rib{buf: buf} }

func (r rib) setExecPtr(v uint32)        { writeWord(r.buf, ribExecPtr, v) }
func (r rib) setAmxPtr(v uint32)         { writeWord(r.buf, ribAmxPtr, v) }
func (r rib) setInstrTablePtr(v uint32)  { writeWord(r.buf, ribInstrTablePtr, v) }
func (r rib) setInstrTableSize(v uint32) { writeWord(r.buf, ribInstrTableSize, v) }
func (r rib) setDataBase(v uint32)       { writeWord(r.buf, ribDataBase, v) }
func (r rib) setResetEbp(v uint32)       { writeWord(r.buf, ribResetEbp, v) }
func (r rib) setResetEsp(v uint32)       { writeWord(r.buf, ribResetEsp, v) }
func (r rib) setAmxEbp(v uint32)         { writeWord(r.buf, ribAmxEbp, v) }
func (r rib) setAmxEsp(v uint32)         { writeWord(r.buf, ribAmxEsp, v) }
func (r rib) setEbpSave(v uint32)        { writeWord(r.buf, ribEbpSave, v) }
func (r rib) setEspSave(v uint32)        { writeWord(r.buf, ribEspSave, v) }

func (r rib) execPtr() uint32       { return readWord(r.buf, ribExecPtr) }
func (r rib) instrTablePtr() uint32 { return readWord(r.buf, ribInstrTablePtr) }
func (r rib) resetEbp() uint32      { return readWord(r.buf, ribResetEbp) }
func (r rib) resetEsp() uint32      { return readWord(r.buf, ribResetEsp) }
func (r rib) amxEbp() uint32        { return readWord(r.buf, ribAmxEbp) }
func (r rib) amxEsp() uint32        { return readWord(r.buf, ribAmxEsp) }

// addrMapEntrySize is the width of one {amx_address, machine_ptr} record
// in the address map region that immediately follows the Runtime Block.
const addrMapEntrySize = 2 * wordSize

// addrMapBase is the byte offset, within the output buffer, where the
// address map region begins.
const addrMapBase = ribSize
