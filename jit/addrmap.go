package jit

import (
	"sort"

	"amxjit/amx"
)

// addrMapEntry is one (amx_address, machine_offset) pair recorded while
// translating. machine_offset is relative to the output buffer start;
// it is only turned into an absolute pointer when the map is written
// out to the Runtime Block's address-map region at publication time.
type addrMapEntry struct {
	addr   amx.Cell
	offset int32
}

// addressMap is the in-progress instr_table (spec.md §3/§4.4): built by
// the Translator as it emits one entry per decoded instruction, in AMX
// address order (since the Decoder walks the code section once, in
// order). That makes the map sorted by construction in both directions
// — no separate sort step is needed, just the invariant check a test
// can assert.
type addressMap struct {
	entries []addrMapEntry
}

func (m *addressMap) record(addr amx.Cell, offset int32) {
	m.entries = append(m.entries, addrMapEntry{addr: addr, offset: offset})
}

func (m *addressMap) len() int { return len(m.entries) }

// sorted reports whether entries are strictly ascending by AMX address,
// the invariant spec.md §8 property 1 requires.
func (m *addressMap) sorted() bool {
	return sort.SliceIsSorted(m.entries, func(i, j int) bool {
		return m.entries[i].addr < m.entries[j].addr
	})
}

// lookup finds the machine-code offset for an AMX address, the
// direction the exec trampoline and SCTRL/jump lowering need.
func (m *addressMap) lookup(addr amx.Cell) (int32, bool) {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].addr >= addr })
	if i < len(m.entries) && m.entries[i].addr == addr {
		return m.entries[i].offset, true
	}
	return 0, false
}

// reverseLookup finds the AMX address for a machine-code offset, the
// direction a debugger or crash handler needs (spec.md §8 property 5).
func (m *addressMap) reverseLookup(offset int32) (amx.Cell, bool) {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].offset >= offset })
	if i < len(m.entries) && m.entries[i].offset == offset {
		return m.entries[i].addr, true
	}
	return 0, false
}

// writeTo serializes the map into the address-map region of buf
// (immediately following the Runtime Block), translating each
// machine-code offset into an absolute pointer using base. It returns
// the number of bytes written.
func (m *addressMap) writeTo(buf []byte, base uint32) int {
	for i, e := range m.entries {
		off := addrMapBase + i*addrMapEntrySize
		writeWord(buf, off, uint32(e.addr))
		writeWord(buf, off+wordSize, base+uint32(e.offset))
	}
	return len(m.entries) * addrMapEntrySize
}
