package opcode

// RelocationMap recovers the logical Opcode for a raw on-disk opcode
// cell. Most hosts compile the reference interpreter with plain
// switch-based dispatch, where the on-disk cell already is the logical
// ID and no relocation map is needed. Hosts built with threaded
// dispatch (a goto-table) instead write the *address of the dispatch
// label* into the code stream, so the Decoder needs this table — built
// once per host process, not per module — to map raw cell values back
// to logical opcodes.
type RelocationMap struct {
	byRaw map[int32]Opcode
}

// NewRelocationMap builds a relocation map from a list of raw cell
// values in logical-opcode order, i.e. raw[i] is whatever on-disk value
// the host's interpreter uses for opcode i. This mirrors how a
// threaded-dispatch host would hand the core its goto-table contents.
func NewRelocationMap(raw []int32) *RelocationMap {
	rm := &RelocationMap{byRaw: make(map[int32]Opcode, len(raw))}
	for i, v := range raw {
		rm.byRaw[v] = Opcode(i)
	}
	return rm
}

// Resolve performs the linear-search-by-construction lookup described
// in spec.md §4.2 step 2 (the map itself is small and built once, so a
// plain hash lookup here is the idiomatic equivalent of "linearly
// search the map" — the cost spec.md calls out is paying for relocation
// at all, not any particular data structure). ok is false for a raw
// value this map has no entry for.
func (rm *RelocationMap) Resolve(raw int32) (Opcode, bool) {
	op, ok := rm.byRaw[raw]
	return op, ok
}
