package jit

import (
	"amxjit/amx"
	"amxjit/asmx86"
)

// labelTable maps AMX code addresses to assembler labels, allocating
// each one on first reference or when its instruction is emitted,
// whichever comes first (spec.md §3 "Labels"). A branch encountered
// before its target has been emitted gets an unbound label; the label is
// bound once the Translator reaches and emits the target instruction. A
// branch to an already-emitted address finds its label already bound.
type labelTable struct {
	byAddr map[amx.Cell]*asmx86.Label
	asm    *asmx86.Assembler
}

func newLabelTable(asm *asmx86.Assembler) *labelTable {
	return &labelTable{byAddr: make(map[amx.Cell]*asmx86.Label), asm: asm}
}

// labelFor returns the label for addr, creating it if this is the first
// reference.
func (lt *labelTable) labelFor(addr amx.Cell) *asmx86.Label {
	if l, ok := lt.byAddr[addr]; ok {
		return l
	}
	l := lt.asm.NewLabel()
	lt.byAddr[addr] = l
	return l
}

// bind binds the label for addr at the assembler's current position,
// creating it first if no branch has referenced addr yet, so that a
// later backward branch to addr finds it already bound.
func (lt *labelTable) bind(addr amx.Cell) {
	lt.asm.Bind(lt.labelFor(addr))
}

// unbound returns every referenced-but-never-emitted AMX address,
// i.e. a branch to an address outside the code section. A non-empty
// result fails compilation (spec.md §4.3 "Label management").
func (lt *labelTable) unbound() []amx.Cell {
	var out []amx.Cell
	for addr, l := range lt.byAddr {
		if !l.Bound() {
			out = append(out, addr)
		}
	}
	return out
}
