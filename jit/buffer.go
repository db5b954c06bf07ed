package jit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Buffer is the output buffer's owning handle (spec.md §9 "Embedded
// absolute pointers"): an anonymous mmap region that starts out
// writable, is filled once by the Translator, and is then made
// executable by Publish. It stays writable after that, since generated
// code keeps writing Runtime Block slots (see Publish). It has no Clone
// or copy method and its zero value is unusable — the only legal way to
// obtain one is newBuffer, which is unexported; code outside this
// package runs a Buffer only through the Program that owns it.
type Buffer struct {
	mem        []byte
	published  bool
	baseForLog uintptr
}

// newBuffer allocates size bytes of anonymous, private, read-write
// memory. size is rounded up by the kernel to a page multiple.
func newBuffer(size int) (*Buffer, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("jit: mmap output buffer: %w", err)
	}
	return &Buffer{mem: mem}, nil
}

// bytes exposes the writable backing slice. Valid only before Publish.
func (b *Buffer) bytes() []byte {
	if b.published {
		panic("jit: write to a published (executable) Buffer")
	}
	return b.mem
}

// liveBytes exposes the backing slice regardless of publish state, for
// the rare post-publish reads Program.Exec needs (the Runtime Block's
// reset_ebp/reset_esp slots, saved and restored around each call to
// support re-entrant exec — spec.md §9 "Re-entrancy of exec"). Unlike
// bytes, this never panics: the buffer stays RW (alongside X) after
// Publish for exactly this reason, see Publish's doc comment.
func (b *Buffer) liveBytes() []byte {
	return b.mem
}

// base returns the buffer's starting address as an integer, the value
// every absolute pointer patched into the Runtime Block and address map
// is computed relative to.
func (b *Buffer) base() uint32 {
	return uint32(uintptr(unsafePointerOf(b.mem)))
}

// Publish makes the buffer executable. After this call, bytes must not
// be used again from Go; the buffer's only legal operation from the Go
// side is invocation through its entry point (exposed by the jit.Program
// that owns it).
//
// The protection is PROT_READ|PROT_WRITE|PROT_EXEC rather than strict
// W^X's PROT_READ|PROT_EXEC: the Runtime Block (rib.go) and address map
// share this same mmap region with the generated code that follows
// them, and exec_helper/sysreq_*_helper write several Runtime Block
// slots (ebp_save, esp_save, amx_ebp, amx_esp) as part of every stack
// swap. mprotect only works at page granularity, and the Block is far
// smaller than a page, so it cannot be split into its own read-only-
// after-setup mapping without relocating it away from the code it
// describes. A real deployment would give the Block its own page;
// this is a documented simplification (see DESIGN.md).
func (b *Buffer) Publish() error {
	if b.published {
		return nil
	}
	if err := unix.Mprotect(b.mem, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("jit: mprotect output buffer executable: %w", err)
	}
	b.published = true
	return nil
}

// Release unmaps the buffer. Called once, when the owning Program is
// torn down (spec.md §3 "Lifecycle").
func (b *Buffer) Release() error {
	if b.mem == nil {
		return nil
	}
	err := unix.Munmap(b.mem)
	b.mem = nil
	return err
}
