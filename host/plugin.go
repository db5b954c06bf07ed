// Package host defines the boundary between the JIT core and whatever
// process embeds it: the plugin lifecycle a loader drives, the native
// function registry the core consumes but never owns, and the optional
// guest-exported hooks a module may implement (spec.md §6, "External
// Interfaces" — this package gives that prose concrete Go shapes).
//
// Nothing in this package depends on jit or asmx86; amxjit's core only
// ever sees these as interfaces, the same way GVM's vm package depends
// on HardwareDevice without knowing which concrete device is plugged
// in.
package host

import "amxjit/amx"

// Supports bits a Plugin advertises from Supports(), matching the AMX
// plugin ABI's AMX_SUPPORTS_* flags.
const (
	SupportsVersion  uint32 = 0x0200
	SupportsNativeCB uint32 = 0x10000
)

// AMXFunctions is the set of host-provided entry points a Plugin
// receives at Load time — the table a real AMX host exposes so a plugin
// can call back into it (register natives, raise errors) without
// linking against the host directly.
type AMXFunctions struct {
	// RegisterNatives installs implementations for a module's imported
	// native functions, by name.
	RegisterNatives func(m *amx.Module, impls map[string]amx.NativeCallback) error
}

// Plugin is the lifecycle the core consumes, not defines (spec.md §6):
// a host loads a Plugin once, calls AmxLoad for every module it attaches
// the JIT to, and AmxUnload as each is torn down.
type Plugin interface {
	// Supports reports the capability flags this plugin implements,
	// combined with bitwise or (e.g. SupportsVersion|SupportsNativeCB).
	Supports() uint32

	// Load is called once, before any module is attached, with the
	// host's callback table.
	Load(fns AMXFunctions) error

	// Unload is called once, as the host shuts the plugin down.
	Unload() error

	// AmxLoad attaches the plugin to a freshly loaded module — the point
	// at which a JIT plugin would normally call jit.Compile.
	AmxLoad(m *amx.Module) error

	// AmxUnload detaches the plugin from a module being unloaded.
	AmxUnload(m *amx.Module) error
}

// NativeRegistry resolves an imported native function by name to its
// resolved host address (spec.md §6 explicitly keeps native resolution
// external to the core). The jit package does not consult it; SYSREQ.D
// lowering reads addresses from the module's natives table instead.
type NativeRegistry interface {
	Resolve(name string) (addr amx.Cell, ok bool)
}

// Hooks are optional guest-exported entry points a module may define;
// a host that finds them calls out at the corresponding lifecycle point.
// Both are best-effort: a module with neither symbol simply never
// triggers them.
type Hooks interface {
	// OnJITCompile runs after a successful Compile, before the module
	// receives any exec() calls. Returning false vetoes the compile
	// (the host falls back to whatever non-JIT path it has, if any).
	OnJITCompile(m *amx.Module) bool

	// OnJITError runs when Compile fails.
	OnJITError(m *amx.Module, err error)
}
