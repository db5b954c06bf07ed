package host

import "amxjit/amx"

// MapRegistry is the simplest possible NativeRegistry: a fixed name ->
// address table, the shape a standalone CLI driver needs when it has no
// real plugin host behind it (no dynamic natives, just whatever the
// loaded module already resolved into its own natives table).
type MapRegistry map[string]amx.Cell

// Resolve implements NativeRegistry.
func (r MapRegistry) Resolve(name string) (amx.Cell, bool) {
	addr, ok := r[name]
	return addr, ok
}

// RegistryFromModule builds a MapRegistry from a module's own natives
// table: every native the loader already bound gets a direct entry, so
// the CLI driver's native callback can tell bound natives from unbound
// ones without a separate plugin layer.
func RegistryFromModule(m *amx.Module) MapRegistry {
	reg := make(MapRegistry, m.NumNatives())
	for i := 0; i < m.NumNatives(); i++ {
		if addr := m.NativeAddress(i); addr != 0 {
			reg[m.NativeName(i)] = addr
		}
	}
	return reg
}
