package host

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is the ambient configuration surface the CLI driver and any
// embedding host bind through viper — a config file, environment
// variables (AMXJIT_*), or flags, in that order of increasing priority, the
// same layering viper's own docs describe and the pack's go.mod commits
// to by depending on it at all.
type Config struct {
	// JITLog turns on per-module compile/exec tracing at debug level.
	JITLog bool `mapstructure:"jit_log"`

	// JITSysreqD selects SYSREQ.D lowering over SYSREQ.C wherever the
	// module's natives table already holds a nonzero address for the
	// native at compile time. A SYSREQ.D call site passes that address to
	// the host shim, which maps it back to the native's index and
	// dispatches through amx.Module.Callback, as SYSREQ.C does; the
	// address itself is never called. Off by default.
	JITSysreqD bool `mapstructure:"jit_sysreq_d"`

	// JITSleep enables the AMX_ERR_SLEEP extension (spec.md §4.5
	// "(added)"): exec_helper preserves its rollback pair across a sleep
	// fault instead of discarding it, so a later jit.Resume can re-enter
	// at the saved CIP. Off by default — most hosts never suspend a
	// script mid-execution.
	JITSleep bool `mapstructure:"jit_sleep"`

	// JITDebug is the debug instrumentation setting. Any nonzero value
	// makes BREAK lower to an int3 trap; with 0, BREAK emits nothing. No
	// other lowering reads it, and no debug log lines are emitted for it.
	JITDebug uint32 `mapstructure:"jit_debug"`
}

// DefaultConfig returns the zero-value configuration: every extension
// off, as spec.md requires for anything marked "(added)".
func DefaultConfig() Config {
	return Config{}
}

// LoadConfig builds a viper instance bound to Config's fields, reading
// from (in increasing priority) a config file named cfgFile if non-empty,
// environment variables prefixed AMXJIT_, and whatever flags the caller
// has already bound into v (the CLI driver binds cobra's pflag.FlagSet
// into the same viper instance before calling this).
func LoadConfig(v *viper.Viper, cfgFile string) (Config, error) {
	v.SetEnvPrefix("amxjit")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
