// Command amxjit loads a compiled .amx image, compiles it with the JIT,
// and runs either its main entry point or a named public function. It
// is the CLI driver spec.md §2 lists as an external, non-core
// component: a thin cobra/viper shell around jit.Compile/jit.Program.Exec,
// not part of the translator itself.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"amxjit/amx"
	"amxjit/host"
	"amxjit/jit"
	"amxjit/opcode"
)

var (
	cfgFile     string
	publicName  string
	showPublics bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "amxjit [flags] <file.amx>",
		Short:         "Compile and run a Pawn AMX module with the x86-32 JIT",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args[0])
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfgFile, "config", "", "path to an optional config file (toml/yaml/json)")
	// Flag names use underscores rather than the more usual dashes so
	// they line up exactly with Config's mapstructure tags — viper binds
	// a pflag by its literal name, with no dash/underscore folding of its
	// own, and Config.JITSleep etc. need to resolve from flag, env, and
	// config file alike.
	flags.Bool("jit_log", false, "trace compile/exec activity to stderr")
	flags.Bool("jit_sysreq_d", false, "lower SYSREQ via resolved native address instead of index")
	flags.Bool("jit_sleep", false, "preserve the rollback pair across AMX_ERR_SLEEP so jit.Resume can re-enter")
	flags.Uint32("jit_debug", 0, "debug instrumentation level")
	flags.StringVar(&publicName, "public", "", "run this public function instead of the module's main entry point")
	flags.BoolVar(&showPublics, "list-publics", false, "print the module's public functions and exit")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	return root
}

func run(cmd *cobra.Command, v *viper.Viper, path string) error {
	cfg, err := host.LoadConfig(v, cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := host.NewLogger(cfg.JITLog)

	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	module, err := amx.NewModule(image)
	if err != nil {
		return fmt.Errorf("parsing module: %w", err)
	}

	if showPublics {
		for i := 0; i < module.NumPublics(); i++ {
			fmt.Printf("%4d  %s\n", i, module.PublicName(i))
		}
		return nil
	}

	registry := host.RegistryFromModule(module)
	module.RegisterNatives(defaultCallback(registry, log))

	opts := jit.Options{
		SysreqD: cfg.JITSysreqD,
		Sleep:   cfg.JITSleep,
		Debug:   cfg.JITDebug,
	}

	// reloc is nil: a standalone CLI driver has no opcode-remapping table
	// of its own to supply, so decode falls back to the identity mapping
	// (decode.NewDecoder's documented nil behavior).
	var reloc *opcode.RelocationMap

	program, err := jit.Compile(module, reloc, opts, log)
	if err != nil {
		return fmt.Errorf("compiling: %w", err)
	}
	defer program.Release()

	index := jit.ExecMain
	if publicName != "" {
		i, ok := findPublicByName(module, publicName)
		if !ok {
			return fmt.Errorf("no such public function: %s", publicName)
		}
		index = int32(i)
	}

	var retval amx.Cell
	code, err := program.Exec(index, &retval)
	if err != nil {
		return fmt.Errorf("running: %w", err)
	}
	if code != amx.ErrNone {
		return fmt.Errorf("amx runtime error: %s", code)
	}

	fmt.Println(retval)
	return nil
}

// findPublicByName resolves a public function's index by name, the
// lookup cobra's --public flag needs before it can hand an index to
// Program.Exec.
func findPublicByName(m *amx.Module, name string) (int, bool) {
	for i := 0; i < m.NumPublics(); i++ {
		if m.PublicName(i) == name {
			return i, true
		}
	}
	return 0, false
}

// defaultCallback is the native dispatcher a standalone CLI driver
// installs when no plugin host is present: it reports every call
// unresolved, since a bare loader has no natives of its own to
// implement, and logs a warning when reg has no entry for the native's
// name. A real host replaces this with one that actually dispatches
// into registered plugins (host.Plugin's AMXFunctions.RegisterNatives).
func defaultCallback(reg host.NativeRegistry, log interface {
	Warnf(string, ...any)
}) amx.NativeCallback {
	return func(m *amx.Module, index int32, params []amx.Cell) (amx.Cell, amx.ErrorCode) {
		name := m.NativeName(int(index))
		if _, ok := reg.Resolve(name); !ok {
			log.Warnf("amxjit: call to unimplemented native %q", name)
		}
		return 0, amx.ErrNativeNotFound
	}
}
