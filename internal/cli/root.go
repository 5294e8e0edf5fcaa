// Package cli wires the command tree. Commands translate flags and
// arguments into config and engine values and convert errors into exit
// codes; all rewriting logic lives below internal/rewrite.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rewritefs/rewritefs/internal/autocreate"
	"github.com/rewritefs/rewritefs/internal/caller"
	"github.com/rewritefs/rewritefs/internal/config"
	"github.com/rewritefs/rewritefs/internal/passthrough"
	"github.com/rewritefs/rewritefs/internal/rewrite"
)

const mountTimeout = 15 * time.Second

// NewRoot builds the rewritefs command. The root command itself mounts;
// inspection commands sit below it.
func NewRoot(version string) *cobra.Command {
	var (
		configFile string
		verbosity  int
		doCreate   bool
		allowOther bool
		fuseDebug  bool
		options    []string
	)

	cmd := &cobra.Command{
		Use:           "rewritefs SOURCE MOUNTPOINT",
		Short:         "rewritefs: regex path-rewriting passthrough filesystem",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Options{
				Root:         args[0],
				MountPoint:   args[1],
				ConfigFile:   configFile,
				Verbosity:    verbosity,
				Autocreate:   doCreate,
				AllowOther:   allowOther,
				FuseDebug:    fuseDebug,
				MountOptions: options,
			})
			if err != nil {
				return err
			}
			return runMount(cmd.Context(), cfg)
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate("rewritefs {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "rule file path")
	cmd.PersistentFlags().IntVarP(&verbosity, "verbose", "v", 0, "diagnostic verbosity (0-4)")
	cmd.Flags().BoolVar(&doCreate, "autocreate", false, "create missing parent directories of rewritten paths as the caller")
	cmd.Flags().BoolVar(&allowOther, "allow-other", false, "allow other users to access the mount")
	cmd.Flags().BoolVar(&fuseDebug, "fuse-debug", false, "enable FUSE protocol debugging")
	cmd.Flags().StringSliceVarP(&options, "options", "o", nil, "extra mount options")

	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newSelftestCmd())

	return cmd
}

// rootFlags reads the persistent flags shared by every command.
func rootFlags(flags *pflag.FlagSet) (configFile string, verbosity int) {
	configFile, _ = flags.GetString("config")
	verbosity, _ = flags.GetInt("verbose")
	return configFile, verbosity
}

func runMount(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := newLogger(cfg.Verbosity)

	opts := rewrite.Options{
		Caller: caller.New(),
		Logger: log,
	}
	if cfg.Autocreate {
		opts.Creator = autocreate.New(log)
	}
	engine := rewrite.NewEngine(cfg.Root, cfg.Ruleset, opts)

	logRuleTable(ctx, log, cfg)

	mctx, cancel := context.WithTimeout(ctx, mountTimeout)
	m, err := passthrough.MountAt(mctx, cfg, engine, log)
	cancel()
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sig:
			log.LogAttrs(ctx, slog.LevelInfo, "unmounting", slog.String("signal", s.String()))
		case <-ctx.Done():
		}
		if err := m.Unmount(); err != nil {
			log.LogAttrs(ctx, slog.LevelWarn, "unmount failed", slog.Any("error", err))
		}
	}()

	m.Wait()
	return nil
}

// logRuleTable reports the parsed contexts and rules once at startup,
// visible from verbosity 1 up.
func logRuleTable(ctx context.Context, log *slog.Logger, cfg *config.Config) {
	log.LogAttrs(ctx, rewrite.LevelDecision, "serving",
		slog.String("root", cfg.Root),
		slog.String("mountpoint", cfg.MountPoint),
		slog.Bool("autocreate", cfg.Autocreate))
	for ci := range cfg.Ruleset.Contexts {
		c := &cfg.Ruleset.Contexts[ci]
		label := "(default)"
		if c.Caller != nil {
			label = c.Caller.Raw
		}
		for ri := range c.Rules {
			r := &c.Rules[ri]
			tmpl := r.Template
			if r.Passthrough {
				tmpl = "(don't rewrite)"
			}
			log.LogAttrs(ctx, rewrite.LevelDecision, "rule",
				slog.String("context", label),
				slog.String("pattern", r.Pattern.Raw),
				slog.String("template", tmpl))
		}
	}
}
