package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rewritefs/rewritefs/internal/caller"
	"github.com/rewritefs/rewritefs/internal/config"
	"github.com/rewritefs/rewritefs/internal/rewrite"
)

// newResolveCmd is the dry-run debugging aid: resolve one path as if a
// given caller had requested it and print the decision. Run with -v 3
// or 4 to see the context/rule trace on stderr.
func newResolveCmd() *cobra.Command {
	var (
		root      string
		callerCmd string
	)

	cmd := &cobra.Command{
		Use:   "resolve PATH",
		Short: "Resolve one virtual path against a rule file without mounting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.HasPrefix(path, "/") {
				return fmt.Errorf("path must begin with /")
			}

			configFile, verbosity := rootFlags(cmd.Root().PersistentFlags())

			rs := &rewrite.Ruleset{}
			if configFile != "" {
				var err error
				if rs, err = config.LoadRules(configFile); err != nil {
					return err
				}
			}

			log := newLoggerTo(cmd.ErrOrStderr(), verbosity)
			engine := rewrite.NewEngine(strings.TrimSuffix(root, "/"), rs, rewrite.Options{
				Caller: caller.Fixed(callerCmd),
				Logger: log,
			})

			resolved, err := engine.Resolve(cmd.Context(), rewrite.Request{Path: path})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resolved)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "backing root the result is placed under")
	cmd.Flags().StringVar(&callerCmd, "caller", "", "command line to match caller contexts against")
	return cmd
}
