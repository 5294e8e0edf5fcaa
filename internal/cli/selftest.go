package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rewritefs/rewritefs/internal/caller"
	"github.com/rewritefs/rewritefs/internal/config"
	"github.com/rewritefs/rewritefs/internal/rewrite"
)

// fixtureFile is an operator-authored expectation suite for a rule
// file: each case pins the path one request must resolve to.
type fixtureFile struct {
	Cases []fixtureCase `yaml:"cases"`
}

type fixtureCase struct {
	Name   string `yaml:"name"`
	Caller string `yaml:"caller,omitempty"`
	Path   string `yaml:"path"`
	Want   string `yaml:"want"`
}

func newSelftestCmd() *cobra.Command {
	var (
		root     string
		fixtures string
	)

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run resolution fixtures against a rule file",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := rootFlags(cmd.Root().PersistentFlags())
			if configFile == "" {
				return fmt.Errorf("a rule file is required (-c)")
			}
			if fixtures == "" {
				return fmt.Errorf("a fixture file is required (-f)")
			}

			rs, err := config.LoadRules(configFile)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(fixtures)
			if err != nil {
				return fmt.Errorf("reading fixtures: %w", err)
			}
			var suite fixtureFile
			if err := yaml.Unmarshal(data, &suite); err != nil {
				return fmt.Errorf("parsing fixtures: %w", err)
			}
			if len(suite.Cases) == 0 {
				return fmt.Errorf("fixture file has no cases")
			}

			out := cmd.OutOrStdout()
			failed := 0
			for i, tc := range suite.Cases {
				name := tc.Name
				if name == "" {
					name = fmt.Sprintf("case %d", i+1)
				}
				engine := rewrite.NewEngine(strings.TrimSuffix(root, "/"), rs, rewrite.Options{
					Caller: caller.Fixed(tc.Caller),
				})
				got, err := engine.Resolve(cmd.Context(), rewrite.Request{Path: tc.Path})
				switch {
				case err != nil:
					failed++
					fmt.Fprintf(out, "FAIL %s: %s: %v\n", name, tc.Path, err)
				case got != tc.Want:
					failed++
					fmt.Fprintf(out, "FAIL %s: %s resolved to %s, want %s\n", name, tc.Path, got, tc.Want)
				default:
					fmt.Fprintf(out, "ok   %s: %s -> %s\n", name, tc.Path, got)
				}
			}

			if failed > 0 {
				return &ExitError{code: 1, message: fmt.Sprintf("%d of %d cases failed", failed, len(suite.Cases))}
			}
			fmt.Fprintf(out, "%d cases passed\n", len(suite.Cases))
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "backing root the results are placed under")
	cmd.Flags().StringVarP(&fixtures, "fixtures", "f", "", "YAML fixture file")
	return cmd
}
