package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rewritefs/rewritefs/internal/config"
	"github.com/rewritefs/rewritefs/internal/rewrite"
)

func newCheckCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Parse a rule file and print the context/rule table",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := rootFlags(cmd.Root().PersistentFlags())
			if path == "" {
				return fmt.Errorf("a rule file is required (-c)")
			}
			rs, err := config.LoadRules(path)
			if err != nil {
				return err
			}

			switch format {
			case "text":
				writeRuleTable(cmd.OutOrStdout(), rs)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				if err := enc.Encode(dumpRuleset(rs)); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown format %q (want text or yaml)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text|yaml")
	return cmd
}

func writeRuleTable(w io.Writer, rs *rewrite.Ruleset) {
	for ci := range rs.Contexts {
		c := &rs.Contexts[ci]
		if c.Caller != nil {
			fmt.Fprintf(w, "context /%s/%s\n", c.Caller.Raw, c.Caller.Flags)
		} else {
			fmt.Fprintln(w, "context (default)")
		}
		for ri := range c.Rules {
			r := &c.Rules[ri]
			tmpl := r.Template
			if r.Passthrough {
				tmpl = "(don't rewrite)"
			}
			fmt.Fprintf(w, "  /%s/%s -> %s\n", r.Pattern.Raw, r.Pattern.Flags, tmpl)
		}
	}
}

type rulesetDump struct {
	Contexts []contextDump `yaml:"contexts"`
}

type contextDump struct {
	Caller  string     `yaml:"caller,omitempty"`
	Flags   string     `yaml:"flags,omitempty"`
	Default bool       `yaml:"default,omitempty"`
	Rules   []ruleDump `yaml:"rules"`
}

type ruleDump struct {
	Pattern     string `yaml:"pattern"`
	Flags       string `yaml:"flags,omitempty"`
	Template    string `yaml:"template,omitempty"`
	Passthrough bool   `yaml:"passthrough,omitempty"`
}

func dumpRuleset(rs *rewrite.Ruleset) rulesetDump {
	var out rulesetDump
	for ci := range rs.Contexts {
		c := &rs.Contexts[ci]
		cd := contextDump{Default: c.Caller == nil}
		if c.Caller != nil {
			cd.Caller = c.Caller.Raw
			cd.Flags = c.Caller.Flags
		}
		for ri := range c.Rules {
			r := &c.Rules[ri]
			cd.Rules = append(cd.Rules, ruleDump{
				Pattern:     r.Pattern.Raw,
				Flags:       r.Pattern.Flags,
				Template:    r.Template,
				Passthrough: r.Passthrough,
			})
		}
		out.Contexts = append(out.Contexts, cd)
	}
	return out
}
