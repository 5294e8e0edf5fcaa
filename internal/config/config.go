// Package config builds the immutable startup configuration: where the
// backing tree lives, where the filesystem is mounted, and the parsed
// rewrite ruleset. A Config is assembled exactly once before serving
// starts and is shared read-only afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rewritefs/rewritefs/internal/rewrite"
)

// Options carries the raw startup inputs as the command line produced
// them, before validation.
type Options struct {
	Root       string
	MountPoint string
	ConfigFile string
	Verbosity  int
	Autocreate bool
	AllowOther bool
	FuseDebug  bool

	// MountOptions are extra -o options handed through to the mount.
	MountOptions []string
}

// Config is the validated startup state. Nothing here is mutated after
// Load returns.
type Config struct {
	// Root is the backing tree, absolute with no trailing slash.
	Root string

	// MountPoint is where the rewritten view is served.
	MountPoint string

	// ConfigFile is the rule file the Ruleset came from, empty when the
	// filesystem runs as a pure passthrough.
	ConfigFile string

	Verbosity  int
	Autocreate bool
	AllowOther bool
	FuseDebug  bool

	MountOptions []string

	Ruleset *rewrite.Ruleset
}

// Load validates the startup inputs and parses the rule file. Any error
// is fatal to startup; there is no partial configuration.
func Load(opts Options) (*Config, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("backing directory is required")
	}
	if opts.MountPoint == "" {
		return nil, fmt.Errorf("mount point is required")
	}

	root, err := canonicalRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	// The rule file must not live under the mount point: every read of
	// it would recurse into the filesystem serving it. The check is a
	// literal prefix test, so siblings like /mnt2 next to a /mnt mount
	// are rejected too; long-standing behavior, kept as is.
	if opts.ConfigFile != "" && strings.HasPrefix(opts.ConfigFile, opts.MountPoint) {
		return nil, fmt.Errorf("rule file %s is inside mount point %s", opts.ConfigFile, opts.MountPoint)
	}

	cfg := &Config{
		Root:         root,
		MountPoint:   opts.MountPoint,
		ConfigFile:   opts.ConfigFile,
		Verbosity:    opts.Verbosity,
		Autocreate:   opts.Autocreate,
		AllowOther:   opts.AllowOther,
		FuseDebug:    opts.FuseDebug,
		MountOptions: opts.MountOptions,
		Ruleset:      &rewrite.Ruleset{},
	}

	if opts.ConfigFile != "" {
		rs, err := LoadRules(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.Ruleset = rs
	}
	return cfg, nil
}

// LoadRules reads and parses one rule file.
func LoadRules(path string) (*rewrite.Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	rs, err := rewrite.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rs, nil
}

// canonicalRoot resolves the backing directory to an absolute symlink-free
// path with no trailing slash, verifying it is a directory.
func canonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving backing directory: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving backing directory: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("backing directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("backing directory %s is not a directory", resolved)
	}
	return strings.TrimSuffix(resolved, "/"), nil
}
