// Package rewrite implements the path-rewriting rule engine behind the
// mount point: a rule-file parser, a regexp adapter, and a resolver that
// maps each virtual path seen by the filesystem to the real path that
// should serve it, optionally conditioned on the requesting process.
package rewrite

// Rule pairs a path pattern with a rewrite template. Patterns are matched
// against the request path with its leading slash stripped. A passthrough
// rule matches but leaves the path pointing into the backing tree
// unchanged.
type Rule struct {
	Pattern     *Pattern
	Template    string
	Passthrough bool
}

// Context groups rules under an optional caller pattern, matched against
// the command line of the requesting process. A nil Caller applies to
// every process.
type Context struct {
	Caller *Pattern
	Rules  []Rule
}

// Ruleset is a parsed rule file. Contexts keep declaration order; the
// implicit default context is always first, holding any rules declared
// before the first context line.
type Ruleset struct {
	Contexts []Context
}

// Request carries one resolution's inputs. It lives for a single
// filesystem operation.
type Request struct {
	// Path is the virtual path as seen on the mount point, beginning
	// with a slash.
	Path string

	// PID identifies the requesting process for caller-scoped contexts.
	PID int

	// UID and GID are the requesting identity, used only when parent
	// directories are auto-created.
	UID uint32
	GID uint32
}
