// Package caller resolves the command line of the process issuing a
// filesystem request, for matching against caller-scoped contexts.
package caller

// Resolver maps a process id to its command line. An empty string means
// the process could not be inspected; callers degrade to match-all
// contexts rather than treating that as an error.
type Resolver interface {
	Cmdline(pid int) string
}

// New returns the platform resolver: /proc-backed on Linux, empty
// everywhere else.
func New() Resolver {
	return newPlatformResolver()
}

// Fixed answers every lookup with the same command line. Used by dry-run
// tooling and tests.
type Fixed string

// Cmdline implements Resolver.
func (f Fixed) Cmdline(int) string { return string(f) }

// joinCmdline renders a raw argv block as one string. Every NUL becomes
// a space, including the block's trailing terminator, so a one-argument
// process reads as "name " with a trailing space. Caller patterns are
// written against exactly this form.
func joinCmdline(raw []byte) string {
	out := make([]byte, len(raw))
	for i, c := range raw {
		if c == 0 {
			c = ' '
		}
		out[i] = c
	}
	return string(out)
}
