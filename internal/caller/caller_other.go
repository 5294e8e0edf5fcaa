//go:build !linux

package caller

// Proc has no per-process command-line interface to consult on this
// platform; every process reads as empty and caller-scoped contexts
// never match.
type Proc struct{}

func newPlatformResolver() Resolver {
	return Proc{}
}

// Cmdline implements Resolver.
func (Proc) Cmdline(int) string { return "" }
