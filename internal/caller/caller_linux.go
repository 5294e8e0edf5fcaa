//go:build linux

package caller

import (
	"os"
	"strconv"
)

// Proc reads command lines from the proc filesystem.
type Proc struct{}

func newPlatformResolver() Resolver {
	return Proc{}
}

// Cmdline implements Resolver. Unreadable entries, including processes
// that already exited, yield an empty string.
func (Proc) Cmdline(pid int) string {
	raw, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/cmdline")
	if err != nil {
		return ""
	}
	return joinCmdline(raw)
}
