package cli

import "fmt"

// ExitError carries a chosen process exit code out of a command run.
// selftest returns one when fixture cases fail, so scripts can branch
// on the code without scraping the per-case output; main prints the
// message, when present, instead of the generic error rendering.
type ExitError struct {
	code    int
	message string
}

func (e *ExitError) Error() string {
	if e == nil {
		return ""
	}
	if e.message != "" {
		return e.message
	}
	return fmt.Sprintf("exit %d", e.code)
}

// Code returns the exit code the process should end with.
func (e *ExitError) Code() int {
	if e == nil {
		return 1
	}
	return e.code
}

// Message returns the operator-facing text, empty when the code alone
// tells the story.
func (e *ExitError) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}
