package rewrite

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled rule-file regular expression. The PCRE-style
// flags accepted in rule files are translated at compile time; matching
// itself is RE2, so constructs RE2 rejects surface as compile errors with
// the engine's message.
type Pattern struct {
	// Raw is the literal body exactly as written in the rule file, kept
	// for diagnostics and rule-table dumps.
	Raw string

	// Flags holds the flag characters as written, in input order.
	Flags string

	re     *regexp.Regexp
	groups int
}

// CompilePattern compiles a regex literal body with its flag string.
// Recognized flags: i (case-insensitive), x (free-spacing), u (accepted
// for compatibility; the engine is UTF-8 native and needs no mode
// switch). Any other flag character is an error.
func CompilePattern(body, flags string) (*Pattern, error) {
	var caseless, extended bool
	for i := 0; i < len(flags); i++ {
		switch flags[i] {
		case 'i':
			caseless = true
		case 'x':
			extended = true
		case 'u':
		default:
			return nil, fmt.Errorf("unknown flag %q", string(flags[i]))
		}
	}

	src := body
	if extended {
		src = stripFreeSpacing(src)
	}
	if caseless {
		src = "(?i)" + src
	}

	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression: %w", err)
	}

	return &Pattern{
		Raw:    body,
		Flags:  flags,
		re:     re,
		groups: re.NumSubexp(),
	}, nil
}

// Match runs the pattern against subject starting at byte offset at,
// with anchors interpreted relative to that offset. On a match it returns
// capture-group offset pairs absolute within subject, pair 0 being the
// whole match; a nil slice with nil error is a clean non-match. A non-nil
// error reports an engine failure: callers treat it as a non-match for
// control flow but must log it as a warning rather than silently equating
// the two.
func (p *Pattern) Match(subject string, at int) (pairs []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pairs = nil
			err = fmt.Errorf("regexp engine failure matching %q: %v", p.Raw, r)
		}
	}()

	if at < 0 || at > len(subject) {
		return nil, nil
	}
	idx := p.re.FindStringSubmatchIndex(subject[at:])
	if idx == nil {
		return nil, nil
	}
	if at > 0 {
		for i, off := range idx {
			if off >= 0 {
				idx[i] = off + at
			}
		}
	}
	return idx, nil
}

// Groups returns the pattern's capture-group count.
func (p *Pattern) Groups() int { return p.groups }

// String returns the literal body as written in the rule file.
func (p *Pattern) String() string { return p.Raw }

// stripFreeSpacing rewrites a pattern the way PCRE reads one compiled
// with the x flag: unescaped whitespace and #-to-end-of-line comments
// outside character classes are dropped, everything inside a class or
// behind a backslash is kept.
func stripFreeSpacing(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	inClass := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\' && i+1 < len(src):
			b.WriteByte(c)
			i++
			b.WriteByte(src[i])
		case inClass:
			b.WriteByte(c)
			switch {
			case c == ']':
				inClass = false
			case c == '[' && i+1 < len(src) && src[i+1] == ':':
				// [:alpha:] style named classes close with :], not ]
				end := strings.Index(src[i+1:], ":]")
				if end >= 0 {
					b.WriteString(src[i+1 : i+1+end+2])
					i += end + 2
				}
			}
		case c == '[':
			inClass = true
			b.WriteByte(c)
		case c == '#':
			for i+1 < len(src) && src[i+1] != '\n' {
				i++
			}
		case isSpace(c):
			// dropped
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
