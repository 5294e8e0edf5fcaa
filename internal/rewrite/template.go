package rewrite

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBackref reports a template backreference its rule's pattern cannot
// satisfy. It is an internal-consistency error in the loaded rules, kept
// distinct from ordinary non-match outcomes.
var ErrBackref = errors.New("unsatisfiable template backreference")

// expandTemplate splices capture text into a rule template in one
// left-to-right pass. A backslash followed by digits names a capture
// group of the winning match (pairs, absolute offsets within subject);
// digits are taken greedily, so \12 is group twelve. Any other backslash
// is a literal. Expanded capture text is never rescanned.
func expandTemplate(template, subject string, pairs []int) (string, error) {
	groups := len(pairs)/2 - 1
	var b strings.Builder
	b.Grow(len(template) + 16)

	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '\\' || i+1 >= len(template) || !isDigit(template[i+1]) {
			b.WriteByte(c)
			continue
		}

		j := i + 1
		n := 0
		for j < len(template) && isDigit(template[j]) {
			if n <= groups {
				n = n*10 + int(template[j]-'0')
			}
			j++
		}
		tok := template[i+1 : j]

		if n < 1 || n > groups {
			return "", fmt.Errorf("%w: \\%s, pattern has %d capture groups", ErrBackref, tok, groups)
		}
		start, end := pairs[2*n], pairs[2*n+1]
		if start < 0 {
			return "", fmt.Errorf("%w: group %d did not participate in the match", ErrBackref, n)
		}
		b.WriteString(subject[start:end])
		i = j - 1
	}
	return b.String(), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
