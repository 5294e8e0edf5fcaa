package rewrite

import "fmt"

// ParseError reports a rule-file problem and the byte offset it was
// detected at. One malformed item aborts the whole parse; there is no
// recovery.
type ParseError struct {
	Offset int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("byte offset %d: %s: %v", e.Offset, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("byte offset %d: %v", e.Offset, e.Err)
	default:
		return fmt.Sprintf("byte offset %d: %s", e.Offset, e.Msg)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads a rule file. Items are comments, context declarations and
// rules, separated by whitespace. The returned Ruleset always begins with
// the implicit default context; rules declared before any context line
// attach to it.
func Parse(data []byte) (*Ruleset, error) {
	p := &parser{data: data}
	rs := &Ruleset{Contexts: []Context{{}}}

	for {
		p.skipBlanks()
		itemStart := p.pos
		c, ok := p.next()
		if !ok {
			return rs, nil
		}

		switch c {
		case '#':
			p.skipComment()

		case '-':
			p.skipBlanks()
			pat, err := p.scanOpenedLiteral()
			if err != nil {
				return nil, err
			}
			ctx := Context{}
			// An empty literal body declares another match-all context.
			if pat.Raw != "" {
				ctx.Caller = pat
			}
			rs.Contexts = append(rs.Contexts, ctx)

		case '/':
			if err := p.scanRule(rs, '/', itemStart); err != nil {
				return nil, err
			}

		case 'm':
			sep, err := p.delim()
			if err != nil {
				return nil, err
			}
			if err := p.scanRule(rs, sep, itemStart); err != nil {
				return nil, err
			}

		default:
			return nil, &ParseError{Offset: itemStart, Msg: fmt.Sprintf("unexpected character %q", string(c))}
		}
	}
}

type parser struct {
	data []byte
	pos  int
}

func (p *parser) next() (byte, bool) {
	if p.pos >= len(p.data) {
		return 0, false
	}
	c := p.data[p.pos]
	p.pos++
	return c, true
}

func (p *parser) skipBlanks() {
	for p.pos < len(p.data) && isSpace(p.data[p.pos]) {
		p.pos++
	}
}

func (p *parser) skipComment() {
	for {
		c, ok := p.next()
		if !ok || c == '\n' {
			return
		}
	}
}

// delim reads the delimiter byte following an m. Any byte but whitespace
// serves.
func (p *parser) delim() (byte, error) {
	at := p.pos
	sep, ok := p.next()
	if !ok {
		return 0, p.eof()
	}
	if isSpace(sep) {
		return 0, &ParseError{Offset: at, Msg: fmt.Sprintf("unexpected character %q after m", string(sep))}
	}
	return sep, nil
}

// scanOpenedLiteral reads a regex literal whose opening character has not
// been consumed yet, as after a context dash.
func (p *parser) scanOpenedLiteral() (*Pattern, error) {
	litStart := p.pos
	c, ok := p.next()
	if !ok {
		return nil, p.eof()
	}
	switch c {
	case '/':
		return p.scanLiteral('/', litStart)
	case 'm':
		sep, err := p.delim()
		if err != nil {
			return nil, err
		}
		return p.scanLiteral(sep, litStart)
	default:
		return nil, &ParseError{Offset: litStart, Msg: fmt.Sprintf("unexpected character %q", string(c))}
	}
}

// scanLiteral reads body and flags of a literal whose delimiter is known
// and compiles the result. litStart is the offset of the literal's first
// byte, used to attribute compile errors.
func (p *parser) scanLiteral(sep byte, litStart int) (*Pattern, error) {
	body, err := p.scanString(sep)
	if err != nil {
		return nil, err
	}

	var flags []byte
	for {
		c, ok := p.next()
		if !ok {
			return nil, p.eof()
		}
		if isSpace(c) {
			break
		}
		switch c {
		case 'i', 'x', 'u':
			flags = append(flags, c)
		default:
			return nil, &ParseError{Offset: p.pos - 1, Msg: fmt.Sprintf("unknown flag %q", string(c))}
		}
	}

	pat, err := CompilePattern(body, string(flags))
	if err != nil {
		return nil, &ParseError{Offset: litStart, Err: err}
	}
	return pat, nil
}

// scanRule reads the remainder of a rule whose literal delimiter is
// already known: the pattern literal, blanks, then the template running
// to end of line. A template of exactly "." marks the rule passthrough.
func (p *parser) scanRule(rs *Ruleset, sep byte, litStart int) error {
	pat, err := p.scanLiteral(sep, litStart)
	if err != nil {
		return err
	}
	p.skipBlanks()
	tmpl, err := p.scanString('\n')
	if err != nil {
		return err
	}

	r := Rule{Pattern: pat}
	if tmpl == "." {
		r.Passthrough = true
	} else {
		r.Template = tmpl
	}
	cur := &rs.Contexts[len(rs.Contexts)-1]
	cur.Rules = append(cur.Rules, r)
	return nil
}

// scanString consumes bytes until an unescaped sep, which is not kept. A
// backslash immediately before sep escapes it: the backslash is dropped,
// the separator kept, and scanning continues. Every other backslash
// passes through unchanged.
func (p *parser) scanString(sep byte) (string, error) {
	var out []byte
	escaped := false
	for {
		c, ok := p.next()
		if !ok {
			return "", p.eof()
		}
		if c == sep {
			if escaped {
				out = out[:len(out)-1]
			} else {
				break
			}
		}
		if c == '\\' {
			escaped = !escaped
		} else {
			escaped = false
		}
		out = append(out, c)
	}
	return string(out), nil
}

func (p *parser) eof() error {
	return &ParseError{Offset: p.pos, Msg: "unexpected end of file"}
}

// isSpace matches the whitespace set the rule-file grammar separates
// items with.
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
