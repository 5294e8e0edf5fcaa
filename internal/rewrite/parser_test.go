package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Empty(t *testing.T) {
	rs, err := Parse(nil)
	require.NoError(t, err)
	require.Len(t, rs.Contexts, 1)
	assert.Nil(t, rs.Contexts[0].Caller)
	assert.Empty(t, rs.Contexts[0].Rules)
}

func TestParse_CommentOnly(t *testing.T) {
	rs, err := Parse([]byte("# nothing but a comment, no trailing newline"))
	require.NoError(t, err)
	require.Len(t, rs.Contexts, 1)
	assert.Empty(t, rs.Contexts[0].Rules)
}

func TestParse_RulesAttachToImplicitDefault(t *testing.T) {
	rs, err := Parse([]byte("/^foo$/ bar\n"))
	require.NoError(t, err)
	require.Len(t, rs.Contexts, 1)
	require.Len(t, rs.Contexts[0].Rules, 1)

	r := rs.Contexts[0].Rules[0]
	assert.Equal(t, "^foo$", r.Pattern.Raw)
	assert.Equal(t, "bar", r.Template)
	assert.False(t, r.Passthrough)
}

func TestParse_ContextsAndRules(t *testing.T) {
	src := `# cache redirection for one program
-/^myapp$/
m!^cache/(.*)$! /tmp/cache/\1
-//
m!^logs/(.*)$! .
`
	rs, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, rs.Contexts, 3)

	assert.Nil(t, rs.Contexts[0].Caller)
	assert.Empty(t, rs.Contexts[0].Rules)

	myapp := rs.Contexts[1]
	require.NotNil(t, myapp.Caller)
	assert.Equal(t, "^myapp$", myapp.Caller.Raw)
	require.Len(t, myapp.Rules, 1)
	assert.Equal(t, "^cache/(.*)$", myapp.Rules[0].Pattern.Raw)
	assert.Equal(t, `/tmp/cache/\1`, myapp.Rules[0].Template)

	// An empty literal body reopens the match-all context.
	def := rs.Contexts[2]
	assert.Nil(t, def.Caller)
	require.Len(t, def.Rules, 1)
	assert.True(t, def.Rules[0].Passthrough)
	assert.Empty(t, def.Rules[0].Template)
}

func TestParse_ContextMDelimiter(t *testing.T) {
	rs, err := Parse([]byte("- m,^vim,\n/^a$/ b\n"))
	require.NoError(t, err)
	require.Len(t, rs.Contexts, 2)
	require.NotNil(t, rs.Contexts[1].Caller)
	assert.Equal(t, "^vim", rs.Contexts[1].Caller.Raw)
	require.Len(t, rs.Contexts[1].Rules, 1)
}

func TestParse_DashTakesNextLiteral(t *testing.T) {
	// Item separation is any whitespace, so a lone dash reads the next
	// line's literal as its caller pattern.
	rs, err := Parse([]byte("-\n/^sh$/\n/^a$/ b\n"))
	require.NoError(t, err)
	require.Len(t, rs.Contexts, 2)
	require.NotNil(t, rs.Contexts[1].Caller)
	assert.Equal(t, "^sh$", rs.Contexts[1].Caller.Raw)
	require.Len(t, rs.Contexts[1].Rules, 1)
}

func TestParse_TemplateRunsToEndOfLine(t *testing.T) {
	rs, err := Parse([]byte("/^a$/\n  spaced template  \n"))
	require.NoError(t, err)
	require.Len(t, rs.Contexts[0].Rules, 1)
	assert.Equal(t, "spaced template  ", rs.Contexts[0].Rules[0].Template)
}

func TestParse_EscapedNewlineJoinsTemplate(t *testing.T) {
	rs, err := Parse([]byte("/^a$/ first\\\nsecond\n"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", rs.Contexts[0].Rules[0].Template)
}

func TestParse_EscapedDelimiter(t *testing.T) {
	rs, err := Parse([]byte(`/^cache\/(.*)$/ /tmp/\1` + "\n"))
	require.NoError(t, err)

	r := rs.Contexts[0].Rules[0]
	assert.Equal(t, "^cache/(.*)$", r.Pattern.Raw)

	pairs, err := r.Pattern.Match("cache/x", 0)
	require.NoError(t, err)
	assert.NotNil(t, pairs)
}

func TestParse_LiteralFlags(t *testing.T) {
	rs, err := Parse([]byte("/^readme$/i .\n"))
	require.NoError(t, err)

	r := rs.Contexts[0].Rules[0]
	assert.Equal(t, "i", r.Pattern.Flags)
	pairs, err := r.Pattern.Match("README", 0)
	require.NoError(t, err)
	assert.NotNil(t, pairs)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		wantOffset int
		wantMsg    string
	}{
		{"unexpected character", "@bad\n", 0, "unexpected character"},
		{"unknown flag", "/a/q .\n", 3, "unknown flag"},
		{"eof in body", "/abc", 4, "unexpected end of file"},
		{"eof in flags", "/a/i", 4, "unexpected end of file"},
		{"eof before template", "/a/ ", 4, "unexpected end of file"},
		{"unterminated template", "/a/ x", 5, "unexpected end of file"},
		{"eof after dash", "-", 1, "unexpected end of file"},
		{"eof after m", "m", 1, "unexpected end of file"},
		{"whitespace delimiter", "m !a! x\n", 1, "unexpected character"},
		{"context needs literal", "- x\n", 2, "unexpected character"},
		{"bad regexp", "/a(/ x\n", 0, "invalid regular expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantOffset, perr.Offset)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParse_ContextFlagsStillValidated(t *testing.T) {
	// The empty body discards the compiled pattern but its flags are
	// checked like any literal's.
	_, err := Parse([]byte("-//q\n/^a$/ b\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}
