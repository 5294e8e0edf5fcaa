package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		flags   string
		wantErr bool
	}{
		{"no flags", "^foo$", "", false},
		{"case insensitive", "^foo$", "i", false},
		{"free spacing", "^f o o$", "x", false},
		{"unicode accepted", "^foo$", "u", false},
		{"all flags", "foo", "ixu", false},
		{"unknown flag", "foo", "q", true},
		{"unknown flag after known", "foo", "iq", true},
		{"unclosed group", "(foo", "", true},
		{"empty body", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CompilePattern(tt.body, tt.flags)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.body, p.Raw)
			assert.Equal(t, tt.flags, p.Flags)
		})
	}
}

func TestCompilePattern_CaseInsensitive(t *testing.T) {
	ci, err := CompilePattern("^foo$", "i")
	require.NoError(t, err)
	cs, err := CompilePattern("^foo$", "")
	require.NoError(t, err)

	pairs, err := ci.Match("FOO", 0)
	require.NoError(t, err)
	assert.NotNil(t, pairs)

	pairs, err = cs.Match("FOO", 0)
	require.NoError(t, err)
	assert.Nil(t, pairs)
}

func TestCompilePattern_FreeSpacing(t *testing.T) {
	p, err := CompilePattern("^ fo o / (.*) $   # match cache paths", "x")
	require.NoError(t, err)

	pairs, err := p.Match("foo/bar", 0)
	require.NoError(t, err)
	require.NotNil(t, pairs)
	assert.Equal(t, []int{0, 7, 4, 7}, pairs)
}

func TestStripFreeSpacing(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spaces dropped", "a b\tc", "abc"},
		{"newlines dropped", "a\nb", "ab"},
		{"comment dropped", "abc # rest of line", "abc"},
		{"comment ends at newline", "a #x\nb", "ab"},
		{"class keeps spaces", "[a b]c d", "[a b]cd"},
		{"class keeps hash", "[#]a", "[#]a"},
		{"escaped space kept", `a\ b`, `a\ b`},
		{"escaped hash kept", `a\#b`, `a\#b`},
		{"named class", "[[:alpha:] ]", "[[:alpha:] ]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFreeSpacing(tt.in))
		})
	}
}

func TestPattern_MatchAt(t *testing.T) {
	p, err := CompilePattern("^cache/(.*)$", "")
	require.NoError(t, err)

	// Anchored past the leading slash; offsets come back absolute.
	pairs, err := p.Match("/cache/x/y", 1)
	require.NoError(t, err)
	require.NotNil(t, pairs)
	assert.Equal(t, []int{1, 10, 7, 10}, pairs)

	pairs, err = p.Match("/cache/x/y", 0)
	require.NoError(t, err)
	assert.Nil(t, pairs)

	pairs, err = p.Match("ab", 5)
	require.NoError(t, err)
	assert.Nil(t, pairs)
}

func TestPattern_MatchEngineFailure(t *testing.T) {
	p := &Pattern{Raw: "broken"}

	pairs, err := p.Match("anything", 0)
	assert.Nil(t, pairs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine failure")
}

func TestPattern_Groups(t *testing.T) {
	p, err := CompilePattern("(a)(b(c))", "")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Groups())
	assert.Equal(t, "(a)(b(c))", p.String())
}
