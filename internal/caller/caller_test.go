package caller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinCmdline(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"empty", nil, ""},
		{"single arg keeps trailing space", []byte("myapp\x00"), "myapp "},
		{"multiple args", []byte("tail\x00-f\x00/var/log/syslog\x00"), "tail -f /var/log/syslog "},
		{"no terminator", []byte("bare"), "bare"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinCmdline(tt.raw))
		})
	}
}

func TestFixed(t *testing.T) {
	f := Fixed("vim main.go ")
	assert.Equal(t, "vim main.go ", f.Cmdline(1))
	assert.Equal(t, "vim main.go ", f.Cmdline(99999))
}
