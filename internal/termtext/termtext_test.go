package termtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"csi color", "\x1b[31mred\x1b[0m", "red"},
		{"dec private mode", "\x1b[?25lhidden\x1b[?25h", "hidden"},
		{"osc title bel", "\x1b]0;title\x07text", "text"},
		{"osc title st", "\x1b]0;title\x1b\\text", "text"},
		{"charset selection", "\x1b(Btext", "text"},
		{"plain passthrough", "no escapes here", "no escapes here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripANSI(tt.input))
		})
	}
}

func TestFilterNoise(t *testing.T) {
	input := strings.Join([]string{
		"keep me",
		"> ",
		"⠋",
		"──────",
		"===",
		"...",
		"Channelling…",
		"Thinking…",
		"also kept",
	}, "\n")
	assert.Equal(t, []string{"keep me", "also kept"}, FilterNoise(input))
}

func TestTruncate_CountsRunes(t *testing.T) {
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "短い", Truncate("短い文字列", 2))
	assert.Equal(t, "short", Truncate("short", 100))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "cde", Tail("abcde", 3))
	assert.Equal(t, "abc", Tail("abc", 10))
}
