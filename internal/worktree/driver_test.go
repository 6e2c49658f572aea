package worktree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "fix login bug", "fix-login-bug"},
		{"lowercased", "Fix Login BUG", "fix-login-bug"},
		{"collapses runs", "a!!!b###c", "a-b-c"},
		{"trims dashes", "--hello--", "hello"},
		{"keeps underscores", "add_new_feature", "add_new_feature"},
		{"empty falls back", "", "task"},
		{"only punctuation falls back", "!!!", "task"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeSlug(tt.input))
		})
	}
}

func TestSanitizeSlug_TruncatesAt50(t *testing.T) {
	got := SanitizeSlug(strings.Repeat("a", 80))
	assert.Len(t, got, 50)
}

func TestSanitizeSlug_Idempotent(t *testing.T) {
	inputs := []string{
		"Fix the login bug ASAP!!!",
		strings.Repeat("word ", 30),
		"",
		"already-clean-slug",
	}
	for _, in := range inputs {
		once := SanitizeSlug(in)
		assert.Equal(t, once, SanitizeSlug(once), "input: %q", in)
	}
}
