package status

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentforge/agentforge/internal/model"
)

func TestDetectStatus_WaitingInputBeatsError(t *testing.T) {
	output := "Error: boom\nDo you want to proceed?"
	assert.Equal(t, model.StatusWaitingInput, DetectStatus(output, ""))
}

func TestDetectStatus_WaitingInputPatterns(t *testing.T) {
	cases := []string{
		"Allow edit? (y/n)",
		"Overwrite file? [y/n]",
		"Continue? Y/n",
		"Continue? y/N",
		"Proceed? yes/no",
		"Do you want to run this command?",
	}
	for _, tail := range cases {
		assert.Equal(t, model.StatusWaitingInput, DetectStatus(tail, ""), "tail: %q", tail)
	}
}

func TestDetectStatus_ErrorPatterns(t *testing.T) {
	cases := []string{
		"Error: connection refused",
		"fatal: not a git repository",
		"build FAILED after 2s",
	}
	for _, tail := range cases {
		assert.Equal(t, model.StatusError, DetectStatus(tail, ""), "tail: %q", tail)
	}
}

func TestDetectStatus_IdleOnBarePrompt(t *testing.T) {
	assert.Equal(t, model.StatusIdle, DetectStatus("some earlier output\n> ", "different"))
	assert.Equal(t, model.StatusIdle, DetectStatus("ran stuff\n❯ ", "different"))
	assert.Equal(t, model.StatusIdle, DetectStatus("done\nuser@host:~$ ", "different"))
}

func TestDetectStatus_WorkingWhenOutputChanged(t *testing.T) {
	assert.Equal(t, model.StatusWorking, DetectStatus("compiling step 2", "compiling step 1"))
}

func TestDetectStatus_IdleWhenOutputUnchanged(t *testing.T) {
	assert.Equal(t, model.StatusIdle, DetectStatus("same output", "same output"))
}

func TestDetectStatus_OnlyTailIsInspected(t *testing.T) {
	// An error far outside the 2000-char tail window must not fire.
	output := "Error: old failure\n" + strings.Repeat("x", 3000) + "\nstill running"
	assert.Equal(t, model.StatusWorking, DetectStatus(output, ""))
}

func TestExtractPromptContext_ReturnsLastLines(t *testing.T) {
	output := "line one\nline two\nline three\nAllow edit? (y/n)"
	got := ExtractPromptContext(output)
	assert.Equal(t, "line two\nline three\nAllow edit? (y/n)", got)
}

func TestExtractPromptContext_StripsANSI(t *testing.T) {
	output := "\x1b[31mAllow\x1b[0m edit? (y/n)"
	assert.Equal(t, "Allow edit? (y/n)", ExtractPromptContext(output))
}

func TestRegexActivitySummary_DropsNoiseAndTruncates(t *testing.T) {
	long := strings.Repeat("a", 200)
	input := strings.Join([]string{
		"> ",
		"────────────",
		"Channelling…",
		"real work happening",
		long,
	}, "\n")
	got := RegexActivitySummary(input)
	lines := strings.Split(got, "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "real work happening", lines[0])
	assert.Len(t, lines[1], 120)
}

func TestRegexActivitySummary_KeepsLast15Lines(t *testing.T) {
	var in []string
	for i := 0; i < 30; i++ {
		in = append(in, "line")
	}
	got := RegexActivitySummary(strings.Join(in, "\n"))
	assert.Len(t, strings.Split(got, "\n"), 15)
}
