// Package status infers an agent's lifecycle state from its terminal
// scrollback and drives the background polling loop that keeps every
// agent's status, snapshot and broadcast frame current.
package status

import (
	"regexp"
	"strings"

	"github.com/agentforge/agentforge/internal/model"
	"github.com/agentforge/agentforge/internal/termtext"
)

const tailWindow = 2000

var (
	waitingInputPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Allow`),
		regexp.MustCompile(`Y/n`),
		regexp.MustCompile(`y/N`),
		regexp.MustCompile(`(?i)yes/no`),
		regexp.MustCompile(`(?i)do you want`),
		regexp.MustCompile(`\[y/n\]`),
		regexp.MustCompile(`\(y/n\)`),
	}
	errorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)error:`),
		regexp.MustCompile(`(?i)fatal:`),
		regexp.MustCompile(`\bFAILED\b`),
	}
	idlePromptPattern = regexp.MustCompile(`[>❯]\s*$|\$\s*$`)
)

// DetectStatus applies priority-ordered inference rules to
// the last ~2000 characters of current, comparing against previous only to
// decide the WORKING case.
func DetectStatus(current, previous string) model.Status {
	tail := termtext.Tail(current, tailWindow)

	for _, p := range waitingInputPatterns {
		if p.MatchString(tail) {
			return model.StatusWaitingInput
		}
	}
	for _, p := range errorPatterns {
		if p.MatchString(tail) {
			return model.StatusError
		}
	}
	if lastLine := lastNonEmptyLine(tail); lastLine != "" && idlePromptPattern.MatchString(lastLine) {
		return model.StatusIdle
	}
	if current != previous {
		return model.StatusWorking
	}
	return model.StatusIdle
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

// ExtractPromptContext returns up to the last 3 lines of ANSI-stripped tail
// ending at the line that matched a WAITING_INPUT pattern, for the rich
// notification sent on a WAITING_INPUT transition.
func ExtractPromptContext(current string) string {
	clean := termtext.StripANSI(current)
	lines := strings.Split(strings.TrimRight(clean, "\n"), "\n")
	n := len(lines)
	if n == 0 {
		return ""
	}
	end := n
search:
	for i := n - 1; i >= 0; i-- {
		for _, p := range waitingInputPatterns {
			if p.MatchString(lines[i]) {
				end = i + 1
				break search
			}
		}
	}
	start := end - 3
	if start < 0 {
		start = 0
	}
	return strings.Join(lines[start:end], "\n")
}

// RegexActivitySummary produces the pure-regex fallback activity summary:
// ANSI-strip, drop noise lines, take the last 15, truncate each to 120.
func RegexActivitySummary(text string) string {
	clean := termtext.StripANSI(text)
	filtered := termtext.FilterNoise(clean)
	if len(filtered) > 15 {
		filtered = filtered[len(filtered)-15:]
	}
	lines := make([]string, len(filtered))
	for i, l := range filtered {
		lines[i] = termtext.Truncate(l, 120)
	}
	return strings.Join(lines, "\n")
}
