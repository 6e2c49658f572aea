// Package termtext cleans raw terminal scrollback for both the Status
// Monitor's activity summaries and the Response Extractor's preprocessing
// pass — ANSI stripping and noise-line filtering are shared logic,
// factored out once rather than duplicated per caller.
package termtext

import (
	"regexp"
	"strings"
)

// ansiPattern matches CSI sequences (including DEC private-mode toggles),
// OSC-terminated sequences (ST or BEL terminated), charset-selection
// escapes, and simple single-character ESC sequences.
var ansiPattern = regexp.MustCompile(
	"\x1b\\[[0-9;?]*[a-zA-Z]" + // CSI ... letter
		"|\x1b\\][^\x07\x1b]*(\x07|\x1b\\\\)" + // OSC ... BEL or ST
		"|\x1b[()][0-9A-Za-z]" + // charset selection
		"|\x1b[@-Z\\\\-_]", // simple ESC X
)

// StripANSI removes every recognized escape sequence from s.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[>❯$\s]*$`),                // bare prompt chars
	regexp.MustCompile(`^[\s]*[⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏]+[\s]*$`), // spinner glyphs
	regexp.MustCompile(`^[─=\-]{3,}$`),              // separator lines
	regexp.MustCompile(`^[\s]*[▲▼◀▶→←]+[\s]*$`),     // tool-chrome arrows
	regexp.MustCompile(`^[\s]*\.{2,}[\s]*$`),        // thinking dots
	regexp.MustCompile(`(?i)^\s*channelling…?\s*$`), // "Channelling…"
	regexp.MustCompile(`^\s*\S+…\s*$`),              // single-word "…"-suffixed status
	regexp.MustCompile(`^[\s]*[✢✳✶✽⏺][\s]*$`),       // tool spinner/dot glyphs (extract only, harmless here)
}

// FilterNoise drops lines matching any noise pattern, returning the rest in
// order.
func FilterNoise(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if isNoise(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func isNoise(line string) bool {
	trimmed := strings.TrimRight(line, "\r")
	if strings.TrimSpace(trimmed) == "" {
		return true
	}
	for _, p := range noisePatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// Truncate cuts s to at most n runes, used for per-line truncation in both
// activity summaries (120 chars) and regex-fallback extraction (200 chars).
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Tail returns the last n characters (by byte length, which is adequate for
// the ASCII-heavy terminal output this operates on) of s.
func Tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
