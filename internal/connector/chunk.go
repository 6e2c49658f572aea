package connector

import (
	"fmt"
	"strings"
)

// indicatorReserve is the worst-case width of a " [i/N]" indicator
// reserved out of every chunk's budget once chunking is known to occur
//.
const indicatorReserve = 8

// ChunkText splits text to fit a platform's per-message character limit,
// preferring (in order) paragraph breaks, line breaks, sentence ends, and
// finally a hard cut. When more than one chunk results, every chunk gets a
// " [i/N]" indicator appended, built from the indicator-reserved budget.
func ChunkText(text string, limit int) []string {
	if limit <= 0 {
		limit = 4096
	}
	if len(text) <= limit {
		return []string{text}
	}

	budget := limit - indicatorReserve
	if budget <= 0 {
		budget = limit
	}

	raw := splitToBudget(text, budget)
	if len(raw) <= 1 {
		return raw
	}

	out := make([]string, len(raw))
	for i, chunk := range raw {
		out[i] = fmt.Sprintf("%s [%d/%d]", chunk, i+1, len(raw))
	}
	return out
}

func splitToBudget(text string, budget int) []string {
	var chunks []string
	remaining := text

	for len(remaining) > budget {
		cut := bestSplitPoint(remaining, budget)
		chunk := strings.TrimRight(remaining[:cut], "\n ")
		if chunk == "" {
			chunk = remaining[:budget]
			cut = budget
		}
		chunks = append(chunks, chunk)
		remaining = strings.TrimLeft(remaining[cut:], "\n ")
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

// bestSplitPoint finds the split index within [0, budget] preferring, in
// order: a paragraph break ("\n\n"), a line break ("\n"), a sentence end
// (". ", "! ", "? "), falling back to the hard budget limit.
func bestSplitPoint(s string, budget int) int {
	window := s
	if len(window) > budget {
		window = window[:budget]
	}

	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return idx + 2
	}
	if idx := strings.LastIndex(window, "\n"); idx > 0 {
		return idx + 1
	}
	for _, sep := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return idx + len(sep)
		}
	}
	return len(window)
}
