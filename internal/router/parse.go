package router

import "regexp"

// atPrefixPattern matches a leading "@project[:agent_id]" reference. The
// (?s) flag makes the remainder capture ((.*)) span newlines, since a chat
// message's body is frequently multi-line.
var atPrefixPattern = regexp.MustCompile(`(?s)^@([\w-]+)(?::([\w-]+))?[:\s]\s*(.*)`)

// parseAtPrefix extracts (project, agentID, remainder) from a leading
// "@project[:agent_id] " reference. ok is false when text carries no such
// prefix.
func parseAtPrefix(text string) (project, agentID, remainder string, ok bool) {
	m := atPrefixPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}
