package lifecycle

import (
	"fmt"
	"sort"
	"strings"
)

// shellEscape wraps s in single quotes, escaping any embedded single quote
// per the standard sh idiom 'it'\''s'.
func shellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// composeLaunchCommand joins claude_env exports (sorted for determinism),
// then the configured tool command, then --append-system-prompt with the
// profile's system prompt if any.
func composeLaunchCommand(claudeCommand string, claudeEnv map[string]string, systemPrompt string) string {
	cmd := claudeCommand
	if strings.TrimSpace(systemPrompt) != "" {
		cmd = fmt.Sprintf("%s --append-system-prompt %s", cmd, shellEscape(strings.TrimSpace(systemPrompt)))
	}

	if len(claudeEnv) == 0 {
		return cmd
	}

	keys := make([]string, 0, len(claudeEnv))
	for k := range claudeEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var exports strings.Builder
	for _, k := range keys {
		exports.WriteString(fmt.Sprintf("export %s=%s && ", k, shellEscape(claudeEnv[k])))
	}
	return exports.String() + cmd
}
