package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentforge/agentforge/internal/model"
)

const instructionFileName = "CLAUDE.md"
const preservedSeparator = "\n\n---\n\n"

// composeInstructions concatenates, in order: global instructions, project
// instructions, profile instructions, then each configured context file's
// contents framed with its relative path as a heading. An existing
// instruction file already present in the worktree (e.g. committed to the
// repo) is preserved, appended after the generated section with a visible
// separator. If every layer is empty, no file is written.
func composeInstructions(globalInstr string, project model.Project, profile model.Profile, worktreeDir string) (string, error) {
	var sections []string

	if strings.TrimSpace(globalInstr) != "" {
		sections = append(sections, strings.TrimSpace(globalInstr))
	}
	if strings.TrimSpace(project.AgentInstructions) != "" {
		sections = append(sections, strings.TrimSpace(project.AgentInstructions))
	}
	if strings.TrimSpace(profile.Instructions) != "" {
		sections = append(sections, strings.TrimSpace(profile.Instructions))
	}
	for _, relPath := range project.ContextFiles {
		content, err := os.ReadFile(filepath.Join(project.Path, relPath))
		if err != nil {
			continue // missing context file is not fatal; skip it
		}
		sections = append(sections, fmt.Sprintf("## %s\n\n%s", relPath, strings.TrimSpace(string(content))))
	}

	generated := strings.Join(sections, "\n\n")

	existingPath := filepath.Join(worktreeDir, instructionFileName)
	existing, err := os.ReadFile(existingPath)
	hasExisting := err == nil && strings.TrimSpace(string(existing)) != ""

	if generated == "" && !hasExisting {
		return "", nil
	}
	if !hasExisting {
		return generated, nil
	}
	if generated == "" {
		return string(existing), nil
	}
	return generated + preservedSeparator + string(existing), nil
}

// writeInstructions writes the composed CLAUDE.md, doing nothing if content
// is empty.
func writeInstructions(worktreeDir, content string) error {
	if content == "" {
		return nil
	}
	return os.WriteFile(filepath.Join(worktreeDir, instructionFileName), []byte(content), 0o644)
}

// copyEnvFiles copies every `.env*` file from the project root into the
// worktree — intentionally gitignored but required to run the code.
func copyEnvFiles(projectPath, worktreeDir string) error {
	entries, err := os.ReadDir(projectPath)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), ".env") {
			continue
		}
		src := filepath.Join(projectPath, e.Name())
		data, err := os.ReadFile(src)
		if err != nil {
			continue
		}
		_ = os.WriteFile(filepath.Join(worktreeDir, e.Name()), data, 0o600)
	}
	return nil
}
