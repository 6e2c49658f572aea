// Package worktree wraps `git worktree` as a thin, testable shim over
// the three primitives agent isolation needs: create a worktree on a new
// branch, remove it, delete the branch.
package worktree

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/logging"
)

const cmdTimeout = 30 * time.Second

var nonSlugChar = regexp.MustCompile(`[^a-z0-9_-]+`)
var dashRun = regexp.MustCompile(`-+`)

// SanitizeSlug normalizes task text into a branch slug: lower-case,
// replace every non-[A-Za-z0-9_-] run with a single '-', trim leading and
// trailing '-', truncate to 50 chars, fall back to "task" if empty.
func SanitizeSlug(s string) string {
	s = strings.ToLower(s)
	s = nonSlugChar.ReplaceAllString(s, "-")
	s = dashRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.Trim(s[:50], "-")
	}
	if s == "" {
		return "task"
	}
	return s
}

// Driver shells out to the git binary.
type Driver struct {
	Bin string
	Log *logging.Logger
}

func New(log *logging.Logger) *Driver { return &Driver{Bin: "git", Log: log} }

func (d *Driver) bin() string {
	if d.Bin == "" {
		return "git"
	}
	return d.Bin
}

func (d *Driver) logger() *logging.Logger {
	if d.Log != nil {
		return d.Log
	}
	return logging.Default()
}

func (d *Driver) run(ctx context.Context, dir string, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, cmdTimeout)
	defer cancel()
	cmd := exec.CommandContext(cctx, d.bin(), args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		d.logger().Warn("git command failed",
			zap.Strings("args", args), zap.String("output", string(out)), zap.Error(err))
		return string(out), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, string(out))
	}
	return string(out), nil
}

// CreateWorktree asks git to create a new working tree at worktreePath on a
// newly created branch newBranch rooted at baseBranch.
func (d *Driver) CreateWorktree(ctx context.Context, projectPath, newBranch, baseBranch, worktreePath string) error {
	_, err := d.run(ctx, projectPath, "worktree", "add", "-b", newBranch, worktreePath, baseBranch)
	return err
}

// RemoveWorktree removes a worktree; idempotent — removing an
// already-gone worktree is not an error once `worktree prune` has run.
func (d *Driver) RemoveWorktree(ctx context.Context, projectPath, worktreePath string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, worktreePath)
	if _, err := d.run(ctx, projectPath, args...); err != nil {
		_, _ = d.run(ctx, projectPath, "worktree", "prune")
		if _, statErr := os.Stat(worktreePath); os.IsNotExist(statErr) {
			return nil
		}
		return err
	}
	return nil
}

// DeleteBranch deletes a branch; idempotent — deleting a branch that does
// not exist is logged but not treated as a caller-visible error, mirroring
// best-effort cleanup-on-kill semantics.
func (d *Driver) DeleteBranch(ctx context.Context, projectPath, branch string) error {
	out, err := d.run(ctx, projectPath, "branch", "-D", branch)
	if err != nil && strings.Contains(out, "not found") {
		return nil
	}
	return err
}

// IsGitRepo reports whether path looks like a git repository or worktree.
func (d *Driver) IsGitRepo(ctx context.Context, path string) bool {
	_, err := d.run(ctx, path, "rev-parse", "--git-dir")
	return err == nil
}

// BranchExists reports whether branch resolves in the given repository.
func (d *Driver) BranchExists(ctx context.Context, projectPath, branch string) bool {
	_, err := d.run(ctx, projectPath, "rev-parse", "--verify", branch)
	return err == nil
}
