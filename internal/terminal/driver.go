// Package terminal shells out to tmux to give every agent a detached,
// restart-surviving terminal session. Only tmux owns the PTYs; this
// process can die and reattach without losing a single session.
package terminal

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentforge/agentforge/internal/logging"
)

const (
	defaultWidth   = 250
	defaultHeight  = 50
	defaultHistory = 50000

	cmdTimeout = 15 * time.Second
)

// SessionInfo describes one live tmux session.
type SessionInfo struct {
	Name      string
	Width     int
	Height    int
	CreatedAt time.Time
	Attached  bool
}

// Driver shells out to the tmux binary. Zero value is usable; Bin defaults
// to "tmux" on first use.
type Driver struct {
	Bin string
	Log *logging.Logger
}

// New builds a Driver with an explicit logger.
func New(log *logging.Logger) *Driver {
	return &Driver{Bin: "tmux", Log: log}
}

func (d *Driver) bin() string {
	if d.Bin == "" {
		return "tmux"
	}
	return d.Bin
}

func (d *Driver) logger() *logging.Logger {
	if d.Log != nil {
		return d.Log
	}
	return logging.Default()
}

// run executes a tmux subcommand with a bounded timeout, logging
// failures rather than escalating them — callers get a bool/error pair,
// nothing propagates as a panic.
func (d *Driver) run(ctx context.Context, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, cmdTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, d.bin(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		d.logger().Warn("tmux command failed",
			zap.Strings("args", args),
			zap.String("stderr", stderr.String()),
			zap.Error(err))
		return stdout.String(), fmt.Errorf("tmux %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

// CreateSession starts a new detached session named name, sized to a wide
// geometry with a large scrollback buffer, running command in working_dir.
func (d *Driver) CreateSession(ctx context.Context, name, workingDir, command string) bool {
	_, err := d.run(ctx, "new-session", "-d", "-s", name,
		"-x", strconv.Itoa(defaultWidth), "-y", strconv.Itoa(defaultHeight),
		"-c", workingDir, command)
	if err != nil {
		return false
	}
	_, _ = d.run(ctx, "set-option", "-t", name, "history-limit", strconv.Itoa(defaultHistory))
	return true
}

// ResizeSession best-effort resizes a session to the wide default geometry
// — used on first sight of a recovered agent so old narrow sessions wrap
// correctly.
func (d *Driver) ResizeSession(ctx context.Context, name string) bool {
	_, err := d.run(ctx, "resize-window", "-t", name,
		"-x", strconv.Itoa(defaultWidth), "-y", strconv.Itoa(defaultHeight))
	return err == nil
}

// SessionExists reports whether a tmux session with this name is alive.
func (d *Driver) SessionExists(ctx context.Context, name string) bool {
	_, err := d.run(ctx, "has-session", "-t", name)
	return err == nil
}

// ListSessions returns every live tmux session.
func (d *Driver) ListSessions(ctx context.Context) []SessionInfo {
	format := "#{session_name}\t#{session_width}\t#{session_height}\t#{session_created}\t#{session_attached}"
	out, err := d.run(ctx, "list-sessions", "-F", format)
	if err != nil {
		return nil
	}
	var sessions []SessionInfo
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 5 {
			continue
		}
		w, _ := strconv.Atoi(parts[1])
		h, _ := strconv.Atoi(parts[2])
		createdUnix, _ := strconv.ParseInt(parts[3], 10, 64)
		sessions = append(sessions, SessionInfo{
			Name:      parts[0],
			Width:     w,
			Height:    h,
			CreatedAt: time.Unix(createdUnix, 0),
			Attached:  parts[4] == "1",
		})
	}
	return sessions
}

// KillSession destroys a session; returns false (and logs) if kill-session
// fails. A session that does not exist is treated as already dead and
// returns true.
func (d *Driver) KillSession(ctx context.Context, name string) bool {
	if !d.SessionExists(ctx, name) {
		return true
	}
	_, err := d.run(ctx, "kill-session", "-t", name)
	return err == nil
}

// CapturePane returns the last `lines` of rendered scrollback, newlines
// preserved.
func (d *Driver) CapturePane(ctx context.Context, name string, lines int) (string, bool) {
	out, err := d.run(ctx, "capture-pane", "-t", name, "-p", "-S", fmt.Sprintf("-%d", lines))
	if err != nil {
		return "", false
	}
	return out, true
}

// SendText delivers keystrokes. Single-line text is sent literally then
// submitted with two Enters (the target tool needs both: the first closes
// the input line, the second actually submits). Multi-line text is
// delivered as one bracketed-paste buffer so embedded newlines never fire
// intermediate submissions, then the same two-Enter submit.
func (d *Driver) SendText(ctx context.Context, name, text string) bool {
	if strings.Contains(text, "\n") {
		if !d.pasteBuffer(ctx, name, text) {
			return false
		}
	} else {
		if _, err := d.run(ctx, "send-keys", "-t", name, "-l", text); err != nil {
			return false
		}
	}
	_, err1 := d.run(ctx, "send-keys", "-t", name, "Enter")
	_, err2 := d.run(ctx, "send-keys", "-t", name, "Enter")
	return err1 == nil && err2 == nil
}

func (d *Driver) pasteBuffer(ctx context.Context, name, text string) bool {
	bufName := "agentforge-" + name
	if _, err := d.runStdin(ctx, text, "load-buffer", "-b", bufName, "-"); err != nil {
		return false
	}
	_, err := d.run(ctx, "paste-buffer", "-p", "-b", bufName, "-t", name, "-d")
	return err == nil
}

// runStdin is run with the given string piped to the subcommand's stdin —
// load-buffer reads the buffer content this way, which avoids any
// argument-length limit on large pastes.
func (d *Driver) runStdin(ctx context.Context, stdin string, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, cmdTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, d.bin(), args...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		d.logger().Warn("tmux command failed",
			zap.Strings("args", args),
			zap.String("stderr", stderr.String()),
			zap.Error(err))
		return stdout.String(), fmt.Errorf("tmux %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

// SendRaw delivers named keys with no implicit submit — for interactive
// approval prompts (Enter, Escape, Up, Down, C-c, ...).
func (d *Driver) SendRaw(ctx context.Context, name string, keys ...string) bool {
	args := append([]string{"send-keys", "-t", name}, keys...)
	_, err := d.run(ctx, args...)
	return err == nil
}

// EnablePipe mirrors every byte written to the pane into path, appending.
func (d *Driver) EnablePipe(ctx context.Context, name, path string) bool {
	_, err := d.run(ctx, "pipe-pane", "-t", name, "-o", fmt.Sprintf("cat >> %s", shellQuote(path)))
	return err == nil
}

// DisablePipe turns off pipe-pane for the session.
func (d *Driver) DisablePipe(ctx context.Context, name string) bool {
	_, err := d.run(ctx, "pipe-pane", "-t", name)
	return err == nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
