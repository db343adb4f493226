// Package localexec delivers reminders by running a desktop notification
// command from a fixed allowlist.
package localexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/fentz26/concierge/internal/connectors"
)

// ErrNotAllowed is returned for commands outside the allowlist.
var ErrNotAllowed = errors.New("command not allowed")

// allowedCommands maps each notification program to the arguments it is
// called with. The reminder text is only ever passed as an argument.
var allowedCommands = map[string]func(r connectors.Reminder) []string{
	"notify-send": func(r connectors.Reminder) []string {
		return []string{"--app-name=concierge", r.Title, r.Message}
	},
	"terminal-notifier": func(r connectors.Reminder) []string {
		return []string{"-title", r.Title, "-message", r.Message}
	},
	"osascript": func(r connectors.Reminder) []string {
		return []string{"-e", "display notification " + appleScriptString(r.Message) + " with title " + appleScriptString(r.Title)}
	},
}

// appleScriptString quotes s as an AppleScript string literal. AppleScript
// only knows the \\ and \" escapes, so control characters become spaces.
func appleScriptString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '\\' || r == '"':
			b.WriteByte('\\')
			b.WriteRune(r)
		case unicode.IsControl(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// LocalExec implements connectors.Notifier with a local command.
type LocalExec struct {
	command string
	path    string
}

// New creates a notifier for command, which must be in the allowlist and
// resolvable on PATH.
func New(command string) (*LocalExec, error) {
	if !IsAllowed(command) {
		return nil, fmt.Errorf("%w: %s", ErrNotAllowed, command)
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", command, err)
	}
	return &LocalExec{command: command, path: path}, nil
}

// IsAllowed checks if a command is in the allowlist. Paths are rejected so
// only the named programs can run.
func IsAllowed(command string) bool {
	if command == "" || filepath.Base(command) != command {
		return false
	}
	_, ok := allowedCommands[command]
	return ok
}

// Args returns the arguments command is run with for r.
func Args(command string, r connectors.Reminder) ([]string, error) {
	build, ok := allowedCommands[command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAllowed, command)
	}
	return build(r), nil
}

// Name returns the notifier identifier.
func (l *LocalExec) Name() string {
	return "localexec"
}

// Notify runs the notification command for r.
func (l *LocalExec) Notify(ctx context.Context, r connectors.Reminder) error {
	args, err := Args(l.command, r)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, l.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with %d: %s", l.command, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("exec error: %w", err)
	}
	return nil
}
