package localexec

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fentz26/concierge/internal/connectors"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		cmd     string
		allowed bool
	}{
		{"notify-send", true},
		{"terminal-notifier", true},
		{"osascript", true},
		{"/usr/bin/notify-send", false}, // paths are rejected
		{"rm", false},                   // not in allowlist
		{"sh", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			if got := IsAllowed(tt.cmd); got != tt.allowed {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.cmd, got, tt.allowed)
			}
		})
	}
}

func TestNew_NotAllowed(t *testing.T) {
	_, err := New("rm")
	if !errors.Is(err, ErrNotAllowed) {
		t.Errorf("Expected ErrNotAllowed, got %v", err)
	}
}

func TestArgs(t *testing.T) {
	r := connectors.Reminder{
		Key:     "task_due:task-001:2026-10-15",
		Kind:    connectors.ReminderTaskDue,
		Title:   "Plan weekend trip",
		Message: `Due "today"; rm -rf /`,
		At:      time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC),
	}

	args, err := Args("notify-send", r)
	if err != nil {
		t.Fatalf("Args failed: %v", err)
	}
	if len(args) != 3 || args[1] != r.Title || args[2] != r.Message {
		t.Errorf("Unexpected notify-send args: %q", args)
	}

	args, err = Args("osascript", r)
	if err != nil {
		t.Fatalf("Args failed: %v", err)
	}
	if !strings.Contains(args[1], `\"today\"`) {
		t.Errorf("Expected message to be quoted, got %q", args[1])
	}

	if _, err := Args("sh", r); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("Expected ErrNotAllowed for sh, got %v", err)
	}
}

func TestName(t *testing.T) {
	l := &LocalExec{command: "notify-send"}
	if l.Name() != "localexec" {
		t.Errorf("Expected name 'localexec', got %s", l.Name())
	}
}

func TestAppleScriptString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Call mom", `"Call mom"`},
		{`Say "hi"`, `"Say \"hi\""`},
		{`C:\temp`, `"C:\\temp"`},
		{"line one\nline two\ttab\x00", `"line one line two tab "`},
		{"Café ☕", `"Café ☕"`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := appleScriptString(tt.in); got != tt.want {
				t.Errorf("appleScriptString(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
