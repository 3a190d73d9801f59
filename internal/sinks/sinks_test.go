package sinks

import (
	"errors"
	"testing"

	"github.com/rori/roriclient/internal/config"
	"github.com/rori/roriclient/internal/testutil"
)

func TestSinks_Commands(t *testing.T) {
	cfg := config.Default().Sinks

	tests := []struct {
		name     string
		call     func(s *Sinks) error
		wantName string
		wantArgs []string
	}{
		{
			name:     "media",
			call:     func(s *Sinks) error { return s.Media("play jazz") },
			wantName: "python3",
			wantArgs: []string{"scripts/music.py", "play jazz"},
		},
		{
			name:     "alarm",
			call:     func(s *Sinks) error { return s.Alarm("7:30") },
			wantName: "python3",
			wantArgs: []string{"scripts/alarm.py", "7:30"},
		},
		{
			name:     "shell",
			call:     func(s *Sinks) error { return s.Shell("ls -l /tmp") },
			wantName: "sh",
			wantArgs: []string{"-c", "ls -l /tmp"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &testutil.RecordingRunner{}
			if err := tt.call(New(cfg, runner)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			calls := runner.Calls()
			if len(calls) != 1 {
				t.Fatalf("got %d invocations, want 1", len(calls))
			}
			if calls[0].Name != tt.wantName {
				t.Errorf("Name = %q, want %q", calls[0].Name, tt.wantName)
			}
			if len(calls[0].Args) != len(tt.wantArgs) {
				t.Fatalf("Args = %v, want %v", calls[0].Args, tt.wantArgs)
			}
			for i := range tt.wantArgs {
				if calls[0].Args[i] != tt.wantArgs[i] {
					t.Errorf("Args[%d] = %q, want %q", i, calls[0].Args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestSinks_ShellDisabled(t *testing.T) {
	cfg := config.Default().Sinks
	cfg.ShellEnabled = false
	runner := &testutil.RecordingRunner{}

	err := New(cfg, runner).Shell("rm -rf /")
	if !errors.Is(err, ErrShellDisabled) {
		t.Errorf("Shell() error = %v, want ErrShellDisabled", err)
	}
	if len(runner.Calls()) != 0 {
		t.Error("nothing should run when shell is disabled")
	}
}

func TestSinks_NoCommand(t *testing.T) {
	cfg := config.Default().Sinks
	cfg.MediaCommand = nil
	runner := &testutil.RecordingRunner{}

	if err := New(cfg, runner).Media("play"); err == nil {
		t.Error("expected error for empty media command")
	}
}

func TestSinks_RunnerError(t *testing.T) {
	runner := &testutil.RecordingRunner{Err: errors.New("boom")}
	if err := New(config.Default().Sinks, runner).Alarm("now"); err == nil {
		t.Error("runner error should be returned")
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner()
	if err := r.Start("/nonexistent/definitely-not-here"); err == nil {
		t.Error("expected start error for missing binary")
	}
}
