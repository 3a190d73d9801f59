// Package sinks runs the external programs that act on inbound
// interactions: media control, alarms and shell commands.
package sinks

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/rori/roriclient/internal/config"
	"github.com/rori/roriclient/internal/logging"
)

// ErrShellDisabled is returned by Shell when shell commands are turned off.
var ErrShellDisabled = errors.New("shell commands are disabled")

// Runner starts a program without waiting for it.
type Runner interface {
	Start(name string, args ...string) error
}

// ExecRunner starts programs with os/exec and reaps them in the background.
type ExecRunner struct {
	log *logging.Logger
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{log: logging.Component("sinks")}
}

func (r *ExecRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			r.log.Warn("%s exited: %v", name, err)
		}
	}()
	return nil
}

// Sinks maps inbound interactions to configured command lines.
type Sinks struct {
	cfg    config.SinkConfig
	runner Runner
	log    *logging.Logger
}

// New creates the sink set.
func New(cfg config.SinkConfig, runner Runner) *Sinks {
	return &Sinks{
		cfg:    cfg,
		runner: runner,
		log:    logging.Component("sinks"),
	}
}

// Media hands arg to the media-control program.
func (s *Sinks) Media(arg string) error {
	return s.start("media", s.cfg.MediaCommand, arg)
}

// Alarm hands arg to the alarm program.
func (s *Sinks) Alarm(arg string) error {
	return s.start("alarm", s.cfg.AlarmCommand, arg)
}

// Shell runs cmdline through the configured shell.
func (s *Sinks) Shell(cmdline string) error {
	if !s.cfg.ShellEnabled {
		s.log.Warn("refusing shell command %q: %v", cmdline, ErrShellDisabled)
		return ErrShellDisabled
	}
	return s.start("shell", s.cfg.ShellCommand, cmdline)
}

func (s *Sinks) start(kind string, argv []string, arg string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%s sink: no command configured", kind)
	}
	args := make([]string, 0, len(argv))
	args = append(args, argv[1:]...)
	args = append(args, arg)

	s.log.Debug("%s: %s %v", kind, argv[0], args)
	if err := s.runner.Start(argv[0], args...); err != nil {
		s.log.Error("%s sink: %v", kind, err)
		return err
	}
	return nil
}
