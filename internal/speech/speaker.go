// Package speech feeds queued utterances to the speech synthesizer.
package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rori/roriclient/internal/config"
	"github.com/rori/roriclient/internal/logging"
	"github.com/rori/roriclient/internal/sayqueue"
	"github.com/rori/roriclient/internal/shared"
)

// Placeholder in the speech command replaced by the utterance.
const Placeholder = "{text}"

// RunFunc runs a program to completion.
type RunFunc func(ctx context.Context, name string, args ...string) error

// ExecRun runs a program with os/exec and waits for it.
func ExecRun(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Speaker drains the say-queue and speaks each utterance in order, one at
// a time. The display text shows the utterance being spoken.
type Speaker struct {
	command []string
	poll    time.Duration
	queue   *sayqueue.Queue
	fields  *shared.Fields
	run     RunFunc
	log     *logging.Logger
}

// New creates a speaker. A nil run uses ExecRun.
func New(cfg config.SinkConfig, queue *sayqueue.Queue, fields *shared.Fields, run RunFunc) *Speaker {
	if run == nil {
		run = ExecRun
	}
	poll := cfg.SpeechPoll.Duration
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}
	return &Speaker{
		command: cfg.SpeechCommand,
		poll:    poll,
		queue:   queue,
		fields:  fields,
		run:     run,
		log:     logging.Component("speech"),
	}
}

// Run polls the queue until ctx is cancelled. Utterances already drained
// when ctx ends are dropped.
func (s *Speaker) Run(ctx context.Context) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, text := range s.queue.Drain() {
				if ctx.Err() != nil {
					return
				}
				s.Say(ctx, text)
			}
		}
	}
}

// Say shows text and speaks it. Failures are logged.
func (s *Speaker) Say(ctx context.Context, text string) {
	s.fields.DisplayText.Set(text)

	argv := Command(s.command, text)
	if len(argv) == 0 {
		return
	}
	s.log.Debug("Saying %q", text)
	if err := s.run(ctx, argv[0], argv[1:]...); err != nil {
		s.log.Warn("speech failed: %v", err)
	}
}

// Command substitutes text into the command template. Without a
// placeholder the text is appended.
func Command(template []string, text string) []string {
	if len(template) == 0 {
		return nil
	}
	argv := make([]string, 0, len(template)+1)
	substituted := false
	for _, arg := range template {
		if strings.Contains(arg, Placeholder) {
			arg = strings.ReplaceAll(arg, Placeholder, text)
			substituted = true
		}
		argv = append(argv, arg)
	}
	if !substituted {
		argv = append(argv, text)
	}
	return argv
}
