package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/rori/roriclient/internal/config"
	"github.com/rori/roriclient/internal/sayqueue"
	"github.com/rori/roriclient/internal/shared"
	"github.com/rori/roriclient/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recorder) run(ctx context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.err
}

func (r *recorder) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func testConfig() config.SinkConfig {
	cfg := config.Default().Sinks
	cfg.SpeechPoll = config.Duration{Duration: 5 * time.Millisecond}
	return cfg
}

func TestCommand(t *testing.T) {
	tests := []struct {
		name     string
		template []string
		want     []string
	}{
		{"placeholder", []string{"mimic", "-t", "{text}", "-voice", "slt"}, []string{"mimic", "-t", "hi there", "-voice", "slt"}},
		{"embedded", []string{"say", "--text={text}"}, []string{"say", "--text=hi there"}},
		{"appended", []string{"espeak"}, []string{"espeak", "hi there"}},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Command(tt.template, "hi there")
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Command() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpeaker_SpeaksInOrder(t *testing.T) {
	q := sayqueue.New()
	fields := shared.New()
	rec := &recorder{}
	s := New(testConfig(), q, fields, rec.run)

	q.Append("first")
	q.Append("second")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	testutil.Eventually(t, time.Second, func() bool { return len(rec.Calls()) == 2 }, "utterances not spoken")
	cancel()
	<-done

	calls := rec.Calls()
	if calls[0][2] != "first" || calls[1][2] != "second" {
		t.Errorf("calls = %v", calls)
	}
	if got := fields.DisplayText.Get(); got != "second" {
		t.Errorf("DisplayText = %q, want last utterance", got)
	}
	if q.Len() != 0 {
		t.Error("queue should be drained")
	}
}

func TestSpeaker_FailureNotFatal(t *testing.T) {
	q := sayqueue.New()
	rec := &recorder{err: errors.New("no synthesizer")}
	s := New(testConfig(), q, shared.New(), rec.run)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	q.Append("one")
	testutil.Eventually(t, time.Second, func() bool { return len(rec.Calls()) == 1 }, "first utterance not attempted")
	q.Append("two")
	testutil.Eventually(t, time.Second, func() bool { return len(rec.Calls()) == 2 }, "speaker stopped after a failure")

	cancel()
	<-done
}

func TestSpeaker_StopsOnCancel(t *testing.T) {
	s := New(testConfig(), sayqueue.New(), shared.New(), (&recorder{}).run)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return on a cancelled context")
	}
}
