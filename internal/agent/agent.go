// Package agent implements the RORI client's event/dispatch loop.
package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/daemon"
	"github.com/rori/roriclient/internal/logging"
)

// Dispatcher is the interaction router as seen by the loop.
type Dispatcher interface {
	Inbound(ctx context.Context, ev daemon.Event) bool
	Outbound(ctx context.Context) bool
}

// Agent drains daemon events and the pending user input, one pass per tick.
// At most one iteration is in flight; a stop request is honored between
// iterations, never in the middle of one.
type Agent struct {
	identity core.Identity
	events   daemon.EventSource
	router   Dispatcher
	wait     time.Duration
	log      *logging.Logger

	// Counters
	iterations atomic.Uint64
	inbound    atomic.Uint64
	outbound   atomic.Uint64

	// State
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.RWMutex
}

// Config for agent
type Config struct {
	Identity  core.Identity
	Events    daemon.EventSource
	Router    Dispatcher
	EventWait time.Duration // bound on each wait for events
}

// New creates a new agent
func New(cfg Config) *Agent {
	wait := cfg.EventWait
	if wait <= 0 {
		wait = 100 * time.Millisecond
	}
	return &Agent{
		identity: cfg.Identity,
		events:   cfg.Events,
		router:   cfg.Router,
		wait:     wait,
		log:      logging.Component("agent").WithField("account", cfg.Identity.ID),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the loop in the background
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return core.ErrAlreadyRunning
	}
	a.running = true
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	stopCh, doneCh := a.stopCh, a.doneCh
	a.mu.Unlock()

	a.log.Info("Agent started for %s", a.identity.Alias)

	go func() {
		defer close(doneCh)
		a.loop(ctx, stopCh)
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	return nil
}

// Stop asks the loop to exit after the current iteration and waits for it.
func (a *Agent) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
	}
	doneCh := a.doneCh
	a.mu.Unlock()

	<-doneCh
	a.log.Info("Agent stopped")
}

// IsRunning checks if agent is running
func (a *Agent) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Run runs the loop on the calling goroutine until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) {
	a.loop(ctx, nil)
}

// loop is the main agent loop
func (a *Agent) loop(ctx context.Context, stopCh <-chan struct{}) {
	for {
		a.tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}
	}
}

// tick runs one iteration: events, observers, inbound routing, then one
// outbound pass.
func (a *Agent) tick(ctx context.Context) {
	a.iterations.Add(1)

	for _, ev := range a.events.Next(ctx, a.wait) {
		a.observe(ev)
		if a.router.Inbound(ctx, ev) {
			a.inbound.Add(1)
		}
	}

	if a.router.Outbound(ctx) {
		a.outbound.Add(1)
	}
}

// observe logs account lifecycle events. None of them changes state.
func (a *Agent) observe(ev daemon.Event) {
	switch ev.Kind {
	case daemon.EventIdentitiesChanged:
		a.log.Info("Accounts changed")
	case daemon.EventRegistrationChanged:
		a.log.WithFields(map[string]interface{}{
			"state": ev.State,
			"code":  ev.Code,
		}).Info("Registration changed for %s: %s", ev.AccountID, ev.Detail)
	case daemon.EventTrustRequest:
		if ev.AccountID == a.identity.ID {
			a.log.Info("New request from %s", ev.From)
		}
	case daemon.EventInteraction:
		a.log.Debug("New interaction for %s from %s", ev.AccountID, ev.From)
	}
}

// Stats contains loop counters
type Stats struct {
	Iterations uint64 `json:"iterations"`
	Inbound    uint64 `json:"inbound"`  // events dispatched
	Outbound   uint64 `json:"outbound"` // user inputs sent
	Running    bool   `json:"running"`
}

// GetStats returns loop counters
func (a *Agent) GetStats() Stats {
	return Stats{
		Iterations: a.iterations.Load(),
		Inbound:    a.inbound.Load(),
		Outbound:   a.outbound.Load(),
		Running:    a.IsRunning(),
	}
}
