// Package session drives the register/link handshake between the bound
// identity and the remote coordination service.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/logging"
	"github.com/rori/roriclient/internal/lookup"
	"github.com/rori/roriclient/internal/sayqueue"
	"github.com/rori/roriclient/internal/shared"
)

// Announcement declares the inbound datatypes this client handles.
const Announcement = "/set_types music command alarm"

// Waiting messages queued while the service has not confirmed.
const (
	MessageLinking     = "Linking with another device..."
	MessageRegistering = "Waiting registering confirmation..."
)

// Sender posts one outbound interaction. It is the send half of
// daemon.ControlPlane.
type Sender interface {
	SendInteraction(ctx context.Context, from, to string, datatype core.Datatype, body string) uint64
}

// Options configures a Machine.
type Options struct {
	Identity       core.Identity // bound identity; its alias is the one announced
	ServiceAddress string        // network address of the service peer
	Resolver       lookup.Resolver
	Sender         Sender
	Fields         *shared.Fields
	SayQueue       *sayqueue.Queue
}

// Machine tracks whether the bound identity is confirmed by the service.
// Confirmed is terminal.
type Machine struct {
	identity core.Identity
	alias    string
	service  string
	resolver lookup.Resolver
	sender   Sender
	fields   *shared.Fields
	say      *sayqueue.Queue
	log      *logging.Logger

	mu        sync.Mutex
	state     core.SessionState
	announced bool
}

// New creates a machine in the Unconfirmed state.
func New(opts Options) *Machine {
	return &Machine{
		identity: opts.Identity,
		alias:    opts.Identity.Alias,
		service:  opts.ServiceAddress,
		resolver: opts.Resolver,
		sender:   opts.Sender,
		fields:   opts.Fields,
		say:      opts.SayQueue,
		log:      logging.Component("session").WithField("alias", opts.Identity.Alias),
		state:    core.SessionState{Phase: core.PhaseUnconfirmed},
	}
}

// State returns the current session state.
func (m *Machine) State() core.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Login establishes the session on start-up.
//
// If the service already maps the identity's address to the identity's
// own alias the session is confirmed immediately. If it maps the address to a
// different alias a *core.MisconfigurationError is returned and nothing is
// sent. Otherwise a /link or /register command is sent depending on whether
// the alias is already known to the service, and the machine waits for a
// confirming SessionMessage.
func (m *Machine) Login(ctx context.Context) error {
	if m.State().Phase == core.PhaseConfirmed {
		return nil
	}
	if m.identity.NetworkAddress == "" {
		return core.ErrIdentityUnresolved
	}

	claimed := m.resolver.ResolveAddress(ctx, m.identity.NetworkAddress)
	switch {
	case claimed == m.alias:
		m.log.Info("Already registered as %s", claimed)
		m.Confirm(ctx)
		return nil
	case claimed != "":
		return &core.MisconfigurationError{
			Address: m.identity.NetworkAddress,
			Claimed: claimed,
			Wanted:  m.alias,
		}
	}

	kind, waiting := core.HandshakeRegister, MessageRegistering
	if m.resolver.ResolveName(ctx, m.alias) != "" {
		kind, waiting = core.HandshakeLink, MessageLinking
	}

	m.mu.Lock()
	m.state = core.SessionState{Phase: core.PhaseAwaitingConfirmation, Kind: kind}
	m.mu.Unlock()

	command := fmt.Sprintf("/%s %s", kind, m.alias)
	m.log.Info("Sending %s", command)
	m.send(ctx, core.Command, command)
	m.say.Append(waiting)
	return nil
}

// Confirm moves the session to Confirmed, clears the display text, raises
// the logged flag and announces capabilities. Only the first call has any
// effect; it reports whether this call made the transition.
func (m *Machine) Confirm(ctx context.Context) bool {
	m.mu.Lock()
	if m.state.Phase == core.PhaseConfirmed {
		m.mu.Unlock()
		return false
	}
	m.state = core.SessionState{Phase: core.PhaseConfirmed}
	announce := !m.announced
	m.announced = true
	m.mu.Unlock()

	m.log.Info("Session confirmed")
	m.fields.DisplayText.Set("")
	m.fields.Logged.Set(true)
	if announce {
		m.send(ctx, core.SessionMessage, Announcement)
	}
	return true
}

func (m *Machine) send(ctx context.Context, datatype core.Datatype, body string) {
	if id := m.sender.SendInteraction(ctx, m.identity.ID, m.service, datatype, body); id == 0 {
		m.log.Warn("could not deliver %s %q", datatype, body)
	}
}
