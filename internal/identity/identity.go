// Package identity binds the agent to one daemon account.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/daemon"
	"github.com/rori/roriclient/internal/logging"
)

// DefaultProvisionDelay is how long the daemon is given to make a newly
// created account visible.
const DefaultProvisionDelay = 3 * time.Second

// Manager handles identity operations against the daemon
type Manager struct {
	daemon         daemon.ControlPlane
	provisionDelay time.Duration
	log            *logging.Logger
}

// NewManager creates a new identity manager
func NewManager(cp daemon.ControlPlane) *Manager {
	return &Manager{
		daemon:         cp,
		provisionDelay: DefaultProvisionDelay,
		log:            logging.Component("identity"),
	}
}

// WithProvisionDelay overrides the wait after account creation.
func (m *Manager) WithProvisionDelay(d time.Duration) *Manager {
	m.provisionDelay = d
	return m
}

// Bind loads the identity for handle. A disabled account is enabled and
// fetched again. The result must carry a network address.
func (m *Manager) Bind(ctx context.Context, handle string) (core.Identity, error) {
	id := m.daemon.FetchIdentityDetails(ctx, handle)
	if id.IsNull() {
		return core.Identity{}, fmt.Errorf("account %s: %w", handle, core.ErrIdentityNotFound)
	}

	if !id.Enabled {
		m.log.Info("Enabling account %s", handle)
		m.daemon.EnableIdentity(ctx, handle)
		id = m.daemon.FetchIdentityDetails(ctx, handle)
		if id.IsNull() {
			return core.Identity{}, fmt.Errorf("account %s: %w", handle, core.ErrIdentityNotFound)
		}
	}

	if id.NetworkAddress == "" {
		return core.Identity{}, fmt.Errorf("account %s: %w", handle, core.ErrIdentityUnresolved)
	}

	m.log.WithField("address", id.NetworkAddress).Info("Bound to account %s (%s)", id.ID, id.Alias)
	return id, nil
}

// FindByAlias returns the first daemon account whose alias matches.
func (m *Manager) FindByAlias(ctx context.Context, alias string) core.Result[core.Identity] {
	for _, handle := range m.daemon.ListIdentities(ctx) {
		id := m.daemon.FetchIdentityDetails(ctx, handle)
		if !id.IsNull() && id.Alias == alias {
			return core.Some(id)
		}
	}
	return core.None[core.Identity]()
}

// FindOrCreate returns the account for alias, creating it when missing.
// With fromArchive, alias is the archive path and secret its password.
func (m *Manager) FindOrCreate(ctx context.Context, alias, secret string, fromArchive bool) (core.Identity, error) {
	if !fromArchive {
		if id, ok := m.FindByAlias(ctx, alias).Get(); ok {
			return id, nil
		}
	}

	before := make(map[string]bool)
	for _, handle := range m.daemon.ListIdentities(ctx) {
		before[handle] = true
	}

	m.log.Info("Creating account for %s", alias)
	m.daemon.CreateIdentity(ctx, alias, secret, fromArchive)

	select {
	case <-ctx.Done():
		return core.Identity{}, ctx.Err()
	case <-time.After(m.provisionDelay):
	}

	if !fromArchive {
		if id, ok := m.FindByAlias(ctx, alias).Get(); ok {
			return id, nil
		}
		return core.Identity{}, fmt.Errorf("alias %s: %w", alias, core.ErrIdentityNotFound)
	}

	// An imported archive carries its own alias; take the new handle.
	for _, handle := range m.daemon.ListIdentities(ctx) {
		if before[handle] {
			continue
		}
		if id := m.daemon.FetchIdentityDetails(ctx, handle); !id.IsNull() {
			return id, nil
		}
	}
	return core.Identity{}, fmt.Errorf("archive %s: %w", alias, core.ErrIdentityNotFound)
}
