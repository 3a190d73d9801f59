package testutil

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/daemon"
)

// Default fixture values.
const (
	FixtureHandle         = "acc-bob"
	FixtureAlias          = "bob"
	FixtureAddress        = "b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0"
	FixtureServiceAddress = "5e55105e55105e55105e55105e55105e55105e55"
)

// RandomID generates a random ID for testing.
func RandomID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// DefaultIdentity returns the enabled, resolved "bob" identity.
func DefaultIdentity() core.Identity {
	return core.Identity{
		ID:             FixtureHandle,
		Alias:          FixtureAlias,
		NetworkAddress: FixtureAddress,
		Enabled:        true,
	}
}

// InteractionEvent builds an inbound interaction event addressed to the
// default identity from the default service peer.
func InteractionEvent(payload map[string]string) daemon.Event {
	return daemon.Event{
		Kind:      daemon.EventInteraction,
		AccountID: FixtureHandle,
		MessageID: RandomID(),
		From:      FixtureServiceAddress,
		Payload:   payload,
	}
}
