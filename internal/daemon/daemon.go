// Package daemon talks to the local communication daemon's control plane.
//
// Every call is a single blocking request bounded by a fixed timeout. The
// boundary is best-effort: transport or protocol failures are logged and
// collapse into an empty, zero or null answer instead of an error.
package daemon

import (
	"context"
	"strings"
	"time"

	"github.com/rori/roriclient/internal/core"
)

// ControlPlane is the request/response half of the daemon boundary.
type ControlPlane interface {
	// ListIdentities returns the account handles known to the daemon.
	// Failure yields an empty list.
	ListIdentities(ctx context.Context) []string

	// CreateIdentity asks the daemon to create an account. Nothing is
	// returned; callers re-list after giving the daemon time to provision.
	CreateIdentity(ctx context.Context, alias, secret string, fromArchive bool)

	// FetchIdentityDetails returns the identity for a handle, or the null
	// identity when the daemon gave no answer.
	FetchIdentityDetails(ctx context.Context, handle string) core.Identity

	// EnableIdentity requests registration of an account. Not awaited.
	EnableIdentity(ctx context.Context, handle string)

	// SendInteraction posts one interaction from an account to a peer and
	// returns the daemon's interaction id, or 0 if it could not be delivered.
	SendInteraction(ctx context.Context, from, to string, datatype core.Datatype, body string) uint64
}

// EventSource is the pub/sub half of the daemon boundary.
type EventSource interface {
	// Next waits at most wait for events and returns whatever arrived.
	// An empty batch is normal.
	Next(ctx context.Context, wait time.Duration) []Event
	Close() error
}

// EventKind names the four subscribed event classes.
type EventKind string

const (
	EventInteraction         EventKind = "incomingAccountMessage"
	EventTrustRequest        EventKind = "incomingTrustRequest"
	EventIdentitiesChanged   EventKind = "accountsChanged"
	EventRegistrationChanged EventKind = "registrationStateChanged"
)

// Event is one decoded daemon signal. Which fields are set depends on Kind.
type Event struct {
	Kind      EventKind
	AccountID string

	// EventInteraction
	MessageID string
	From      string
	Payload   map[string]string

	// EventRegistrationChanged
	State  string
	Code   int32
	Detail string
}

// Details keys read from getAccountDetails.
const (
	detailEnabled  = "Account.enable"
	detailAlias    = "Account.alias"
	detailUsername = "Account.username"
)

// IdentityFromDetails maps a raw detail set to an Identity. Unknown keys are
// ignored. The "ring:" scheme prefix is stripped from the network address.
func IdentityFromDetails(handle string, details map[string]string) core.Identity {
	identity := core.Identity{ID: handle}
	for key, value := range details {
		switch key {
		case detailEnabled:
			identity.Enabled = value == "true"
		case detailAlias:
			identity.Alias = value
		case detailUsername:
			identity.NetworkAddress = strings.TrimPrefix(value, "ring:")
		}
	}
	return identity
}

// newAccountDetails builds the addAccount detail set.
func newAccountDetails(alias, secret string, fromArchive bool) map[string]string {
	details := map[string]string{
		"Account.type":            "RING",
		"Account.archivePassword": secret,
	}
	if fromArchive {
		details["Account.archivePath"] = alias
	} else {
		details["Account.alias"] = alias
	}
	return details
}
