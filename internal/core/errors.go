package core

import (
	"errors"
	"fmt"
)

// Core errors that can occur across the client
var (
	// Configuration errors
	ErrNotConfigured = errors.New("client is not configured")

	// Identity errors
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrIdentityUnresolved = errors.New("identity has no network address")

	// Lookup errors
	ErrServiceUnreachable = errors.New("coordination service unreachable")

	// Payload errors
	ErrEmptyPayload        = errors.New("payload carries no recognized datatype")
	ErrMultiplePayloadKeys = errors.New("payload carries more than one datatype")

	// Agent errors
	ErrAlreadyRunning = errors.New("already running")
)

// MisconfigurationError reports that the remote service already maps the
// bound network address to a different alias. Continuing would operate under
// the wrong identity, so callers must stop.
type MisconfigurationError struct {
	Address string // Network address of the bound identity
	Claimed string // Alias the service has on record
	Wanted  string // Alias from the bootstrap configuration
}

func (e *MisconfigurationError) Error() string {
	return fmt.Sprintf("address %s is registered as %q but %q is configured; check the configuration",
		e.Address, e.Claimed, e.Wanted)
}

// IsMisconfiguration reports whether err is a *MisconfigurationError.
func IsMisconfiguration(err error) bool {
	var target *MisconfigurationError
	return errors.As(err, &target)
}
