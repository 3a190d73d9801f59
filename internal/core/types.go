// Package core defines the fundamental types shared by the RORI client.
// These types cross every boundary: daemon, lookup service, router and UI.
package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// IDENTITY - The local communication account bound to this agent
// -----------------------------------------------------------------------------

// Identity describes the daemon account this agent is bound to.
// It is loaded once at start-up. A fresh query to the daemon re-derives it;
// the agent never mutates it in place.
type Identity struct {
	ID             string `json:"id"`              // Opaque daemon handle
	Alias          string `json:"alias"`           // Human alias registered remotely
	NetworkAddress string `json:"network_address"` // Resolvable public identifier
	Enabled        bool   `json:"enabled"`
}

// IsNull reports whether the identity is the null identity (no daemon answer).
func (i Identity) IsNull() bool {
	return i.ID == ""
}

// -----------------------------------------------------------------------------
// INTERACTION - One message unit tagged with a datatype
// -----------------------------------------------------------------------------

// Datatype tags what an interaction carries.
type Datatype int

const (
	DatatypeUnknown Datatype = iota
	PlainText
	Command
	SessionMessage
	MediaControl
	AlarmControl
)

func (d Datatype) String() string {
	switch d {
	case PlainText:
		return "PlainText"
	case Command:
		return "Command"
	case SessionMessage:
		return "SessionMessage"
	case MediaControl:
		return "MediaControl"
	case AlarmControl:
		return "AlarmControl"
	default:
		return "Unknown"
	}
}

// Payload keys used on the wire. Inbound shell commands arrive under "command";
// outbound commands addressed to the service use "rori/command".
const (
	KeyPlainText      = "text/plain"
	KeyCommand        = "command"
	KeyServiceCommand = "rori/command"
	KeySessionMessage = "rori/message"
	KeyMediaControl   = "music"
	KeyAlarmControl   = "alarm"
)

// inboundKeys maps the recognized inbound payload keys to datatypes.
// Anything else in a payload is metadata.
var inboundKeys = map[string]Datatype{
	KeyPlainText:      PlainText,
	KeyCommand:        Command,
	KeySessionMessage: SessionMessage,
	KeyMediaControl:   MediaControl,
	KeyAlarmControl:   AlarmControl,
}

// WireKey returns the payload key used when sending an interaction of this datatype.
func (d Datatype) WireKey() string {
	switch d {
	case PlainText:
		return KeyPlainText
	case Command:
		return KeyServiceCommand
	case SessionMessage:
		return KeySessionMessage
	case MediaControl:
		return KeyMediaControl
	case AlarmControl:
		return KeyAlarmControl
	default:
		return ""
	}
}

// InboundKey returns the payload key under which the service delivers
// interactions of this datatype.
func (d Datatype) InboundKey() string {
	if d == Command {
		return KeyCommand
	}
	return d.WireKey()
}

// Interaction is one inbound or outbound message. Immutable once built.
type Interaction struct {
	ID             string    `json:"id"` // Local correlation id, never sent
	SourceIdentity string    `json:"source_identity"`
	Datatype       Datatype  `json:"datatype"`
	Body           string    `json:"body"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewInteraction builds an interaction stamped with a fresh correlation id.
func NewInteraction(source string, datatype Datatype, body string) Interaction {
	return Interaction{
		ID:             uuid.NewString(),
		SourceIdentity: source,
		Datatype:       datatype,
		Body:           body,
		Timestamp:      time.Now().UTC(),
	}
}

// EncodePayload builds the daemon payload for an outbound interaction.
func EncodePayload(datatype Datatype, body string) map[string]string {
	return map[string]string{datatype.WireKey(): body}
}

// DecodePayload selects the datatype and body from a daemon payload.
// Exactly one recognized key must be present: a payload with none yields
// ErrEmptyPayload and one with several yields ErrMultiplePayloadKeys.
func DecodePayload(source string, payload map[string]string) (Interaction, error) {
	var (
		found    int
		datatype Datatype
		body     string
	)
	for key, value := range payload {
		dt, ok := inboundKeys[key]
		if !ok {
			continue
		}
		found++
		datatype = dt
		body = value
	}
	switch {
	case found == 0:
		return Interaction{}, ErrEmptyPayload
	case found > 1:
		return Interaction{}, fmt.Errorf("%w: %d recognized keys", ErrMultiplePayloadKeys, found)
	}
	return NewInteraction(source, datatype, body), nil
}

// -----------------------------------------------------------------------------
// SESSION - Confirmation status of the identity/alias pairing
// -----------------------------------------------------------------------------

// SessionPhase is the coarse session state.
type SessionPhase string

const (
	PhaseUnconfirmed          SessionPhase = "unconfirmed"
	PhaseAwaitingConfirmation SessionPhase = "awaiting_confirmation"
	PhaseConfirmed            SessionPhase = "confirmed"
)

// HandshakeKind says which handshake is awaiting confirmation.
type HandshakeKind string

const (
	HandshakeNone     HandshakeKind = ""
	HandshakeRegister HandshakeKind = "register"
	HandshakeLink     HandshakeKind = "link"
)

// SessionState is the tri-state session status.
type SessionState struct {
	Phase SessionPhase  `json:"phase"`
	Kind  HandshakeKind `json:"kind,omitempty"`
}

func (s SessionState) String() string {
	if s.Phase == PhaseAwaitingConfirmation {
		return fmt.Sprintf("%s(%s)", s.Phase, s.Kind)
	}
	return string(s.Phase)
}

// SessionReply is the structured body of a SessionMessage.
type SessionReply struct {
	Registered    bool `json:"registered"`
	HasRegistered bool `json:"-"` // The reply carried a "registered" field at all
}

// ParseSessionReply parses a SessionMessage body. Bodies that are not a JSON
// object yield None so the caller can fall back to displaying them as text.
func ParseSessionReply(body string) Result[SessionReply] {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return None[SessionReply]()
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return None[SessionReply]()
	}
	var reply SessionReply
	if v, ok := raw["registered"]; ok {
		reply.HasRegistered = true
		// Only a literal boolean true confirms.
		reply.Registered = strings.TrimSpace(string(v)) == "true"
	}
	return Some(reply)
}

// -----------------------------------------------------------------------------
// RESULT - Explicit "answer / no answer" at best-effort boundaries
// -----------------------------------------------------------------------------

// Result holds either a value or nothing. Every failure at a best-effort
// boundary collapses into the empty variant.
type Result[T any] struct {
	value T
	ok    bool
}

// Some wraps a value.
func Some[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// None is the empty result.
func None[T any]() Result[T] {
	return Result[T]{}
}

// Get returns the value and whether one is present.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.ok
}

// OK reports whether a value is present.
func (r Result[T]) OK() bool {
	return r.ok
}

// OrZero returns the value, or the zero value of T.
func (r Result[T]) OrZero() T {
	return r.value
}
