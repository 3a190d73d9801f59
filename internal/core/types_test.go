package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDatatype_Keys(t *testing.T) {
	tests := []struct {
		dt       Datatype
		wire     string
		inbound  string
		wantName string
	}{
		{PlainText, "text/plain", "text/plain", "PlainText"},
		{Command, "rori/command", "command", "Command"},
		{SessionMessage, "rori/message", "rori/message", "SessionMessage"},
		{MediaControl, "music", "music", "MediaControl"},
		{AlarmControl, "alarm", "alarm", "AlarmControl"},
		{DatatypeUnknown, "", "", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			if got := tt.dt.WireKey(); got != tt.wire {
				t.Errorf("WireKey() = %q, want %q", got, tt.wire)
			}
			if got := tt.dt.InboundKey(); got != tt.inbound {
				t.Errorf("InboundKey() = %q, want %q", got, tt.inbound)
			}
			if got := tt.dt.String(); got != tt.wantName {
				t.Errorf("String() = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]string
		wantType Datatype
		wantBody string
		wantErr  error
	}{
		{"plain", map[string]string{"text/plain": "hi"}, PlainText, "hi", nil},
		{"command", map[string]string{"command": "uptime"}, Command, "uptime", nil},
		{"session", map[string]string{"rori/message": `{"registered":true}`}, SessionMessage, `{"registered":true}`, nil},
		{"media with metadata", map[string]string{"music": "play", "x-id": "7"}, MediaControl, "play", nil},
		{"alarm", map[string]string{"alarm": "7:30"}, AlarmControl, "7:30", nil},
		{"outbound command key is not inbound", map[string]string{"rori/command": "/link"}, DatatypeUnknown, "", ErrEmptyPayload},
		{"empty", map[string]string{}, DatatypeUnknown, "", ErrEmptyPayload},
		{"nil", nil, DatatypeUnknown, "", ErrEmptyPayload},
		{"two keys", map[string]string{"text/plain": "a", "alarm": "b"}, DatatypeUnknown, "", ErrMultiplePayloadKeys},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload("peer", tt.payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodePayload() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePayload() error = %v", err)
			}
			if got.Datatype != tt.wantType || got.Body != tt.wantBody {
				t.Errorf("DecodePayload() = %v %q, want %v %q", got.Datatype, got.Body, tt.wantType, tt.wantBody)
			}
			if got.SourceIdentity != "peer" || got.ID == "" || got.Timestamp.IsZero() {
				t.Errorf("interaction metadata not set: %+v", got)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, dt := range []Datatype{PlainText, SessionMessage, MediaControl, AlarmControl} {
		t.Run(dt.String(), func(t *testing.T) {
			got, err := DecodePayload("me", EncodePayload(dt, "hello"))
			if err != nil {
				t.Fatalf("DecodePayload() error = %v", err)
			}
			if got.Datatype != dt || got.Body != "hello" {
				t.Errorf("round trip = %v %q", got.Datatype, got.Body)
			}
		})
	}
}

func TestParseSessionReply(t *testing.T) {
	tests := []struct {
		body    string
		wantOK  bool
		wantReg bool
		wantHas bool
	}{
		{`{"registered": true}`, true, true, true},
		{`  {"registered":true, "extra": 1}`, true, true, true},
		{`{"registered": false}`, true, false, true},
		{`{"registered": "true"}`, true, false, true},
		{`{"other": 1}`, true, false, false},
		{`Welcome!`, false, false, false},
		{`[true]`, false, false, false},
		{`{"registered": tru`, false, false, false},
		{``, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			reply, ok := ParseSessionReply(tt.body).Get()
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if reply.Registered != tt.wantReg || reply.HasRegistered != tt.wantHas {
				t.Errorf("reply = %+v", reply)
			}
		})
	}
}

func TestSessionState_String(t *testing.T) {
	if got := (SessionState{Phase: PhaseAwaitingConfirmation, Kind: HandshakeLink}).String(); got != "awaiting_confirmation(link)" {
		t.Errorf("String() = %q", got)
	}
	if got := (SessionState{Phase: PhaseConfirmed}).String(); got != "confirmed" {
		t.Errorf("String() = %q", got)
	}
}

func TestResult(t *testing.T) {
	some := Some(42)
	if v, ok := some.Get(); !ok || v != 42 {
		t.Errorf("Some(42).Get() = %v, %v", v, ok)
	}
	none := None[int]()
	if none.OK() || none.OrZero() != 0 {
		t.Error("None should be empty")
	}
}

func TestMisconfigurationError(t *testing.T) {
	err := fmt.Errorf("login: %w", &MisconfigurationError{Address: "b0b0", Claimed: "carol", Wanted: "bob"})
	if !IsMisconfiguration(err) {
		t.Error("wrapped misconfiguration not detected")
	}
	if IsMisconfiguration(ErrNotConfigured) {
		t.Error("unrelated error detected as misconfiguration")
	}
}

func TestIdentity_IsNull(t *testing.T) {
	if !(Identity{}).IsNull() {
		t.Error("zero identity should be null")
	}
	if (Identity{ID: "acc"}).IsNull() {
		t.Error("identity with id should not be null")
	}
}
