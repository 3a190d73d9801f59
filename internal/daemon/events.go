package daemon

import (
	"fmt"
	"strings"
)

// DecodeSignal turns a raw signal (fully qualified name plus body) into an
// Event. Signals from other interfaces, unknown members and bodies of the
// wrong shape are rejected.
func DecodeSignal(iface, name string, body []interface{}) (Event, error) {
	member, ok := strings.CutPrefix(name, iface+".")
	if !ok {
		return Event{}, fmt.Errorf("foreign interface")
	}

	switch EventKind(member) {
	case EventInteraction:
		// (accountId, messageId, from, payloads)
		if len(body) < 4 {
			return Event{}, fmt.Errorf("%s: want 4 arguments, got %d", member, len(body))
		}
		account, ok1 := body[0].(string)
		msgID, ok2 := body[1].(string)
		from, ok3 := body[2].(string)
		payload, ok4 := body[3].(map[string]string)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return Event{}, fmt.Errorf("%s: unexpected argument types", member)
		}
		return Event{
			Kind:      EventInteraction,
			AccountID: account,
			MessageID: msgID,
			From:      from,
			Payload:   payload,
		}, nil

	case EventTrustRequest:
		// (accountId, from, payload, received)
		if len(body) < 2 {
			return Event{}, fmt.Errorf("%s: want at least 2 arguments, got %d", member, len(body))
		}
		account, ok1 := body[0].(string)
		from, ok2 := body[1].(string)
		if !ok1 || !ok2 {
			return Event{}, fmt.Errorf("%s: unexpected argument types", member)
		}
		return Event{Kind: EventTrustRequest, AccountID: account, From: from}, nil

	case EventIdentitiesChanged:
		return Event{Kind: EventIdentitiesChanged}, nil

	case EventRegistrationChanged:
		// (accountId, state, code, detail)
		if len(body) < 2 {
			return Event{}, fmt.Errorf("%s: want at least 2 arguments, got %d", member, len(body))
		}
		account, ok1 := body[0].(string)
		state, ok2 := body[1].(string)
		if !ok1 || !ok2 {
			return Event{}, fmt.Errorf("%s: unexpected argument types", member)
		}
		ev := Event{Kind: EventRegistrationChanged, AccountID: account, State: state}
		if len(body) >= 4 {
			ev.Code, _ = body[2].(int32)
			ev.Detail, _ = body[3].(string)
		}
		return ev, nil
	}

	return Event{}, fmt.Errorf("unknown member %q", member)
}
