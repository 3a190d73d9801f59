package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/logging"
)

// stubObject answers method calls from a table. Methods not in the table
// fail the way an absent daemon does.
type stubObject struct {
	dbus.BusObject

	replies map[string][]interface{}
	calls   []string
	args    [][]interface{}
}

func (o *stubObject) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	o.calls = append(o.calls, method)
	o.args = append(o.args, args)
	body, ok := o.replies[method]
	if !ok {
		return &dbus.Call{Method: method, Err: errors.New("org.freedesktop.DBus.Error.ServiceUnknown")}
	}
	return &dbus.Call{Method: method, Body: body}
}

func newStubClient(replies map[string][]interface{}) (*Client, *stubObject) {
	obj := &stubObject{replies: replies}
	return &Client{
		obj:     obj,
		iface:   iface,
		timeout: time.Second,
		log:     logging.Discard(),
	}, obj
}

func TestClient_FailuresCollapse(t *testing.T) {
	c, obj := newStubClient(nil)
	ctx := context.Background()

	if got := c.ListIdentities(ctx); got == nil || len(got) != 0 {
		t.Errorf("ListIdentities() = %#v, want empty non-nil list", got)
	}
	if got := c.FetchIdentityDetails(ctx, "acc1"); !got.IsNull() {
		t.Errorf("FetchIdentityDetails() = %+v, want null identity", got)
	}
	if got := c.SendInteraction(ctx, "acc1", "peer", core.PlainText, "hi"); got != 0 {
		t.Errorf("SendInteraction() = %d, want 0", got)
	}
	c.CreateIdentity(ctx, "bob", "", false)
	c.EnableIdentity(ctx, "acc1")

	want := []string{
		iface + ".getAccountList",
		iface + ".getAccountDetails",
		iface + ".sendTextMessage",
		iface + ".addAccount",
		iface + ".sendRegister",
	}
	if len(obj.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", obj.calls, want)
	}
	for i := range want {
		if obj.calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, obj.calls[i], want[i])
		}
	}
}

func TestClient_UnexpectedReplyTypes(t *testing.T) {
	c, _ := newStubClient(map[string][]interface{}{
		iface + ".getAccountList":    {"not a list"},
		iface + ".getAccountDetails": {int32(7)},
		iface + ".sendTextMessage":   {"nope"},
	})
	ctx := context.Background()

	if got := c.ListIdentities(ctx); len(got) != 0 {
		t.Errorf("ListIdentities() = %v, want empty", got)
	}
	if got := c.FetchIdentityDetails(ctx, "acc1"); !got.IsNull() {
		t.Errorf("FetchIdentityDetails() = %+v, want null identity", got)
	}
	if got := c.SendInteraction(ctx, "acc1", "peer", core.PlainText, "hi"); got != 0 {
		t.Errorf("SendInteraction() = %d, want 0", got)
	}
}

func TestClient_Answers(t *testing.T) {
	c, obj := newStubClient(map[string][]interface{}{
		iface + ".getAccountList": {[]string{"acc1", "acc2"}},
		iface + ".getAccountDetails": {map[string]string{
			"Account.enable":   "true",
			"Account.alias":    "bob",
			"Account.username": "ring:0123",
		}},
		iface + ".sendTextMessage": {uint64(42)},
	})
	ctx := context.Background()

	if got := c.ListIdentities(ctx); len(got) != 2 || got[0] != "acc1" {
		t.Errorf("ListIdentities() = %v", got)
	}
	id := c.FetchIdentityDetails(ctx, "acc1")
	if id.ID != "acc1" || id.Alias != "bob" || id.NetworkAddress != "0123" || !id.Enabled {
		t.Errorf("FetchIdentityDetails() = %+v", id)
	}
	if got := c.SendInteraction(ctx, "acc1", "peer", core.Command, "/link bob"); got != 42 {
		t.Errorf("SendInteraction() = %d, want 42", got)
	}

	last := obj.args[len(obj.args)-1]
	payload, ok := last[2].(map[string]string)
	if !ok || payload[core.KeyServiceCommand] != "/link bob" || len(payload) != 1 {
		t.Errorf("sendTextMessage payload = %#v", last[2])
	}
}

func TestClient_UnknownDatatypeNotSent(t *testing.T) {
	c, obj := newStubClient(nil)

	if got := c.SendInteraction(context.Background(), "acc1", "peer", core.DatatypeUnknown, "x"); got != 0 {
		t.Errorf("SendInteraction() = %d, want 0", got)
	}
	if len(obj.calls) != 0 {
		t.Errorf("calls = %v, want none", obj.calls)
	}
}

func TestSubscription_Next(t *testing.T) {
	sub := &Subscription{
		iface: iface,
		ch:    make(chan *dbus.Signal, 8),
		log:   logging.Discard(),
	}
	ctx := context.Background()

	if got := sub.Next(ctx, 10*time.Millisecond); len(got) != 0 {
		t.Errorf("Next() on idle bus = %v, want empty", got)
	}

	sub.ch <- &dbus.Signal{Name: iface + ".accountsChanged"}
	sub.ch <- &dbus.Signal{Name: "org.freedesktop.DBus.NameAcquired", Body: []interface{}{"x"}}
	sub.ch <- &dbus.Signal{
		Name: iface + ".incomingAccountMessage",
		Body: []interface{}{"acc1", "7", "peer", map[string]string{"text/plain": "hi"}},
	}

	got := sub.Next(ctx, time.Second)
	if len(got) != 2 {
		t.Fatalf("Next() = %+v, want 2 decoded events", got)
	}
	if got[0].Kind != EventIdentitiesChanged || got[1].Kind != EventInteraction || got[1].Payload["text/plain"] != "hi" {
		t.Errorf("Next() = %+v", got)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if got := sub.Next(cancelled, time.Second); got != nil {
		t.Errorf("Next() with cancelled context = %v, want nil", got)
	}
}
