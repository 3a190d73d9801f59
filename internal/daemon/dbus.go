package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/rori/roriclient/internal/config"
	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/logging"
)

// Client is the D-Bus implementation of ControlPlane.
type Client struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	iface   string
	timeout time.Duration
	log     *logging.Logger
}

// Compile-time check: *Client implements ControlPlane.
var _ ControlPlane = (*Client)(nil)

// Dial opens a private session-bus connection to the daemon.
func Dial(cfg config.DaemonConfig) (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Client{
		conn:    conn,
		obj:     conn.Object(cfg.BusName, dbus.ObjectPath(cfg.ObjectPath)),
		iface:   cfg.Interface,
		timeout: cfg.CallTimeout.Duration,
		log:     logging.Component("daemon"),
	}, nil
}

// Close closes the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs one bounded method call. Any failure collapses to None.
func (c *Client) call(ctx context.Context, method string, args ...interface{}) core.Result[*dbus.Call] {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.obj.CallWithContext(ctx, c.iface+"."+method, 0, args...)
	if call.Err != nil {
		c.log.Error("%s failed: %v", method, call.Err)
		return core.None[*dbus.Call]()
	}
	return core.Some(call)
}

func (c *Client) ListIdentities(ctx context.Context) []string {
	call, ok := c.call(ctx, "getAccountList").Get()
	if !ok {
		return []string{}
	}
	var handles []string
	if err := call.Store(&handles); err != nil {
		c.log.Error("getAccountList: unexpected reply: %v", err)
		return []string{}
	}
	return handles
}

func (c *Client) CreateIdentity(ctx context.Context, alias, secret string, fromArchive bool) {
	call, ok := c.call(ctx, "addAccount", newAccountDetails(alias, secret, fromArchive)).Get()
	if !ok {
		return
	}
	var handle string
	if err := call.Store(&handle); err != nil {
		c.log.Warn("addAccount: unexpected reply: %v", err)
		return
	}
	c.log.Info("New account: %s", handle)
}

func (c *Client) FetchIdentityDetails(ctx context.Context, handle string) core.Identity {
	call, ok := c.call(ctx, "getAccountDetails", handle).Get()
	if !ok {
		return core.Identity{}
	}
	var details map[string]string
	if err := call.Store(&details); err != nil {
		c.log.Error("getAccountDetails: unexpected reply: %v", err)
		return core.Identity{}
	}
	return IdentityFromDetails(handle, details)
}

func (c *Client) EnableIdentity(ctx context.Context, handle string) {
	c.call(ctx, "sendRegister", handle, true)
}

func (c *Client) SendInteraction(ctx context.Context, from, to string, datatype core.Datatype, body string) uint64 {
	if datatype.WireKey() == "" {
		c.log.Error("sendTextMessage: no wire key for %s", datatype)
		return 0
	}
	call, ok := c.call(ctx, "sendTextMessage", from, to, core.EncodePayload(datatype, body)).Get()
	if !ok {
		return 0
	}
	var id uint64
	if err := call.Store(&id); err != nil {
		c.log.Error("sendTextMessage: unexpected reply: %v", err)
		return 0
	}
	return id
}

// Subscribe opens a second private connection and matches the four event
// classes on the configuration interface.
func Subscribe(cfg config.DaemonConfig) (*Subscription, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	sub := &Subscription{
		conn:  conn,
		iface: cfg.Interface,
		ch:    make(chan *dbus.Signal, 256),
		log:   logging.Component("daemon"),
	}
	for _, kind := range []EventKind{EventInteraction, EventTrustRequest, EventIdentitiesChanged, EventRegistrationChanged} {
		opts := []dbus.MatchOption{
			dbus.WithMatchInterface(cfg.Interface),
			dbus.WithMatchMember(string(kind)),
		}
		if err := conn.AddMatchSignal(opts...); err != nil {
			conn.Close()
			return nil, fmt.Errorf("match %s: %w", kind, err)
		}
		sub.matches = append(sub.matches, opts)
	}
	conn.Signal(sub.ch)
	return sub, nil
}

// Subscription delivers decoded daemon signals.
type Subscription struct {
	conn    *dbus.Conn
	iface   string
	ch      chan *dbus.Signal
	matches [][]dbus.MatchOption
	log     *logging.Logger
}

// Compile-time check: *Subscription implements EventSource.
var _ EventSource = (*Subscription)(nil)

// Next blocks for at most wait for the first signal, then takes whatever
// else is already queued without blocking.
func (s *Subscription) Next(ctx context.Context, wait time.Duration) []Event {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	var batch []Event
	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
		return nil
	case sig, ok := <-s.ch:
		if !ok {
			return nil
		}
		batch = s.appendDecoded(batch, sig)
	}

	for {
		select {
		case sig, ok := <-s.ch:
			if !ok {
				return batch
			}
			batch = s.appendDecoded(batch, sig)
		default:
			return batch
		}
	}
}

func (s *Subscription) appendDecoded(batch []Event, sig *dbus.Signal) []Event {
	ev, err := DecodeSignal(s.iface, sig.Name, sig.Body)
	if err != nil {
		s.log.Debug("ignoring signal %s: %v", sig.Name, err)
		return batch
	}
	return append(batch, ev)
}

// Close removes the matches and closes the connection.
func (s *Subscription) Close() error {
	s.conn.RemoveSignal(s.ch)
	for _, opts := range s.matches {
		_ = s.conn.RemoveMatchSignal(opts...)
	}
	return s.conn.Close()
}
