package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/daemon"
)

// SentInteraction is one recorded SendInteraction call.
type SentInteraction struct {
	From     string
	To       string
	Datatype core.Datatype
	Body     string
}

// CreatedIdentity is one recorded CreateIdentity call.
type CreatedIdentity struct {
	Alias       string
	Secret      string
	FromArchive bool
}

// FakeControlPlane is an in-memory daemon. Identities are listed in the
// order they were added. Func fields override the default behavior.
type FakeControlPlane struct {
	// OnCreate, when set, decides what a CreateIdentity call provisions.
	OnCreate func(alias, secret string, fromArchive bool) *core.Identity
	// SendFunc, when set, replaces the default send which returns increasing ids.
	SendFunc func(from, to string, datatype core.Datatype, body string) uint64

	mu         sync.Mutex
	identities map[string]core.Identity
	order      []string
	sent       []SentInteraction
	created    []CreatedIdentity
	enabled    []string
	nextID     uint64
}

// Compile-time check
var _ daemon.ControlPlane = (*FakeControlPlane)(nil)

// NewFakeControlPlane creates a fake daemon holding the given identities.
func NewFakeControlPlane(identities ...core.Identity) *FakeControlPlane {
	f := &FakeControlPlane{identities: make(map[string]core.Identity)}
	for _, id := range identities {
		f.AddIdentity(id)
	}
	return f
}

// AddIdentity makes an identity visible to the fake daemon.
func (f *FakeControlPlane) AddIdentity(id core.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.identities[id.ID]; !ok {
		f.order = append(f.order, id.ID)
	}
	f.identities[id.ID] = id
}

func (f *FakeControlPlane) ListIdentities(ctx context.Context) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.order...)
}

func (f *FakeControlPlane) CreateIdentity(ctx context.Context, alias, secret string, fromArchive bool) {
	f.mu.Lock()
	f.created = append(f.created, CreatedIdentity{Alias: alias, Secret: secret, FromArchive: fromArchive})
	onCreate := f.OnCreate
	f.mu.Unlock()

	if onCreate == nil {
		return
	}
	if id := onCreate(alias, secret, fromArchive); id != nil {
		f.AddIdentity(*id)
	}
}

func (f *FakeControlPlane) FetchIdentityDetails(ctx context.Context, handle string) core.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identities[handle]
}

// EnableIdentity records the request and marks the identity enabled.
func (f *FakeControlPlane) EnableIdentity(ctx context.Context, handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = append(f.enabled, handle)
	if id, ok := f.identities[handle]; ok {
		id.Enabled = true
		f.identities[handle] = id
	}
}

func (f *FakeControlPlane) SendInteraction(ctx context.Context, from, to string, datatype core.Datatype, body string) uint64 {
	f.mu.Lock()
	f.sent = append(f.sent, SentInteraction{From: from, To: to, Datatype: datatype, Body: body})
	sendFunc := f.SendFunc
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	if sendFunc != nil {
		return sendFunc(from, to, datatype, body)
	}
	return id
}

// Sent returns every recorded SendInteraction call.
func (f *FakeControlPlane) Sent() []SentInteraction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentInteraction(nil), f.sent...)
}

// Created returns every recorded CreateIdentity call.
func (f *FakeControlPlane) Created() []CreatedIdentity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CreatedIdentity(nil), f.created...)
}

// Enabled returns every handle passed to EnableIdentity.
func (f *FakeControlPlane) Enabled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.enabled...)
}

// FakeEventSource delivers pushed batches, one batch per Next call.
type FakeEventSource struct {
	batches chan []daemon.Event

	mu    sync.Mutex
	polls int
}

// Compile-time check
var _ daemon.EventSource = (*FakeEventSource)(nil)

// NewFakeEventSource creates an event source with room for 64 pending batches.
func NewFakeEventSource() *FakeEventSource {
	return &FakeEventSource{batches: make(chan []daemon.Event, 64)}
}

// Push queues one batch.
func (s *FakeEventSource) Push(events ...daemon.Event) {
	s.batches <- events
}

func (s *FakeEventSource) Next(ctx context.Context, wait time.Duration) []daemon.Event {
	s.mu.Lock()
	s.polls++
	s.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
		return nil
	case batch := <-s.batches:
		return batch
	}
}

// Polls returns how many times Next was called.
func (s *FakeEventSource) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Pending returns the number of batches not yet delivered.
func (s *FakeEventSource) Pending() int {
	return len(s.batches)
}

func (s *FakeEventSource) Close() error {
	return nil
}

// FakeResolver answers lookups from two maps and counts calls.
type FakeResolver struct {
	Names     map[string]string // alias -> address
	Addresses map[string]string // address -> alias

	mu           sync.Mutex
	nameCalls    []string
	addressCalls []string
}

// NewFakeResolver creates an empty resolver.
func NewFakeResolver() *FakeResolver {
	return &FakeResolver{
		Names:     make(map[string]string),
		Addresses: make(map[string]string),
	}
}

func (r *FakeResolver) ResolveName(ctx context.Context, alias string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nameCalls = append(r.nameCalls, alias)
	return r.Names[alias]
}

func (r *FakeResolver) ResolveAddress(ctx context.Context, address string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addressCalls = append(r.addressCalls, address)
	return r.Addresses[address]
}

// NameCalls returns the aliases passed to ResolveName.
func (r *FakeResolver) NameCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.nameCalls...)
}

// AddressCalls returns the addresses passed to ResolveAddress.
func (r *FakeResolver) AddressCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.addressCalls...)
}

// Invocation is one recorded program start.
type Invocation struct {
	Name string
	Args []string
}

// RecordingRunner records program starts instead of running them.
type RecordingRunner struct {
	Err error // returned from every Start when set

	mu    sync.Mutex
	calls []Invocation
}

func (r *RecordingRunner) Start(name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Invocation{Name: name, Args: append([]string(nil), args...)})
	return r.Err
}

// Calls returns every recorded start.
func (r *RecordingRunner) Calls() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Invocation(nil), r.calls...)
}
