// Package shared holds the fields exchanged between the agent and the
// human-facing surface. Each field has its own lock; there is no atomicity
// across fields and readers must tolerate seeing them updated in any order.
package shared

import (
	"sync"
)

// Field names, as seen by change listeners and surface clients.
const (
	FieldDisplayText      = "display_text"
	FieldPendingUserInput = "pending_user_input"
	FieldLogged           = "logged"
	FieldListening        = "listening"
	FieldAPIText          = "api_text"
)

// Cell is one independently locked value.
type Cell[T comparable] struct {
	name   string
	mu     sync.RWMutex
	value  T
	notify func(name string)
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set replaces the value. Last write wins.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	changed := c.value != v
	c.value = v
	c.mu.Unlock()
	if changed && c.notify != nil {
		c.notify(c.name)
	}
}

// Take returns the current value and resets the cell to the zero value in
// the same critical section.
func (c *Cell[T]) Take() T {
	var zero T
	c.mu.Lock()
	v := c.value
	c.value = zero
	c.mu.Unlock()
	if v != zero && c.notify != nil {
		c.notify(c.name)
	}
	return v
}

// Fields is the process-wide set of shared cells.
type Fields struct {
	DisplayText      *Cell[string] // written by the agent
	PendingUserInput *Cell[string] // written by the surface, taken by the agent
	Logged           *Cell[bool]
	Listening        *Cell[bool]
	APIText          *Cell[string]

	mu        sync.RWMutex
	listeners map[int]func(name string)
	nextID    int
}

// New creates the field set with every cell at its zero value.
func New() *Fields {
	f := &Fields{listeners: make(map[int]func(string))}
	f.DisplayText = newCell[string](FieldDisplayText, f.changed)
	f.PendingUserInput = newCell[string](FieldPendingUserInput, f.changed)
	f.Logged = newCell[bool](FieldLogged, f.changed)
	f.Listening = newCell[bool](FieldListening, f.changed)
	f.APIText = newCell[string](FieldAPIText, f.changed)
	return f
}

func newCell[T comparable](name string, notify func(string)) *Cell[T] {
	return &Cell[T]{name: name, notify: notify}
}

// Subscribe registers fn to be called with the field name after every
// change. Listeners run on the writer's goroutine and must not block.
// The returned function removes the listener.
func (f *Fields) Subscribe(fn func(name string)) (unsubscribe func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *Fields) changed(name string) {
	f.mu.RLock()
	fns := make([]func(string), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.RUnlock()

	for _, fn := range fns {
		fn(name)
	}
}

// Snapshot is a point-in-time read of the surface-visible fields. Each
// field is read under its own lock.
type Snapshot struct {
	DisplayText string `json:"display_text"`
	Logged      bool   `json:"logged"`
	Listening   bool   `json:"listening"`
	APIText     string `json:"api_text"`
}

// Snapshot reads every surface-visible field.
func (f *Fields) Snapshot() Snapshot {
	return Snapshot{
		DisplayText: f.DisplayText.Get(),
		Logged:      f.Logged.Get(),
		Listening:   f.Listening.Get(),
		APIText:     f.APIText.Get(),
	}
}
