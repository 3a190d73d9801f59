package mockservers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// LookupMockServer provides a mock name-resolution service over TLS with a
// self-signed certificate.
type LookupMockServer struct {
	Server *httptest.Server
	t      *testing.T

	mu        sync.Mutex
	names     map[string]string // alias -> address (without 0x)
	addresses map[string]string // address -> alias
	requests  []string
}

// NewLookupMockServer creates a new mock lookup server.
func NewLookupMockServer(t *testing.T) *LookupMockServer {
	t.Helper()

	mock := &LookupMockServer{
		t:         t,
		names:     make(map[string]string),
		addresses: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/name/", mock.handleName)
	mux.HandleFunc("/addr/", mock.handleAddr)
	mock.Server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests = append(mock.requests, r.URL.Path)
		mock.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))

	t.Cleanup(func() {
		mock.Server.Close()
	})

	return mock
}

// Register records alias <-> address in both directions.
func (m *LookupMockServer) Register(alias, address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[alias] = address
	m.addresses[address] = alias
}

// URL returns the server base URL.
func (m *LookupMockServer) URL() string {
	return m.Server.URL
}

// Requests returns the request paths received so far.
func (m *LookupMockServer) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

func (m *LookupMockServer) handleName(w http.ResponseWriter, r *http.Request) {
	alias := strings.TrimPrefix(r.URL.Path, "/name/")

	m.mu.Lock()
	addr, ok := m.names[alias]
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "name not registered"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"addr": "0x" + addr})
}

func (m *LookupMockServer) handleAddr(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimPrefix(r.URL.Path, "/addr/")

	m.mu.Lock()
	alias, ok := m.addresses[address]
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		json.NewEncoder(w).Encode(map[string]interface{}{"name": nil})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"name": alias})
}
