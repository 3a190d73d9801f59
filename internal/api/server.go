// Package api provides the remote-control and surface HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rori/roriclient/internal/agent"
	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/logging"
	"github.com/rori/roriclient/internal/shared"
)

// SessionView exposes the session state.
type SessionView interface {
	State() core.SessionState
}

// StatsView exposes dispatch loop counters.
type StatsView interface {
	GetStats() agent.Stats
}

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	wsHub      *WebSocketHub
	log        *logging.Logger

	// Components
	fields   *shared.Fields
	session  SessionView
	agent    StatsView
	identity core.Identity

	unsubscribe func()
}

// Config for the server
type Config struct {
	Addr     string
	Fields   *shared.Fields
	Session  SessionView
	Agent    StatsView // optional
	Identity core.Identity
}

// New creates a new API server
func New(cfg Config) *Server {
	s := &Server{
		fields:   cfg.Fields,
		session:  cfg.Session,
		agent:    cfg.Agent,
		identity: cfg.Identity,
		log:      logging.Component("api"),
	}
	s.wsHub = NewWebSocketHub(func() WebSocketMessage {
		return s.message("state")
	})

	s.setupRouter()

	// Push every field change to connected surfaces.
	s.unsubscribe = s.fields.Subscribe(func(name string) {
		if name == shared.FieldPendingUserInput {
			return
		}
		s.wsHub.Broadcast(s.message("state"))
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures all routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Remote control
	r.Post("/say", s.handleSay)
	r.Get("/startListen", s.handleStartListen)
	r.Get("/stopListen", s.handleStopListen)

	// Surface
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleGetState)
		r.Post("/input", s.handlePostInput)
		r.Put("/api-text", s.handlePutAPIText)
		r.Get("/session", s.handleGetSession)
	})

	// WebSocket
	r.Handle("/ws", s.wsHub)

	s.router = r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve serves on an existing listener
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("API server listening on http://%s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.unsubscribe()
	err := s.httpServer.Shutdown(ctx)
	s.wsHub.Close()
	return err
}

func (s *Server) message(msgType string) WebSocketMessage {
	return WebSocketMessage{
		Type:      msgType,
		Data:      s.state(),
		Timestamp: time.Now(),
	}
}

// StateResponse is the surface view of the shared fields.
type StateResponse struct {
	shared.Snapshot
	Session core.SessionState `json:"session"`
}

func (s *Server) state() StateResponse {
	return StateResponse{
		Snapshot: s.fields.Snapshot(),
		Session:  s.session.State(),
	}
}

// --- Response helpers ---

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) respondOK(w http.ResponseWriter) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Handlers ---

type sayRequest struct {
	Say *string `json:"say"`
}

// handleSay submits text as if the user typed it.
func (s *Server) handleSay(w http.ResponseWriter, r *http.Request) {
	var req sayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Say == nil {
		s.respondError(w, http.StatusBadRequest, "Can't get body")
		return
	}
	s.fields.PendingUserInput.Set(*req.Say)
	s.log.Info("POST /say: %s", *req.Say)
	s.respondOK(w)
}

func (s *Server) handleStartListen(w http.ResponseWriter, r *http.Request) {
	s.fields.Listening.Set(true)
	s.respondOK(w)
}

func (s *Server) handleStopListen(w http.ResponseWriter, r *http.Request) {
	s.fields.Listening.Set(false)
	s.respondOK(w)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.state())
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handlePostInput(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	s.fields.PendingUserInput.Set(req.Text)
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handlePutAPIText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.fields.APIText.Set(req.Text)
	s.respondOK(w)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"identity": s.identity,
		"state":    s.session.State(),
		"logged":   s.fields.Logged.Get(),
	}
	if s.agent != nil {
		resp["agent"] = s.agent.GetStats()
	}
	s.respondJSON(w, http.StatusOK, resp)
}
