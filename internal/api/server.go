// Package api provides the HTTP server that publishes live action states.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"norse/internal/protocol"
)

// Server serves the latest published action states over HTTP and pushes every
// new snapshot to connected WebSocket observers.
type Server struct {
	logger *slog.Logger
	token  string
	hub    *hub

	mu     sync.RWMutex
	latest protocol.StatesPayload

	srv *http.Server
	ln  net.Listener
}

// NewServer creates a server. A non-empty token is required as a Bearer
// token on every request except /health.
func NewServer(token string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")
	s := &Server{
		logger: logger,
		token:  token,
		hub:    newHub(logger),
	}
	go s.hub.run()
	return s
}

// Handler returns the routed handler with auth and panic recovery applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.hub.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("API server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server stopped", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Publish stores p as the latest snapshot and broadcasts it.
func (s *Server) Publish(p protocol.StatesPayload) {
	s.mu.Lock()
	s.latest = p
	s.mu.Unlock()

	msg, err := protocol.NewMessage(protocol.TypeStates, p)
	if err != nil {
		s.logger.Warn("Failed to encode states", "error", err)
		return
	}
	s.hub.publish(msg)
}

// Clients returns the number of connected WebSocket observers.
func (s *Server) Clients() int {
	return s.hub.count()
}

// Close stops the HTTP server and disconnects every observer.
func (s *Server) Close() error {
	var err error
	if s.srv != nil {
		err = s.srv.Close()
	}
	s.hub.stop()
	return err
}

// recoverMiddleware keeps a handler panic from killing the server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Handler panic", "path", r.URL.Path, "panic", rec)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("Request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

		if r.URL.Path == "/health" || s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()

	writeJSON(w, latest)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "observers": s.Clients()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
