// Package httpapi exposes the HTTP surface: the websocket chat endpoint,
// the online-users listing, and a health check.
package httpapi

import (
	"chat-relay/contract"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// Server wires the routes and owns the http.Server lifecycle.
type Server struct {
	log        *slog.Logger
	router     contract.IRouter
	httpServer *http.Server
}

// NewServer builds the route table. chat is the websocket upgrade handler
// mounted under /ws/chat/{user}.
func NewServer(log *slog.Logger, router contract.IRouter, chat http.Handler, addr string) *Server {
	s := &Server{log: log, router: router}

	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.Handle("/ws/chat/{user}", chat).Methods(http.MethodGet)
	r.HandleFunc("/users/{user}", s.handleListUsers).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	s.httpServer = &http.Server{Addr: addr, Handler: r}
	return s
}

// Handler exposes the route table, mainly so tests can mount it on their
// own listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleListUsers answers "who else is online": every registered user
// except the caller named in the path.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	users := s.router.ListOnlineExcluding(user)
	if users == nil {
		users = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(users); err != nil {
		s.log.Warn("Failed to write users listing", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
