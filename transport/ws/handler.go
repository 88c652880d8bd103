package ws

import (
	"chat-relay/contract"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Handler upgrades /ws/chat/{user} requests and runs the session loop for
// the lifetime of the connection.
type Handler struct {
	log      *slog.Logger
	router   contract.IRouter
	opts     Options
	upgrader websocket.Upgrader
}

func NewHandler(log *slog.Logger, router contract.IRouter, opts Options) *Handler {
	return &Handler{
		log:    log,
		router: router,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The deployment fronting this server decides origin policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	if user == "" {
		http.Error(w, "missing user name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "user", user, "error", err)
		return
	}

	h.log.Info("User connected", "user", user, "remote", r.RemoteAddr)
	session := NewSession(h.log, user, conn, h.opts)
	h.router.Connect(user, session)

	go session.WriteLoop()
	session.ReadLoop(h.router)
	h.log.Info("User connection closed", "user", user)
}
