// Package ws adapts websocket connections into the connection handles the
// router pushes to, with read/write pumps per connection.
package ws

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Options groups the per-connection transport knobs.
type Options struct {
	SendBufferSize int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration
	MaxMessageSize int64
}

// Session is one user's live connection. It is the ConnectionHandle
// registered for that user: Push queues a message on the buffered send
// channel consumed by the write pump, and Close revokes the handle.
type Session struct {
	user string
	conn *websocket.Conn
	log  *slog.Logger
	send chan domain.Message
	done chan struct{}
	once sync.Once
	opts Options
}

func NewSession(log *slog.Logger, user string, conn *websocket.Conn, opts Options) *Session {
	conn.SetReadLimit(opts.MaxMessageSize)
	return &Session{
		user: user,
		conn: conn,
		log:  log,
		send: make(chan domain.Message, opts.SendBufferSize),
		done: make(chan struct{}),
		opts: opts,
	}
}

// Push queues m for delivery. It never blocks: a revoked session or a full
// send buffer is reported as an error and the router decides what to do
// with the message.
func (s *Session) Push(m domain.Message) error {
	select {
	case <-s.done:
		return errors.ErrHandleClosed
	default:
	}
	select {
	case s.send <- m:
		return nil
	default:
		return errors.ErrSendBufferFull
	}
}

// Close revokes the session and tears down the underlying connection.
// Safe to call twice: the router closes evicted and disconnected handles,
// and the pumps close their own session on the way out.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *Session) revoked() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// ReadLoop decodes inbound frames and routes them until the connection
// drops. Malformed frames are logged and ignored; the connection stays up.
// On exit the session signals the router, unless it was revoked by a newer
// connection that now owns the user's slot.
func (s *Session) ReadLoop(router contract.IRouter) {
	defer func() {
		evicted := s.revoked()
		_ = s.Close()
		if evicted {
			return
		}
		router.Disconnect(s.user)
	}()

	_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("Unexpected websocket close", "user", s.user, "error", err)
			} else {
				s.log.Debug("Connection closed", "user", s.user, "error", err)
			}
			return
		}

		m, err := domain.Decode(raw)
		if err != nil {
			s.log.Warn("Ignoring malformed frame", "user", s.user, "error", err)
			continue
		}
		if err := router.Route(m); err != nil {
			s.log.Warn("Routing failed", "user", s.user, "error", err)
		}
	}
}

// WriteLoop drains the send channel onto the wire and keeps the connection
// alive with pings. It exits when the session is revoked or a write fails.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.Close()
	}()

	for {
		select {
		case <-s.done:
			deadline := time.Now().Add(s.opts.WriteTimeout)
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		case m := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := s.conn.WriteJSON(m); err != nil {
				s.log.Warn("Write failed", "user", s.user, "error", err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug("Ping failed", "user", s.user, "error", err)
				return
			}
		}
	}
}
