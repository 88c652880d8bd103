// Package runtime owns the connection registry and the message-delivery
// engine. It decides between immediate delivery and queueing, replays
// history on reconnect, and synthesizes presence notifications.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/moderation"
	"log/slog"
)

// Router delivers directed messages. Every operation may be invoked
// concurrently from independent connection goroutines; the registry and the
// history log are the only shared state and each guards itself.
type Router struct {
	log       *slog.Logger
	registry  contract.IRegistry
	history   contract.History
	moderator *moderation.Moderator // nil when moderation is disabled
}

func NewRouter(log *slog.Logger, registry contract.IRegistry,
	history contract.History, moderator *moderation.Moderator) *Router {
	return &Router{
		log:       log,
		registry:  registry,
		history:   history,
		moderator: moderator,
	}
}

// Connect installs the handle for user, replays the messages involving
// them oldest first, and announces the arrival to everyone else online.
// When the same user reconnects, the previous handle loses the slot and is
// closed here so its connection ownership is revoked, not orphaned.
func (rt *Router) Connect(user string, handle contract.ConnectionHandle) {
	if evicted, replaced := rt.registry.Connect(user, handle); replaced {
		rt.log.Info("Evicting previous connection", "user", user)
		if err := evicted.Close(); err != nil {
			rt.log.Warn("Failed to close evicted handle", "user", user, "error", err)
		}
	}
	rt.replay(user, handle)
	rt.fanoutPresence(user, true)
}

// Route delivers a content message to its recipient if online, otherwise
// queues it for replay on the recipient's next connect. Either way the
// message lands in history exactly once, and the sender never sees an
// error for an offline or unreachable recipient.
func (rt *Router) Route(m domain.Message) error {
	if m.Kind != domain.KindContent {
		return errors.ErrNotRoutable
	}
	if rt.moderator != nil {
		body, censored := rt.moderator.Censor(m.Body)
		if len(censored) > 0 {
			rt.log.Info("Censored message content", "from", m.From, "words", len(censored))
		}
		m.Body = body
	}

	if handle, online := rt.registry.Lookup(m.To); online {
		err := handle.Push(m)
		if err == nil {
			return rt.history.Append(m)
		}
		rt.log.Warn("Live delivery failed, queueing", "to", m.To, "error", err)
	} else {
		rt.log.Info("Recipient offline, queueing", "to", m.To)
	}
	return rt.history.Append(m)
}

// Disconnect removes user from the registry and announces the departure.
// If the entry is already gone the call is a no-op: no handle to close and
// no second presence fan-out.
func (rt *Router) Disconnect(user string) {
	removed, ok := rt.registry.Disconnect(user)
	if !ok {
		return
	}
	if err := removed.Close(); err != nil {
		rt.log.Debug("Closing handle on disconnect", "user", user, "error", err)
	}
	rt.fanoutPresence(user, false)
}

// ListOnlineExcluding exposes the registry snapshot to the listing
// collaborator without additional filtering.
func (rt *Router) ListOnlineExcluding(user string) []string {
	return rt.registry.ListOnline(user)
}

// replay pushes every historical message involving user to the fresh
// handle in log order. A failed push is logged and skipped; it aborts
// neither the remaining replay nor the connect.
func (rt *Router) replay(user string, handle contract.ConnectionHandle) {
	messages, err := rt.history.ForUser(user)
	if err != nil {
		rt.log.Error("History scan failed, skipping replay", "user", user, "error", err)
		return
	}
	for _, m := range messages {
		if err := handle.Push(m); err != nil {
			rt.log.Warn("Failed to replay message", "user", user, "error", err)
		}
	}
}

// fanoutPresence best-effort-delivers a status notification about user to
// every other online user. Handles are resolved at fan-out time; a peer
// that vanished mid fan-out, or whose push fails, simply misses the
// notification. Presence is never queued.
func (rt *Router) fanoutPresence(user string, online bool) {
	for _, other := range rt.registry.ListOnline(user) {
		handle, ok := rt.registry.Lookup(other)
		if !ok {
			continue
		}
		if err := handle.Push(domain.NewPresence(user, other, online)); err != nil {
			rt.log.Warn("Dropping presence notification",
				"about", user, "to", other, "error", err)
		}
	}
}
