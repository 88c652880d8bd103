// Package domain contains core concepts of the relay system.
// This file defines the Message value and its wire codec.
// Messages are immutable and validated before reaching the router.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Kind discriminates the two classes of wire messages: content sent by a
// user, and presence notifications synthesized by the router.
type Kind int

const (
	KindContent  Kind = 0
	KindPresence Kind = 1
)

var validate = validator.New()

// Message is an immutable directed chat event. The JSON tags describe the
// wire shape shared with clients; field matching on decode is
// case-insensitive. The internal ID never travels on the wire.
type Message struct {
	ID   uuid.UUID `json:"-"`
	Body string    `json:"message" validate:"required"`
	From string    `json:"fromUser" validate:"required"`
	To   string    `json:"toUser" validate:"required,nefield=From"`
	Kind Kind      `json:"type" validate:"min=0,max=1"`
	At   time.Time `json:"time"`
}

// Decode parses a wire frame into a Message, stamping the defaults a client
// may omit: the timestamp and the internal identifier.
func Decode(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}
	if m.At.IsZero() {
		m.At = time.Now().UTC()
	}
	m.ID = uuid.New()
	if err := validate.Struct(m); err != nil {
		return Message{}, fmt.Errorf("invalid message: %w", err)
	}
	return m, nil
}

// NewPresence synthesizes the notification delivered to another online user
// when someone's connection state changes. Presence messages are never
// persisted or replayed.
func NewPresence(user, recipient string, online bool) Message {
	status := "offline"
	if online {
		status = "online"
	}
	return Message{
		ID:   uuid.New(),
		Body: fmt.Sprintf("%s is %s.", user, status),
		From: user,
		To:   recipient,
		Kind: KindPresence,
		At:   time.Now().UTC(),
	}
}

// Involves reports whether user appears on either end of the message.
// Replay on reconnect is scoped with this predicate.
func (m Message) Involves(user string) bool {
	return m.From == user || m.To == user
}
