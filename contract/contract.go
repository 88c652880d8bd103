//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
	"time"
)

// ConnectionHandle is the per-connection capability owned by the registry
// entry of a single user. Push queues one message for that user's
// transport; Close revokes the handle and must be safe to call twice.
type ConnectionHandle interface {
	Push(m domain.Message) error
	Close() error
}

// IRegistry is the authoritative view of who is online.
type IRegistry interface {
	Connect(user string, handle ConnectionHandle) (ConnectionHandle, bool)
	Disconnect(user string) (ConnectionHandle, bool)
	Lookup(user string) (ConnectionHandle, bool)
	ListOnline(excluding string) []string
}

// History is the append-only log backing deferred delivery. Append records
// a message exactly once; ForUser returns, in append order, every message
// the user sent or was addressed.
type History interface {
	Append(m domain.Message) error
	ForUser(user string) ([]domain.Message, error)
	PruneOlderThan(cutoff time.Time) (int, error)
}

// IRouter is the delivery engine the transport layer talks to: one call per
// connection lifecycle event, plus the read-only listing surface.
type IRouter interface {
	Connect(user string, handle ConnectionHandle)
	Route(m domain.Message) error
	Disconnect(user string)
	ListOnlineExcluding(user string) []string
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
