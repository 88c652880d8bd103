package test

import (
	"chat-relay/domain"
	"chat-relay/httpapi"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/transport/ws"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T) *httptest.Server {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Reduced value log size for testing
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	moderator, err := moderation.NewModerator([]string{"badger"}, '*')
	req.NoError(err)

	registry := runtime.NewRegistry()
	history := repositories.NewBadgerHistory(db, log)
	router := runtime.NewRouter(log, registry, history, moderator)

	chat := ws.NewHandler(log, router, ws.Options{
		SendBufferSize: 32,
		WriteTimeout:   2 * time.Second,
		PingInterval:   50 * time.Second,
		PongTimeout:    60 * time.Second,
		MaxMessageSize: 4096,
	})
	server := httpapi.NewServer(log, router, chat, ":0")

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat/" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) domain.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m domain.Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func send(t *testing.T, conn *websocket.Conn, from, to, body string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"message":  body,
		"fromUser": from,
		"toUser":   to,
		"type":     int(domain.KindContent),
	}))
}

func listUsers(t *testing.T, ts *httptest.Server, user string) []string {
	t.Helper()
	req := require.New(t)
	resp, err := http.Get(fmt.Sprintf("%s/users/%s", ts.URL, user))
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var users []string
	req.NoError(json.NewDecoder(resp.Body).Decode(&users))
	return users
}

// Full conversation over real websockets: presence on arrival, live
// delivery, queueing while the peer is away, and an in-order replay when
// they come back.
func Test_Scenario(t *testing.T) {
	req := require.New(t)
	ts := startRelay(t)

	// Given alice online
	alice := dial(t, ts, "alice")
	defer alice.Close()

	// When bob joins, alice is notified
	bob := dial(t, ts, "bob")
	online := receive(t, alice)
	req.Equal(domain.KindPresence, online.Kind)
	req.Equal("bob is online.", online.Body)
	req.Equal("bob", online.From)
	req.Equal("alice", online.To)

	// And the listing shows each the other, never themselves
	req.Equal([]string{"bob"}, listUsers(t, ts, "alice"))
	req.Equal([]string{"alice"}, listUsers(t, ts, "bob"))

	// When alice writes to bob, he receives it live
	send(t, alice, "alice", "bob", "hi")
	hi := receive(t, bob)
	req.Equal(domain.KindContent, hi.Kind)
	req.Equal("hi", hi.Body)
	req.Equal("alice", hi.From)

	// Censored vocabulary is masked before it reaches bob
	send(t, alice, "alice", "bob", "the badger waves")
	masked := receive(t, bob)
	req.Equal("the ****** waves", masked.Body)

	// When bob drops, alice is notified
	req.NoError(bob.Close())
	offline := receive(t, alice)
	req.Equal(domain.KindPresence, offline.Kind)
	req.Equal("bob is offline.", offline.Body)
	req.Empty(listUsers(t, ts, "alice"))

	// Messages to the departed bob are accepted silently
	send(t, alice, "alice", "bob", "later")

	// Give the router time to queue before bob returns
	time.Sleep(200 * time.Millisecond)

	// When bob reconnects, the conversation replays oldest first
	bob = dial(t, ts, "bob")
	defer bob.Close()

	var replayed []string
	for i := 0; i < 3; i++ {
		replayed = append(replayed, receive(t, bob).Body)
	}
	req.Equal([]string{"hi", "the ****** waves", "later"}, replayed)

	// And alice learns bob is back
	back := receive(t, alice)
	req.Equal("bob is online.", back.Body)
}

// A second login for the same name takes over the slot; the older
// connection is shut down rather than left to shadow the new one.
func Test_Reconnect_Takes_Over_The_Slot(t *testing.T) {
	req := require.New(t)
	ts := startRelay(t)

	carol := dial(t, ts, "carol")
	first := dial(t, ts, "dave")

	// carol sees dave arrive once
	req.Equal("dave is online.", receive(t, carol).Body)

	// When dave logs in again elsewhere
	second := dial(t, ts, "dave")
	defer second.Close()
	req.Equal("dave is online.", receive(t, carol).Body)

	// Then the first connection is closed by the server
	req.NoError(first.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := first.ReadMessage()
	req.Error(err)

	// And messages reach the surviving connection only
	send(t, carol, "carol", "dave", "which one are you")
	req.Equal("which one are you", receive(t, second).Body)

	// The eviction never announced dave as offline
	req.Equal([]string{"dave"}, listUsers(t, ts, "carol"))
}
