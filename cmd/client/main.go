// Terminal client for the relay: connects under a username, renders
// incoming messages and presence changes, and sends directed messages
// typed as "recipient: body". The /users command lists who else is online.
package main

import (
	"bufio"
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	wsURL := fmt.Sprintf("ws://%s/ws/chat/%s", config.ServerAddress, config.UserName)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("connecting to %s: %w", wsURL, err)
	}
	defer conn.Close()

	color.Green.Printf("Connected as %s. Type \"recipient: message\", /users, or /quit.\n", config.UserName)

	done := make(chan struct{})
	go receive(conn, done)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-done:
			return exitRuntime, fmt.Errorf("connection lost")
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return exitOK, nil
		case line == "/users":
			if err := listUsers(config); err != nil {
				color.Red.Printf("Listing failed: %v\n", err)
			}
		default:
			if err := send(conn, config.UserName, line); err != nil {
				color.Red.Printf("Send failed: %v\n", err)
			}
		}
	}
	return exitOK, scanner.Err()
}

// receive renders every inbound frame until the connection drops.
func receive(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var m domain.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			color.Red.Printf("Unreadable frame: %v\n", err)
			continue
		}
		switch m.Kind {
		case domain.KindPresence:
			color.Yellow.Printf("* %s\n", m.Body)
		default:
			color.Cyan.Printf("%s: ", m.From)
			fmt.Println(m.Body)
		}
	}
}

// send parses "recipient: body" and writes one content message.
func send(conn *websocket.Conn, user, line string) error {
	recipient, body, found := strings.Cut(line, ":")
	recipient = strings.TrimSpace(recipient)
	body = strings.TrimSpace(body)
	if !found || recipient == "" || body == "" {
		return fmt.Errorf("expected \"recipient: message\"")
	}
	return conn.WriteJSON(domain.Message{
		Body: body,
		From: user,
		To:   recipient,
		Kind: domain.KindContent,
		At:   time.Now().UTC(),
	})
}

// listUsers fetches the online listing and renders it as a table.
func listUsers(config Config) error {
	url := fmt.Sprintf("http://%s/users/%s", config.ServerAddress, config.UserName)
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var users []string
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return err
	}
	if len(users) == 0 {
		color.Yellow.Println("Nobody else is online.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Online users"})
	table.AppendBulk(lo.Map(users, func(u string, _ int) []string {
		return []string{u}
	}))
	table.Render()
	return nil
}
