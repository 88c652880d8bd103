package main

import (
	"chat-relay/contract"
	"chat-relay/httpapi"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/transport/ws"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanups always execute before
// the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. History backend
	var history contract.History
	switch config.HistoryBackend {
	case "memory":
		history = repositories.NewMemoryHistory(log, config.HistoryLimit)
	case "badger":
		if config.BadgerFilepath == "" {
			return fmt.Errorf("BADGER_FILEPATH is required with the badger backend")
		}
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
		history = repositories.NewBadgerHistory(db, log)
	default:
		return fmt.Errorf("unknown history backend %q", config.HistoryBackend)
	}

	// 3. Moderation (optional)
	var moderator *moderation.Moderator
	if config.CensoredWordsPath != "" {
		words, err := moderation.LoadWords(config.CensoredWordsPath)
		if err != nil {
			return fmt.Errorf("loading censored words: %w", err)
		}
		maskChar, err := characterRune(config.CensoredChar)
		if err != nil {
			return err
		}
		moderator, err = moderation.NewModerator(words, maskChar)
		if err != nil {
			return fmt.Errorf("building moderator: %w", err)
		}
		log.Info(fmt.Sprintf("%d censored words loaded", len(words)))
	}

	// 4. Core: registry + router
	registry := runtime.NewRegistry()
	router := runtime.NewRouter(log, registry, history, moderator)

	// 5. Supervised background workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	if config.HistoryTTL > 0 {
		sup.Add(workers.NewRetentionWorker(log, history, config.HistoryTTL, config.RetentionInterval))
	}

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sup.Run(ctx)
	}()

	// 7. HTTP server (websocket endpoint + listing surface)
	chat := ws.NewHandler(log, router, ws.Options{
		SendBufferSize: config.SendBufferSize,
		WriteTimeout:   config.WriteTimeout,
		PingInterval:   config.PingInterval,
		PongTimeout:    config.PongTimeout,
		MaxMessageSize: config.MaxMessageSize,
	})
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := httpapi.NewServer(log, router, chat, address)

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", "address", address, "at", time.Now().UTC())
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	wg.Wait()
	log.Info("Program stopped cleanly")

	return nil
}

func characterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CENSORED_CHARACTER must be a single character, got %q", str)
	}
	return r[0], nil
}
