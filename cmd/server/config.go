package main

import "time"

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	SendBufferSize int           `env:"SEND_BUFFER_SIZE,default=256"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PingInterval   time.Duration `env:"PING_INTERVAL,default=54s"`
	PongTimeout    time.Duration `env:"PONG_TIMEOUT,default=60s"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE,default=4096"`

	// History retention. Backend is "memory" or "badger"; the cap only
	// applies to the memory backend, the TTL to both (zero disables it).
	HistoryBackend    string        `env:"HISTORY_BACKEND,default=memory"`
	HistoryLimit      *int          `env:"HISTORY_LIMIT"`
	HistoryTTL        time.Duration `env:"HISTORY_TTL"`
	RetentionInterval time.Duration `env:"RETENTION_INTERVAL,default=1m"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH"`

	// Moderation is enabled by pointing at a words file.
	CensoredWordsPath string `env:"CENSORED_WORDS_PATH"`
	CensoredChar      string `env:"CENSORED_CHARACTER,default=*"`
}
