package main

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"RELAY_SERVER_ADDR,default=localhost:8080"`
	UserName      string `env:"RELAY_USER_NAME,required=true"`
}
