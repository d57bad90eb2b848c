package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=32"`
	KeepaliveInterval    time.Duration `env:"KEEPALIVE_INTERVAL,default=25s"`
	RoomTTL              time.Duration `env:"ROOM_TTL,default=2h"`
	// SweepInterval enables the periodic eviction worker; zero keeps
	// eviction lazy (request-triggered only).
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=0"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	// AuthSecret enables in-relay role binding; empty trusts the caller's
	// claimed role and leaves authentication to an external collaborator.
	AuthSecret        string        `env:"AUTH_SECRET"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=4h"`
	CensoredWords     string        `env:"CENSORED_WORDS"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
}
