package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config drives the end-to-end scenario. The aggressive defaults keep the
// eviction scenario fast; override through E2E_* variables when pointing at
// slower environments.
type Config struct {
	BufferSize      int           `envconfig:"BUFFER_SIZE" default:"32"`
	Keepalive       time.Duration `envconfig:"KEEPALIVE_INTERVAL" default:"25s"`
	RoomTTL         time.Duration `envconfig:"ROOM_TTL" default:"300ms"`
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"50ms"`
	RestartInterval time.Duration `envconfig:"RESTART_INTERVAL" default:"200ms"`
}

func Load() (Config, error) {
	var config Config
	err := envconfig.Process("E2E", &config)
	return config, err
}
