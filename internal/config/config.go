package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	// TurnTimeLimit of zero disables the per-turn timeout.
	TurnTimeLimit   time.Duration `env:"TURN_TIME_LIMIT" envDefault:"60s"`
	DisconnectGrace time.Duration `env:"DISCONNECT_GRACE" envDefault:"30s"`
	// FullSyncRounds is how often (in rounds) every client gets a fresh
	// snapshot regardless of deltas.
	FullSyncRounds int           `env:"FULL_SYNC_ROUNDS" envDefault:"5"`
	MonsterDelay   time.Duration `env:"MONSTER_DELAY" envDefault:"1s"`
	Debug          bool          `env:"DEBUG"`
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
