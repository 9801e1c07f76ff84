package api

import (
	"fmt"
	"net/url"

	"github.com/caarlos0/env/v11"
)

// Config holds the client configuration for the game service.
type Config struct {
	BaseURL  string `env:"DOORMAN_BASE_URL" envDefault:"https://berghain.challenges.listenlabs.ai"`
	PlayerID string `env:"DOORMAN_PLAYER_ID"`
}

// ConfigFromEnv loads the client configuration from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration before a client is constructed.
func (cfg Config) Validate() error {
	if len(cfg.PlayerID) == 0 {
		return fmt.Errorf("player ID is required (set DOORMAN_PLAYER_ID)")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	return nil
}
