package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config configurazione dell'applicazione, letta dall'ambiente.
// I flag della riga di comando hanno la precedenza.
type Config struct {
	Port          int           `env:"STORY_PORT" envDefault:"8080"`
	EnableCORS    bool          `env:"STORY_CORS" envDefault:"true"`
	Debug         bool          `env:"STORY_DEBUG" envDefault:"false"`
	LogLevel      string        `env:"STORY_LOG_LEVEL" envDefault:"info"`
	ShareBaseURL  string        `env:"STORY_SHARE_BASE_URL" envDefault:"http://localhost:8080/"`
	WatchDebounce time.Duration `env:"STORY_WATCH_DEBOUNCE" envDefault:"500ms"`
	MaxSessions   int           `env:"STORY_MAX_SESSIONS" envDefault:"1000"`
}

// Load legge la configurazione dalle variabili d'ambiente
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate controlla i valori della configurazione
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("porta non valida: %d", c.Port)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("STORY_MAX_SESSIONS deve essere positivo: %d", c.MaxSessions)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("STORY_WATCH_DEBOUNCE non può essere negativo: %v", c.WatchDebounce)
	}
	return nil
}
