package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Mode selects which variant of the bridge runs.
type Mode string

const (
	// ModeRelay relays RCON event text to the channel and nothing else.
	ModeRelay Mode = "relay"
	// ModePresence additionally polls the player count and reflects it
	// into the bridge presence and the channel topic.
	ModePresence Mode = "presence"
)

// UnmarshalText lets the env loader parse Mode values; validation of the
// allowed set happens in validate.
func (m *Mode) UnmarshalText(text []byte) error {
	*m = Mode(text)
	return nil
}

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	DiscordToken     string `env:"DISCORD_TOKEN"`
	DiscordChannelID string `env:"DISCORD_CHANNEL_ID"`

	RCONHost     string `env:"RCON_HOST"`
	RCONPort     string `env:"RCON_PORT"`
	RCONPassword string `env:"RCON_PASSWORD"`

	EventCommand   string `env:"RCON_EVENT_COMMAND" default:"checkEvents"`
	PlayersCommand string `env:"RCON_PLAYERS_COMMAND" default:"players"`

	BridgeMode Mode `env:"BRIDGE_MODE" default:"presence"`

	PollInterval    time.Duration `env:"POLL_INTERVAL" default:"10s"`
	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT" default:"15s"`
	FailureCooldown time.Duration `env:"FAILURE_COOLDOWN" default:"60s"`

	MaxChunkSize int `env:"MAX_CHUNK_SIZE" default:"1900"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DISCORD_TOKEN":      cfg.DiscordToken,
		"DISCORD_CHANNEL_ID": cfg.DiscordChannelID,
		"RCON_HOST":          cfg.RCONHost,
		"RCON_PORT":          cfg.RCONPort,
		"RCON_PASSWORD":      cfg.RCONPassword,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.BridgeMode != ModeRelay && cfg.BridgeMode != ModePresence {
		return fmt.Errorf("BRIDGE_MODE must be %q or %q, got %q", ModeRelay, ModePresence, cfg.BridgeMode)
	}

	if cfg.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.ConnectTimeout <= 0 {
		return fmt.Errorf("CONNECT_TIMEOUT must be positive, got %s", cfg.ConnectTimeout)
	}
	if cfg.FailureCooldown < 0 {
		return fmt.Errorf("FAILURE_COOLDOWN must not be negative, got %s", cfg.FailureCooldown)
	}

	// Discord caps messages at 2000 characters; 1900 leaves headroom.
	if cfg.MaxChunkSize <= 0 || cfg.MaxChunkSize > 2000 {
		return fmt.Errorf("MAX_CHUNK_SIZE must be between 1 and 2000, got %d", cfg.MaxChunkSize)
	}

	return nil
}

// RCONAddress returns the host:port pair of the RCON endpoint.
func (c *Config) RCONAddress() string {
	return fmt.Sprintf("%s:%s", c.RCONHost, c.RCONPort)
}
