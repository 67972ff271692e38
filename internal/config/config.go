package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loaded from a YAML file. Flags may
// override individual fields after loading.
type Config struct {
	DBPath       string `yaml:"db_path"`
	Addr         string `yaml:"addr"`
	LogPath      string `yaml:"log_path"`
	StorehouseID int64  `yaml:"storehouse_id"`

	Messenger MessengerConfig `yaml:"messenger"`
	Decoder   DecoderConfig   `yaml:"decoder"`
}

// MessengerConfig configures the outbound chat bridge.
type MessengerConfig struct {
	// SendURL is the chat bridge endpoint outbound messages are posted to.
	SendURL string `yaml:"send_url"`
	// RatePerSecond caps outbound sends; chat transports throttle flooders.
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// DecoderConfig configures the external QR decode service.
type DecoderConfig struct {
	URL string `yaml:"url"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DBPath:       "trackbot.sqlite3",
		Addr:         ":8080",
		StorehouseID: 1,
		Messenger: MessengerConfig{
			RatePerSecond: 25,
			Burst:         5,
		},
	}
}

// Load reads a YAML config file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the loaded values for obvious misconfiguration.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.StorehouseID <= 0 {
		return fmt.Errorf("storehouse_id must be positive")
	}
	if c.Messenger.RatePerSecond <= 0 {
		return fmt.Errorf("messenger.rate_per_second must be positive")
	}
	if c.Messenger.Burst < 1 {
		return fmt.Errorf("messenger.burst must be at least 1")
	}
	return nil
}
