package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Polling  PollingConfig  `toml:"polling"`
	Database DatabaseConfig `toml:"database"`
	Printing PrintingConfig `toml:"printing"`
	Kiosk    KioskConfig    `toml:"kiosk"`
}

// ServerConfig describes how to reach the café order server.
type ServerConfig struct {
	BaseURL    string        `toml:"base_url"`
	Username   string        `toml:"username"`
	Password   string        `toml:"password"`
	Token      string        `toml:"token"`
	Timeout    time.Duration `toml:"timeout"`
	ActionRate float64       `toml:"action_rate"`
}

// PollingConfig contains the realtime polling settings.
type PollingConfig struct {
	OrdersInterval time.Duration `toml:"orders_interval"`
	CountsInterval time.Duration `toml:"counts_interval"`
	MaxInterval    time.Duration `toml:"max_interval"`
	MaxErrors      int           `toml:"max_errors"`
	PauseOnBlur    bool          `toml:"pause_on_blur"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PrintingConfig contains label printing settings.
type PrintingConfig struct {
	OpenViewer    bool          `toml:"open_viewer"`
	Printer       string        `toml:"printer"`
	PollInterval  time.Duration `toml:"poll_interval"`
	SettleDelay   time.Duration `toml:"settle_delay"`
	FallbackDelay time.Duration `toml:"fallback_delay"`
	Timeout       time.Duration `toml:"timeout"`
}

// KioskConfig contains the HTML board server settings.
type KioskConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Refresh int    `toml:"refresh"` // page meta refresh, seconds
}

// Addr returns the host:port listen address.
func (k KioskConfig) Addr() string {
	return fmt.Sprintf("%s:%d", k.Host, k.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate reports configuration values that would leave the client unusable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: server.base_url %q is not an absolute URL", ErrInvalidConfig, c.Server.BaseURL)
	}
	if c.Polling.OrdersInterval <= 0 || c.Polling.CountsInterval <= 0 {
		return fmt.Errorf("%w: polling intervals must be positive", ErrInvalidConfig)
	}
	if c.Polling.MaxInterval < c.Polling.OrdersInterval || c.Polling.MaxInterval < c.Polling.CountsInterval {
		return fmt.Errorf("%w: polling.max_interval must not be below the source intervals", ErrInvalidConfig)
	}
	if c.Polling.MaxErrors <= 0 {
		return fmt.Errorf("%w: polling.max_errors must be positive", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
