// Package config loads server configuration from a TOML, YAML or JSON
// file, applies environment overrides, and validates the result. Every
// option has a default; a missing file is only an error when one was named.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server      ServerSettings      `yaml:"server" toml:"server" json:"server"`
	Limits      LimitSettings       `yaml:"limits" toml:"limits" json:"limits"`
	Maintenance MaintenanceSettings `yaml:"maintenance" toml:"maintenance" json:"maintenance"`
	Admin       AdminSettings       `yaml:"admin" toml:"admin" json:"admin"`
	Owners      []OwnerEntry        `yaml:"owners" toml:"owners" json:"owners" validate:"omitempty,dive"`

	// Source records where the configuration was loaded from.
	Source string `yaml:"-" toml:"-" json:"-" env:"-"`
}

// ServerSettings describes the listening server.
type ServerSettings struct {
	Name                string `yaml:"name" toml:"name" json:"name" env:"CROWD_SERVER_NAME" validate:"required"`
	Description         string `yaml:"description" toml:"description" json:"description" env:"CROWD_SERVER_DESC"`
	Welcome             string `yaml:"welcome" toml:"welcome" json:"welcome" env:"CROWD_SERVER_WELCOME"`
	Host                string `yaml:"host" toml:"host" json:"host" env:"CROWD_HOST"`
	Port                int    `yaml:"port" toml:"port" json:"port" env:"CROWD_PORT" validate:"gte=1,lte=65535"`
	PingIntervalSeconds int    `yaml:"ping_interval_seconds" toml:"ping_interval_seconds" json:"ping_interval_seconds" env:"CROWD_PING_INTERVAL" validate:"gte=1"`
}

// LimitSettings carries the limits the core consumes.
type LimitSettings struct {
	MaxNicknameLength int `yaml:"max_nickname_length" toml:"max_nickname_length" json:"max_nickname_length" env:"CROWD_MAX_NICKNAME_LENGTH" validate:"gte=1,lte=64"`
	MaxUsernameLength int `yaml:"max_username_length" toml:"max_username_length" json:"max_username_length" env:"CROWD_MAX_USERNAME_LENGTH" validate:"gte=1,lte=64"`
	MaxClients        int `yaml:"max_clients" toml:"max_clients" json:"max_clients" env:"CROWD_MAX_CLIENTS" validate:"gte=1"`
}

// MaintenanceSettings drives the channel sweeper in cmd; the core reads
// only the ultimatum.
type MaintenanceSettings struct {
	ChannelUltimatumSeconds    int `yaml:"channel_ultimatum_seconds" toml:"channel_ultimatum_seconds" json:"channel_ultimatum_seconds" env:"CROWD_CHANNEL_ULTIMATUM" validate:"gte=1"`
	ChannelScanIntervalSeconds int `yaml:"channel_scan_interval_seconds" toml:"channel_scan_interval_seconds" json:"channel_scan_interval_seconds" env:"CROWD_CHANNEL_SCAN_INTERVAL" validate:"gte=1"`
}

// AdminSettings describes the operational HTTP endpoint.
type AdminSettings struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"CROWD_ADMIN_ENABLED"`
	Host    string `yaml:"host" toml:"host" json:"host" env:"CROWD_ADMIN_HOST"`
	Port    int    `yaml:"port" toml:"port" json:"port" env:"CROWD_ADMIN_PORT" validate:"gte=1,lte=65535"`
}

// OwnerEntry seeds a channel owner credential. An entry with an empty
// channel is the default for channels without a specific one.
type OwnerEntry struct {
	Channel  string `yaml:"channel" toml:"channel" json:"channel"`
	Name     string `yaml:"name" toml:"name" json:"name" validate:"required"`
	Password string `yaml:"password" toml:"password" json:"password" validate:"required"`
}

// Default returns the built-in configuration, mirroring the historical
// crow.ini defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Name = "Crow IRC"
	cfg.Server.Description = "Chat-room protocol server with IRC-like semantics."
	cfg.Server.Welcome = "Welcome to Crow IRC"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 6667
	cfg.Server.PingIntervalSeconds = 3
	cfg.Limits.MaxNicknameLength = 35
	cfg.Limits.MaxUsernameLength = 35
	cfg.Limits.MaxClients = 5
	cfg.Maintenance.ChannelUltimatumSeconds = 7 * 24 * 60 * 60
	cfg.Maintenance.ChannelScanIntervalSeconds = 60 * 60
	cfg.Admin.Host = "127.0.0.1"
	cfg.Admin.Port = 8090
	return cfg
}

// Load builds the configuration: defaults, then the named file (when
// source is non-empty), then environment overrides, then validation.
func Load(source string) (*Config, error) {
	cfg := Default()

	if source != "" {
		if err := cfg.loadFile(source); err != nil {
			return nil, err
		}
		cfg.Source = source
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes a config file by extension: .toml, .yaml/.yml or .json,
// defaulting to YAML.
func (c *Config) loadFile(source string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch {
	case strings.HasSuffix(source, ".toml"):
		err = toml.Unmarshal(data, c)
	case strings.HasSuffix(source, ".json"):
		err = json.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", source, err)
	}
	return nil
}

// Validate checks every criteria-bearing option.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ListenAddress returns the host:port the chat server binds.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AdminListenAddress returns the host:port the admin endpoint binds.
func (c *Config) AdminListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Admin.Host, c.Admin.Port)
}

// PingInterval returns the transport keepalive interval.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.Server.PingIntervalSeconds) * time.Second
}

// ChannelUltimatum returns the grace period before an ownerless channel is
// swept.
func (c *Config) ChannelUltimatum() time.Duration {
	return time.Duration(c.Maintenance.ChannelUltimatumSeconds) * time.Second
}

// ChannelScanInterval returns how often the sweeper runs.
func (c *Config) ChannelScanInterval() time.Duration {
	return time.Duration(c.Maintenance.ChannelScanIntervalSeconds) * time.Second
}
