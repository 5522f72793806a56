package config

import (
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	ServiceName       string        `mapstructure:"service_name" yaml:"service_name"`
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	DefaultRoom              string `mapstructure:"default_room" yaml:"default_room"`
	DefaultRoomDisplayName   string `mapstructure:"default_room_display_name" yaml:"default_room_display_name"`
	RoomHistoryLimit         int    `mapstructure:"room_history_limit" yaml:"room_history_limit"`
	JoinHistoryLimit         int    `mapstructure:"join_history_limit" yaml:"join_history_limit"`
	ConversationHistoryLimit int    `mapstructure:"conversation_history_limit" yaml:"conversation_history_limit"`
	ConversationFetchLimit   int    `mapstructure:"conversation_fetch_limit" yaml:"conversation_fetch_limit"`

	ClientBuffer       int     `mapstructure:"client_buffer" yaml:"client_buffer"`
	MaxMessageBytes    int64   `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second" yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ServiceName:       "wirechat-hub",
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",

		DefaultRoom:              "general",
		DefaultRoomDisplayName:   "General",
		RoomHistoryLimit:         100,
		JoinHistoryLimit:         50,
		ConversationHistoryLimit: 100,
		ConversationFetchLimit:   50,

		ClientBuffer:       64,
		MaxMessageBytes:    1 << 20,
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Only the keys exposed as command-line flags are considered.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.DefaultRoom == "" {
		return fmt.Errorf("default_room is required")
	}
	if c.JoinHistoryLimit > c.RoomHistoryLimit {
		return fmt.Errorf("join_history_limit (%d) exceeds room_history_limit (%d)", c.JoinHistoryLimit, c.RoomHistoryLimit)
	}
	if c.ConversationFetchLimit > c.ConversationHistoryLimit {
		return fmt.Errorf("conversation_fetch_limit (%d) exceeds conversation_history_limit (%d)",
			c.ConversationFetchLimit, c.ConversationHistoryLimit)
	}
	if c.RateLimitPerSecond < 0 {
		return fmt.Errorf("rate_limit_per_second must not be negative")
	}
	return nil
}
