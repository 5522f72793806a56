package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix      = "WIRECHAT"
	envConfigDir   = "WIRECHAT_CONFIG_DEFAULT_PATH"
	configFileName = "config.yaml"
)

// Load resolves the config file path, creates the file with defaults if it
// does not exist, and layers it under WIRECHAT_* environment variables.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()
	path := configPath(explicitPath)

	v := newViper(cfg)
	v.SetConfigFile(path)

	switch err := v.ReadInConfig(); {
	case err == nil:
		debugf(logger, path, "config file loaded")
	case isNotExist(err):
		// Defaults are already registered; the file is only a template.
		if writeErr := writeDefaults(path, cfg); writeErr != nil {
			if logger != nil {
				logger.Warn().Err(writeErr).Str("path", path).Msg("could not write default config")
			}
		} else if logger != nil {
			logger.Info().Str("path", path).Msg("wrote default config")
		}
	default:
		return cfg, path, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, path, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// newViper registers every key with its default so AutomaticEnv also covers
// keys that are absent from the file.
func newViper(cfg Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range map[string]any{
		"service_name":               cfg.ServiceName,
		"addr":                       cfg.Addr,
		"read_header_timeout":        cfg.ReadHeaderTimeout,
		"shutdown_timeout":           cfg.ShutdownTimeout,
		"log_level":                  cfg.LogLevel,
		"log_format":                 cfg.LogFormat,
		"default_room":               cfg.DefaultRoom,
		"default_room_display_name":  cfg.DefaultRoomDisplayName,
		"room_history_limit":         cfg.RoomHistoryLimit,
		"join_history_limit":         cfg.JoinHistoryLimit,
		"conversation_history_limit": cfg.ConversationHistoryLimit,
		"conversation_fetch_limit":   cfg.ConversationFetchLimit,
		"client_buffer":              cfg.ClientBuffer,
		"max_message_bytes":          cfg.MaxMessageBytes,
		"rate_limit_per_second":      cfg.RateLimitPerSecond,
		"rate_limit_burst":           cfg.RateLimitBurst,
	} {
		v.SetDefault(key, value)
	}
	return v
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// configPath picks the explicit path, then $WIRECHAT_CONFIG_DEFAULT_PATH,
// then the working directory.
func configPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if dir := os.Getenv(envConfigDir); dir != "" {
		return filepath.Join(dir, configFileName)
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, configFileName)
	}
	return configFileName
}

func writeDefaults(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func debugf(logger *zerolog.Logger, path, msg string) {
	if logger != nil {
		logger.Debug().Str("path", path).Msg(msg)
	}
}
