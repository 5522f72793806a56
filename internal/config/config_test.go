package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("addr: \":9000\"\ndefault_room: lobby\nroom_history_limit: 20\njoin_history_limit: 10\nshutdown_timeout: 2s\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WIRECHAT_ADDR", ":9100")
	t.Setenv("WIRECHAT_CLIENT_BUFFER", "8")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Addr != ":9100" {
		t.Errorf("env should override file: addr = %q", cfg.Addr)
	}
	if cfg.ClientBuffer != 8 {
		t.Errorf("client_buffer = %d, want 8", cfg.ClientBuffer)
	}
	if cfg.DefaultRoom != "lobby" || cfg.RoomHistoryLimit != 20 || cfg.JoinHistoryLimit != 10 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.ShutdownTimeout != 2*time.Second {
		t.Errorf("shutdown_timeout = %v, want 2s", cfg.ShutdownTimeout)
	}
	if cfg.ConversationFetchLimit != Default().ConversationFetchLimit {
		t.Errorf("missing keys should keep defaults, got %d", cfg.ConversationFetchLimit)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("room_history_limit: 10\njoin_history_limit: 50\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := Load(nil, path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":7000", LogLevel: "debug"})

	if cfg.Addr != ":7000" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ShutdownTimeout != Default().ShutdownTimeout {
		t.Fatalf("zero values must not override: %v", cfg.ShutdownTimeout)
	}
}
