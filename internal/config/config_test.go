package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// chdir moves into an empty directory so no stray config.yaml is read.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AppPort != "8080" || cfg.BackendURL != DefaultBackendURL || cfg.AuthScheme != "Areeb" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.TokenStore != StoreFile || cfg.EventsCache != StoreMemory {
		t.Fatalf("stores = %q/%q", cfg.TokenStore, cfg.EventsCache)
	}
	if cfg.Database.Port != "5432" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("nested defaults not decoded: %+v", cfg)
	}
	if cfg.NeedsRedis() {
		t.Fatal("defaults should not need redis")
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	yaml := "APP_PORT: \"9000\"\nLOG_LEVEL: debug\nREQUEST_TIMEOUT: 5s\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("TOKEN_STORE", "redis")

	cfg, err := Load([]string{"--port", "7000"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AppPort != "7000" {
		t.Fatalf("AppPort = %q, want flag value 7000", cfg.AppPort)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want env value warn", cfg.LogLevel)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("RequestTimeout = %v, want 5s from file", cfg.RequestTimeout)
	}
	if !cfg.NeedsRedis() {
		t.Fatal("redis token store should need redis")
	}
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := Load([]string{"--token-store", "s3"}); err == nil {
		t.Fatal("expected error for unknown token store")
	}
}

func TestLoadHelp(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := Load([]string{"--help"}); !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("Load(--help) error = %v, want pflag.ErrHelp", err)
	}
}
