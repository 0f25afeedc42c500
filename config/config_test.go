package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("USER_FOLDER", "")
	t.Setenv("CONFIG_STORAGE", "")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PathsConfig.UserFolder != "user" {
		t.Errorf("expected user folder 'user', got %q", cfg.PathsConfig.UserFolder)
	}
	if cfg.PathsConfig.UserConfigFile != filepath.Join("user", "config.json") {
		t.Errorf("unexpected user config file %q", cfg.PathsConfig.UserConfigFile)
	}
	if cfg.PathsConfig.DefaultProfileImage != filepath.Join("defaults", ProfileImageName) {
		t.Errorf("unexpected profile image %q", cfg.PathsConfig.DefaultProfileImage)
	}
	if cfg.StorageConfig.Backend != "file" {
		t.Errorf("expected file backend, got %q", cfg.StorageConfig.Backend)
	}
	if cfg.ServerConfig.Addr() != "127.0.0.1:5001" {
		t.Errorf("unexpected server addr %q", cfg.ServerConfig.Addr())
	}
	if cfg.ServerConfig.ShutdownDuration() != 10*time.Second {
		t.Errorf("unexpected shutdown duration %v", cfg.ServerConfig.ShutdownDuration())
	}
}

func TestLoadFrom_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.json")
	if err := os.WriteFile(path, []byte(`{
		"paths": {"user_folder": "/srv/bot"},
		"storage": {"backend": "postgres", "name": "main"},
		"security": {"key_source": "vault"}
	}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_STORAGE", "redis")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("IN_BACKTESTING", "true")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PathsConfig.UserConfigFile != filepath.Join("/srv/bot", "config.json") {
		t.Errorf("user config file should follow the user folder, got %q", cfg.PathsConfig.UserConfigFile)
	}
	if cfg.StorageConfig.Backend != "redis" {
		t.Errorf("environment should override the file, got %q", cfg.StorageConfig.Backend)
	}
	if cfg.StorageConfig.Name != "main" {
		t.Errorf("expected document name from file, got %q", cfg.StorageConfig.Name)
	}
	if cfg.SecurityConfig.KeySource != "vault" {
		t.Errorf("expected vault key source, got %q", cfg.SecurityConfig.KeySource)
	}
	if cfg.PostgresConfig.Port != 6543 {
		t.Errorf("expected port 6543, got %d", cfg.PostgresConfig.Port)
	}
	if !cfg.SecurityConfig.InBacktesting {
		t.Error("expected backtesting from environment")
	}
}

func TestLoadFrom_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5432, User: "bot", Password: "pw", Database: "cfg", SSLMode: "disable"}
	want := "host=db port=5432 user=bot password=pw dbname=cfg sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestGenerateSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.json")
	if err := GenerateSampleConfig(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("sample should load: %v", err)
	}
	if cfg.StorageConfig.Name != "default" {
		t.Errorf("unexpected storage name %q", cfg.StorageConfig.Name)
	}
}
