package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultBootstrapFile is read by Load when present in the working directory.
const DefaultBootstrapFile = "bootstrap.json"

type Config struct {
	PathsConfig    PathsConfig    `json:"paths"`
	StorageConfig  StorageConfig  `json:"storage"`
	LoggingConfig  LoggingConfig  `json:"logging"`
	SecurityConfig SecurityConfig `json:"security"`
	// Optional backends
	VaultConfig    VaultConfig    `json:"vault"`
	RedisConfig    RedisConfig    `json:"redis"`
	PostgresConfig PostgresConfig `json:"postgres"`
	// Admin HTTP surface
	ServerConfig ServerConfig `json:"server"`
	AuthConfig   AuthConfig   `json:"auth"`
}

// PathsConfig holds the user folder layout and the shipped defaults
type PathsConfig struct {
	UserFolder          string `json:"user_folder"`
	UserConfigFile      string `json:"user_config_file"`
	ProfilesFolder      string `json:"profiles_folder"`
	DefaultProfile      string `json:"default_profile"`       // name of the profile folder created on first run
	DefaultConfigFile   string `json:"default_config_file"`   // shipped config copied on first run
	DefaultProfileFile  string `json:"default_profile_file"`  // shipped profile.json
	DefaultProfileImage string `json:"default_profile_image"` // shipped avatar
}

// ProfileFileName is the name of the profile document inside a profile folder
const ProfileFileName = "profile.json"

// ProfileImageName is the name of the avatar inside a profile folder
const ProfileImageName = "default_profile.png"

// StorageConfig selects where the configuration document is persisted
type StorageConfig struct {
	Backend  string `json:"backend"`   // file, redis, postgres
	Name     string `json:"name"`      // document name for redis/postgres backends
	RedisKey string `json:"redis_key"` // key prefix for the redis backend
}

type LoggingConfig struct {
	Level       string `json:"level"`        // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output"`       // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format"`  // Output as JSON
	IncludeFile bool   `json:"include_file"` // Include file and line number
}

// SecurityConfig holds the credential encryption settings
type SecurityConfig struct {
	EncryptionKey string `json:"encryption_key"`  // passphrase, stretched with HKDF
	KeySource     string `json:"key_source"`      // env or vault
	VaultKeyPath  string `json:"vault_key_path"`  // path under vault mount holding the passphrase
	VaultKeyField string `json:"vault_key_field"` // field name in the vault secret
	InBacktesting bool   `json:"in_backtesting"`  // simulation only run, silences the liveness advisory
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"` // KV secrets engine mount path
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// RedisConfig holds Redis configuration for the redis document backend
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// PostgresConfig holds PostgreSQL configuration for the postgres document backend
type PostgresConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// DSN builds the pgx connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"` // CORS allowed origins
	ReadTimeout     int    `json:"read_timeout"`    // Seconds
	WriteTimeout    int    `json:"write_timeout"`   // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

// Addr returns host:port
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig holds authentication configuration for the HTTP surface
type AuthConfig struct {
	Enabled   bool   `json:"enabled"`
	JWTSecret string `json:"jwt_secret"`
	Issuer    string `json:"issuer"`
}

func Load() (*Config, error) {
	return LoadFrom(DefaultBootstrapFile)
}

// LoadFrom reads the bootstrap file (a missing file is not an error) and
// applies environment overrides on top.
func LoadFrom(filename string) (*Config, error) {
	cfg, err := loadFromFile(filename)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
// Note: CONFIG_ENCRYPTION_KEY is ignored when the key source is "vault".
func applyEnvOverrides(cfg *Config) {
	// Paths
	cfg.PathsConfig.UserFolder = getEnvOrDefault("USER_FOLDER", orDefault(cfg.PathsConfig.UserFolder, "user"))
	cfg.PathsConfig.UserConfigFile = getEnvOrDefault("USER_CONFIG_FILE",
		orDefault(cfg.PathsConfig.UserConfigFile, filepath.Join(cfg.PathsConfig.UserFolder, "config.json")))
	cfg.PathsConfig.ProfilesFolder = getEnvOrDefault("PROFILES_FOLDER",
		orDefault(cfg.PathsConfig.ProfilesFolder, filepath.Join(cfg.PathsConfig.UserFolder, "profiles")))
	cfg.PathsConfig.DefaultProfile = getEnvOrDefault("DEFAULT_PROFILE", orDefault(cfg.PathsConfig.DefaultProfile, "default"))
	cfg.PathsConfig.DefaultConfigFile = getEnvOrDefault("DEFAULT_CONFIG_FILE",
		orDefault(cfg.PathsConfig.DefaultConfigFile, filepath.Join("defaults", "default_config.json")))
	cfg.PathsConfig.DefaultProfileFile = getEnvOrDefault("DEFAULT_PROFILE_FILE",
		orDefault(cfg.PathsConfig.DefaultProfileFile, filepath.Join("defaults", ProfileFileName)))
	cfg.PathsConfig.DefaultProfileImage = getEnvOrDefault("DEFAULT_PROFILE_IMAGE",
		orDefault(cfg.PathsConfig.DefaultProfileImage, filepath.Join("defaults", ProfileImageName)))

	// Storage
	cfg.StorageConfig.Backend = getEnvOrDefault("CONFIG_STORAGE", orDefault(cfg.StorageConfig.Backend, "file"))
	cfg.StorageConfig.Name = getEnvOrDefault("CONFIG_NAME", orDefault(cfg.StorageConfig.Name, "default"))
	cfg.StorageConfig.RedisKey = getEnvOrDefault("CONFIG_REDIS_KEY", orDefault(cfg.StorageConfig.RedisKey, "tradebot:config"))

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", orDefault(cfg.LoggingConfig.Level, "INFO"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", orDefault(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.LoggingConfig.JSONFormat)
	cfg.LoggingConfig.IncludeFile = getEnvBoolOrDefault("LOG_INCLUDE_FILE", cfg.LoggingConfig.IncludeFile)

	// Security config
	cfg.SecurityConfig.KeySource = getEnvOrDefault("CONFIG_KEY_SOURCE", orDefault(cfg.SecurityConfig.KeySource, "env"))
	cfg.SecurityConfig.EncryptionKey = getEnvOrDefault("CONFIG_ENCRYPTION_KEY", cfg.SecurityConfig.EncryptionKey)
	cfg.SecurityConfig.VaultKeyPath = getEnvOrDefault("VAULT_KEY_PATH", orDefault(cfg.SecurityConfig.VaultKeyPath, "tradebot/encryption"))
	cfg.SecurityConfig.VaultKeyField = getEnvOrDefault("VAULT_KEY_FIELD", orDefault(cfg.SecurityConfig.VaultKeyField, "key"))
	cfg.SecurityConfig.InBacktesting = getEnvBoolOrDefault("IN_BACKTESTING", cfg.SecurityConfig.InBacktesting)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvBoolOrDefault("VAULT_ENABLED", cfg.VaultConfig.Enabled)
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", orDefault(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", orDefault(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.TLSEnabled = getEnvBoolOrDefault("VAULT_TLS_ENABLED", cfg.VaultConfig.TLSEnabled)
	cfg.VaultConfig.CACert = getEnvOrDefault("VAULT_CACERT", cfg.VaultConfig.CACert)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDR", orDefault(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", orDefaultInt(cfg.RedisConfig.PoolSize, 5))

	// Postgres config
	cfg.PostgresConfig.Enabled = getEnvBoolOrDefault("DB_ENABLED", cfg.PostgresConfig.Enabled)
	cfg.PostgresConfig.Host = getEnvOrDefault("DB_HOST", orDefault(cfg.PostgresConfig.Host, "localhost"))
	cfg.PostgresConfig.Port = getEnvIntOrDefault("DB_PORT", orDefaultInt(cfg.PostgresConfig.Port, 5432))
	cfg.PostgresConfig.User = getEnvOrDefault("DB_USER", orDefault(cfg.PostgresConfig.User, "trading_bot"))
	cfg.PostgresConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.PostgresConfig.Password)
	cfg.PostgresConfig.Database = getEnvOrDefault("DB_NAME", orDefault(cfg.PostgresConfig.Database, "trading_bot"))
	cfg.PostgresConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", orDefault(cfg.PostgresConfig.SSLMode, "disable"))

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", orDefaultInt(cfg.ServerConfig.Port, 5001))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", orDefault(cfg.ServerConfig.Host, "127.0.0.1"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", orDefault(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", orDefaultInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", orDefaultInt(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", orDefaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	// Auth config
	cfg.AuthConfig.Enabled = getEnvBoolOrDefault("AUTH_ENABLED", cfg.AuthConfig.Enabled)
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.Issuer = getEnvOrDefault("AUTH_ISSUER", orDefault(cfg.AuthConfig.Issuer, "trading-bot"))
}

// ShutdownDuration returns the server shutdown timeout as a duration
func (c ServerConfig) ShutdownDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func orDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func orDefaultInt(value, defaultValue int) int {
	if value == 0 {
		return defaultValue
	}
	return value
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// GenerateSampleConfig creates a sample bootstrap file
func GenerateSampleConfig(filename string) error {
	config := Config{
		PathsConfig: PathsConfig{
			UserFolder:     "user",
			UserConfigFile: filepath.Join("user", "config.json"),
			ProfilesFolder: filepath.Join("user", "profiles"),
			DefaultProfile: "default",
		},
		StorageConfig: StorageConfig{
			Backend: "file",
			Name:    "default",
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
		SecurityConfig: SecurityConfig{
			KeySource: "env",
		},
		ServerConfig: ServerConfig{
			Port:           5001,
			Host:           "127.0.0.1",
			AllowedOrigins: "*",
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
