// Package config loads the YAML configuration shared by voterreg and the
// record store, with .env and VOTERREG_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/voterreg/internal/models"
)

// Ledger backends
const (
	LedgerSQLite = "sqlite"
	LedgerRedis  = "redis"
	LedgerMemory = "memory"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "VOTERREG_"

// Config holds all configuration for both services
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Store        StoreConfig        `yaml:"store"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	Recovery     RecoveryConfig     `yaml:"recovery"`
	Registration RegistrationConfig `yaml:"registration"`
	Session      SessionConfig      `yaml:"session"`
	Export       ExportConfig       `yaml:"export"`
	RecordStore  RecordStoreConfig  `yaml:"recordstore"`
}

// ServerConfig holds the registration app's HTTP settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// AllowedOrigins lists front-end origins allowed to call the API with cookies
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns host:port for ListenAndServe
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig controls the application logger
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // "text" or "json"
	RedactPII bool   `yaml:"redact_pii"`
}

// StoreConfig points the app at the record store
type StoreConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// LedgerConfig selects where undelivered registrations are kept
type LedgerConfig struct {
	Backend       string        `yaml:"backend"`
	Path          string        `yaml:"path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
}

// RecoveryConfig tunes the recovery monitor and delivery retries
type RecoveryConfig struct {
	ScanInterval  time.Duration `yaml:"scan_interval"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	SettleDelay   time.Duration `yaml:"settle_delay"`
	IdleAfter     time.Duration `yaml:"idle_after"`
	EntryDelay    time.Duration `yaml:"entry_delay"`
	MaxAttempts   int           `yaml:"max_attempts"`
	BaseDelay     time.Duration `yaml:"base_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
}

// RegistrationConfig holds form rules
type RegistrationConfig struct {
	DOBMinYear int `yaml:"dob_min_year"`
	DOBMaxYear int `yaml:"dob_max_year"`
	// BaseURL is encoded in confirmation QR codes
	BaseURL string `yaml:"base_url"`
}

// SessionConfig holds admin session settings
type SessionConfig struct {
	Validity time.Duration `yaml:"validity"`
}

// ExportConfig holds CSV export settings. Archiving is enabled by a bucket.
type ExportConfig struct {
	ChunkSize int    `yaml:"chunk_size"`
	S3Bucket  string `yaml:"s3_bucket"`
	S3Prefix  string `yaml:"s3_prefix"`
	S3Region  string `yaml:"s3_region"`
}

// RecordStoreConfig configures cmd/recordstore
type RecordStoreConfig struct {
	Port          int            `yaml:"port"`
	Driver        string         `yaml:"driver"` // "sqlite3" or "postgres"
	DSN           string         `yaml:"dsn"`
	APIKey        string         `yaml:"api_key"`
	InitialAdmins []models.Admin `yaml:"initial_admins"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8081},
		Log:    LogConfig{Level: "info", Format: "text", RedactPII: true},
		Store: StoreConfig{
			URL:     "http://localhost:8090",
			Timeout: 10 * time.Second,
		},
		Ledger: LedgerConfig{
			Backend: LedgerSQLite,
			Path:    "ledger.db",
			LockTTL: 5 * time.Minute,
		},
		Recovery: RecoveryConfig{
			ScanInterval:  5 * time.Minute,
			ProbeInterval: 10 * time.Second,
			SettleDelay:   2 * time.Second,
			IdleAfter:     60 * time.Second,
			EntryDelay:    300 * time.Millisecond,
			MaxAttempts:   3,
			BaseDelay:     500 * time.Millisecond,
			MaxDelay:      8 * time.Second,
		},
		Registration: RegistrationConfig{DOBMinYear: 1920, DOBMaxYear: 2008},
		Session:      SessionConfig{Validity: 3 * time.Hour},
		Export:       ExportConfig{ChunkSize: 500, S3Prefix: "exports/"},
		RecordStore: RecordStoreConfig{
			Port:   8090,
			Driver: "sqlite3",
			DSN:    "recordstore.db",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv loads .env (if present), then path, then applies VOTERREG_*
// overrides and validates the result.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up by lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	strs := map[string]*string{
		"HOST":                &c.Server.Host,
		"LOG_LEVEL":           &c.Log.Level,
		"LOG_FORMAT":          &c.Log.Format,
		"STORE_URL":           &c.Store.URL,
		"STORE_API_KEY":       &c.Store.APIKey,
		"LEDGER_BACKEND":      &c.Ledger.Backend,
		"LEDGER_PATH":         &c.Ledger.Path,
		"REDIS_ADDR":          &c.Ledger.RedisAddr,
		"REDIS_PASSWORD":      &c.Ledger.RedisPassword,
		"BASE_URL":            &c.Registration.BaseURL,
		"EXPORT_S3_BUCKET":    &c.Export.S3Bucket,
		"EXPORT_S3_PREFIX":    &c.Export.S3Prefix,
		"EXPORT_S3_REGION":    &c.Export.S3Region,
		"RECORDSTORE_DRIVER":  &c.RecordStore.Driver,
		"RECORDSTORE_DSN":     &c.RecordStore.DSN,
		"RECORDSTORE_API_KEY": &c.RecordStore.APIKey,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PORT":             &c.Server.Port,
		"REDIS_DB":         &c.Ledger.RedisDB,
		"RECORDSTORE_PORT": &c.RecordStore.Port,
	}
	for name, dst := range ints {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"IDLE_AFTER":       &c.Recovery.IdleAfter,
		"SCAN_INTERVAL":    &c.Recovery.ScanInterval,
		"SESSION_VALIDITY": &c.Session.Validity,
	}
	for name, dst := range durations {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = d
		}
	}

	if v, ok := get("ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, origin)
			}
		}
	}
	return nil
}

// Validate reports the first setting that cannot work
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case LedgerSQLite:
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger.path is required for the sqlite backend")
		}
	case LedgerRedis:
		if c.Ledger.RedisAddr == "" {
			return fmt.Errorf("ledger.redis_addr is required for the redis backend")
		}
	case LedgerMemory:
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}

	switch c.RecordStore.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unknown record store driver %q", c.RecordStore.Driver)
	}

	if c.Registration.DOBMinYear > c.Registration.DOBMaxYear {
		return fmt.Errorf("registration.dob_min_year %d is after dob_max_year %d",
			c.Registration.DOBMinYear, c.Registration.DOBMaxYear)
	}
	if c.Recovery.MaxAttempts < 1 {
		return fmt.Errorf("recovery.max_attempts must be at least 1")
	}
	if c.Store.URL == "" {
		return fmt.Errorf("store.url is required")
	}
	if c.Server.Port <= 0 || c.RecordStore.Port <= 0 {
		return fmt.Errorf("ports must be positive")
	}
	return nil
}
