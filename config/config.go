package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Inventory  InventoryConfig  `yaml:"inventory"`
	Persist    PersistConfig    `yaml:"persist"`
	Import     ImportConfig     `yaml:"import"`
	Report     ReportConfig     `yaml:"report"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Push       PushConfig       `yaml:"push"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port               int     `yaml:"port" default:"8080"`
	RateLimitPerSec    float64 `yaml:"rate_limit_per_sec" default:"10"`
	RateLimitBurst     int     `yaml:"rate_limit_burst" default:"20"`
	LimiterIdleMinutes int     `yaml:"limiter_idle_minutes" default:"10"`
	CacheTTLSeconds    int     `yaml:"cache_ttl_seconds" default:"300"`
	ShutdownSeconds    int     `yaml:"shutdown_seconds" default:"5"`
	MaxUploadMB        int     `yaml:"max_upload_mb" default:"32"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" default:"sqlite"`
	DSN                    string `yaml:"dsn" default:"rlis.db"`
	MaxOpenConns           int    `yaml:"max_open_conns" default:"10"`
	MaxIdleConns           int    `yaml:"max_idle_conns" default:"5"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" default:"30"`
	LogLevel               string `yaml:"log_level" default:"warn"`
}

// InventoryConfig identifies whose session this process serves.
type InventoryConfig struct {
	OwnerID   string `yaml:"owner_id" default:"default"`
	Inspector string `yaml:"inspector"`
}

// PersistConfig tunes the background store writer.
type PersistConfig struct {
	Workers      int           `yaml:"workers" default:"4"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
}

// ImportConfig controls spreadsheet header detection.
type ImportConfig struct {
	HeaderMarker string `yaml:"header_marker" default:"Inspection Number"`
	ScanRows     int    `yaml:"scan_rows" default:"20"`
}

// ReportConfig locates document templates.
type ReportConfig struct {
	TemplateDir string `yaml:"template_dir" default:"./templates"`
	DateLayout  string `yaml:"date_layout" default:"January 2, 2006"`
}

// ExtractionConfig points at an OpenAI-compatible vision endpoint. An empty
// endpoint disables extraction.
type ExtractionConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model" default:"gpt-4o-mini"`
	Timeout  time.Duration `yaml:"timeout" default:"2m"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl" default:"3600"`
	Workers    int    `yaml:"workers" default:"1"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level" default:"info"`
}

// Enabled reports whether VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// Default returns a configuration holding only default values.
func Default() *Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &cfg
}

// Load reads the configuration from the given path. Values missing from the
// file keep their defaults; environment variables override secrets.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"RLIS_DATABASE_DSN":      &cfg.Database.DSN,
		"RLIS_EXTRACTION_KEY":    &cfg.Extraction.APIKey,
		"RLIS_VAPID_PRIVATE_KEY": &cfg.Push.PrivateKey,
		"RLIS_OWNER_ID":          &cfg.Inventory.OwnerID,
	}
	for env, dst := range overrides {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Inventory.OwnerID == "" {
		return errors.New("inventory.owner_id is required")
	}
	return nil
}
