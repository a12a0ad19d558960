package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Remote kinds. An empty kind disables synchronization.
const (
	RemoteNone     = ""
	RemotePostgres = "postgres"
	RemoteHTTP     = "http"
)

// LocalConfig holds configuration for the CLI and the local daemon
type LocalConfig struct {
	Daemon  DaemonConfig  `yaml:"daemon"`
	Storage StorageConfig `yaml:"storage"`
	Remote  RemoteConfig  `yaml:"remote"`
	Sync    SyncConfig    `yaml:"sync"`
	Queue   QueueConfig   `yaml:"queue"`
	Workout WorkoutConfig `yaml:"workout"`
	Locale  string        `yaml:"locale"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port           int      `yaml:"port"`
	Bind           string   `yaml:"bind"`
	LogLevel       string   `yaml:"log_level"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig selects where the local replica lives
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"` // defaults to <dir>/data
}

// RemoteConfig describes the remote replica
type RemoteConfig struct {
	Kind           string `yaml:"kind"`
	URL            string `yaml:"url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RatePerSecond  int    `yaml:"rate_per_second"`
	APIKey         string `yaml:"-"` // Loaded from secrets.yaml
	Token          string `yaml:"-"` // Loaded from secrets.yaml
}

// SyncConfig holds reconciliation settings
type SyncConfig struct {
	UserID             string `yaml:"user_id"`
	AutoPush           bool   `yaml:"auto_push"`
	PushTimeoutSeconds int    `yaml:"push_timeout_seconds"`
}

// QueueConfig holds RabbitMQ settings
type QueueConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Workers int    `yaml:"workers"`
}

// WorkoutConfig holds workout timer settings
type WorkoutConfig struct {
	CatalogPath string `yaml:"catalog_path,omitempty"` // empty uses the embedded catalog
	TickMillis  int    `yaml:"tick_millis"`
}

// SecretsConfig holds credentials loaded from secrets.yaml
type SecretsConfig struct {
	Remote struct {
		URL    string `yaml:"url,omitempty"`
		APIKey string `yaml:"api_key,omitempty"`
		Token  string `yaml:"token,omitempty"`
	} `yaml:"remote"`
	Queue struct {
		URL string `yaml:"url,omitempty"`
	} `yaml:"queue"`
}

// Dir returns the configuration directory: $P21_HOME or ~/.personal21
func Dir() (string, error) {
	if dir := os.Getenv("P21_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".personal21"), nil
}

// EnsureDir creates the configuration directory and its subdirectories
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}

	for _, subdir := range []string{"", "logs", "data"} {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:           7421,
			Bind:           "127.0.0.1",
			LogLevel:       "info",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Storage: StorageConfig{
			Backend: BackendJSON,
		},
		Remote: RemoteConfig{
			Kind:           RemoteNone,
			TimeoutSeconds: 10,
			RatePerSecond:  5,
		},
		Sync: SyncConfig{
			AutoPush:           true,
			PushTimeoutSeconds: 30,
		},
		Queue: QueueConfig{
			Workers: 1,
		},
		Workout: WorkoutConfig{
			TickMillis: 1000,
		},
		Locale: "en",
	}
}

// LoadLocalConfig loads configuration from the directory returned by Dir
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadLocalConfigFrom(dir)
}

// LoadLocalConfigFrom reads config.yaml and secrets.yaml in dir, then applies
// environment overrides (optionally from dir/.env). Missing files yield defaults.
func LoadLocalConfigFrom(dir string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig()

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if bad := applyEnv(cfg); len(bad) > 0 {
		return nil, fmt.Errorf("%w: cannot parse %s", ErrInvalidConfig, strings.Join(bad, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadSecrets reads <dir>/secrets.yaml. A missing file yields empty secrets.
func ReadSecrets(dir string) (SecretsConfig, error) {
	var secrets SecretsConfig
	data, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return secrets, nil
	}
	if err != nil {
		return secrets, fmt.Errorf("read secrets: %w", err)
	}
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return secrets, fmt.Errorf("parse secrets: %w", err)
	}
	return secrets, nil
}

// loadSecrets overlays credentials from secrets.yaml onto cfg
func loadSecrets(dir string, cfg *LocalConfig) error {
	secrets, err := ReadSecrets(dir)
	if err != nil {
		return err
	}

	if secrets.Remote.URL != "" {
		cfg.Remote.URL = secrets.Remote.URL
	}
	cfg.Remote.APIKey = secrets.Remote.APIKey
	cfg.Remote.Token = secrets.Remote.Token
	if secrets.Queue.URL != "" {
		cfg.Queue.URL = secrets.Queue.URL
	}

	return nil
}

// Redacted returns a copy of c without credentials
func (c *LocalConfig) Redacted() *LocalConfig {
	out := *c
	out.Daemon.AllowedOrigins = append([]string(nil), c.Daemon.AllowedOrigins...)
	if out.Remote.APIKey != "" {
		out.Remote.APIKey = "xxxxx"
	}
	if out.Remote.Token != "" {
		out.Remote.Token = "xxxxx"
	}
	return &out
}

// Validate reports the first invalid setting
func (c *LocalConfig) Validate() error {
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("%w: daemon.port %d", ErrInvalidConfig, c.Daemon.Port)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Daemon.LogLevel) {
		return fmt.Errorf("%w: daemon.log_level %q", ErrInvalidConfig, c.Daemon.LogLevel)
	}
	if c.Storage.Backend != BackendJSON && c.Storage.Backend != BackendSQLite {
		return fmt.Errorf("%w: storage.backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	switch c.Remote.Kind {
	case RemoteNone:
	case RemotePostgres, RemoteHTTP:
		if c.Remote.URL == "" {
			return fmt.Errorf("%w: remote.url is required for %s", ErrInvalidConfig, c.Remote.Kind)
		}
	default:
		return fmt.Errorf("%w: remote.kind %q", ErrInvalidConfig, c.Remote.Kind)
	}
	if c.Queue.Enabled && c.Queue.URL == "" {
		return fmt.Errorf("%w: queue.url is required when the queue is enabled", ErrInvalidConfig)
	}
	if c.Workout.TickMillis <= 0 {
		return fmt.Errorf("%w: workout.tick_millis %d", ErrInvalidConfig, c.Workout.TickMillis)
	}
	return nil
}

// SyncEnabled reports whether a remote replica is configured
func (c *LocalConfig) SyncEnabled() bool {
	return c.Remote.Kind != RemoteNone && c.Sync.UserID != ""
}

// DataPath returns the directory holding the local replica
func (c *LocalConfig) DataPath(dir string) string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(dir, "data")
}

// EnsureUserID assigns a random user id when none is set and reports
// whether it did
func (c *LocalConfig) EnsureUserID() bool {
	if c.Sync.UserID != "" {
		return false
	}
	c.Sync.UserID = uuid.NewString()
	return true
}

// SaveLocalConfig saves configuration to <dir>/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// SaveSecrets saves credentials to <dir>/secrets.yaml
func SaveSecrets(secrets SecretsConfig) error {
	dir, err := EnsureDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	// Write with restricted permissions (owner read/write only)
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}

	return nil
}
