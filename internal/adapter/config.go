package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mmcdole/awsync/internal/livesync"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Cache   CacheConfig   `mapstructure:"cache"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the Appwrite endpoint and credentials
type ServerConfig struct {
	Endpoint string `mapstructure:"endpoint"` // e.g. https://cloud.appwrite.io/v1
	Project  string `mapstructure:"project"`  // Project ID
	APIKey   string `mapstructure:"api_key"`  // Server key (mutually exclusive with session/jwt)
	Session  string `mapstructure:"session"`  // Session secret from email login
	JWT      string `mapstructure:"jwt"`      // Short-lived account JWT
	Email    string `mapstructure:"email"`    // Display only
}

// SyncConfig controls how sync units react to events
type SyncConfig struct {
	Policy       string        `mapstructure:"policy"` // "fine" or "coarse"
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// WatchConfig names the resources mounted at startup
type WatchConfig struct {
	Database   string   `mapstructure:"database"`
	Collection string   `mapstructure:"collection"`
	Document   string   `mapstructure:"document"`
	Queries    []string `mapstructure:"queries"` // Filter expressions, see domain.ParseFilter
}

// CacheConfig controls the on-disk snapshot cache
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	Theme         string `mapstructure:"theme"` // chroma style for the inspector
	ShowInspector bool   `mapstructure:"show_inspector"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			Policy:       string(livesync.PolicyFine),
			FetchTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Theme:         "monokai",
			ShowInspector: true,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "awsync", "awsync.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "awsync", "awsync.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "awsync")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "awsync")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "awsync", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "awsync", "cache")
	}
}

// LoadConfig loads configuration from file and environment.
// Environment overrides use the AWSYNC_ prefix, e.g. AWSYNC_SERVER_ENDPOINT.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("AWSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about
	for _, key := range []string{
		"server.endpoint", "server.project", "server.api_key", "server.session", "server.jwt",
		"sync.policy", "watch.database", "watch.collection", "watch.document",
		"cache.enabled", "logging.level",
	} {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	viper.Set("server.endpoint", cfg.Server.Endpoint)
	viper.Set("server.project", cfg.Server.Project)
	viper.Set("server.api_key", cfg.Server.APIKey)
	viper.Set("server.session", cfg.Server.Session)
	viper.Set("server.jwt", cfg.Server.JWT)
	viper.Set("server.email", cfg.Server.Email)

	viper.Set("sync.policy", cfg.Sync.Policy)
	viper.Set("sync.fetch_timeout", cfg.Sync.FetchTimeout.String())

	viper.Set("watch.database", cfg.Watch.Database)
	viper.Set("watch.collection", cfg.Watch.Collection)
	viper.Set("watch.document", cfg.Watch.Document)
	viper.Set("watch.queries", cfg.Watch.Queries)

	viper.Set("cache.enabled", cfg.Cache.Enabled)

	viper.Set("ui.theme", cfg.UI.Theme)
	viper.Set("ui.show_inspector", cfg.UI.ShowInspector)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	return writeConfig()
}

// SaveSession updates just the session secret in the configuration
func SaveSession(session string) error {
	viper.Set("server.session", session)
	return writeConfig()
}

// ClearServerConfig removes the endpoint and credentials while preserving
// the other sections
func ClearServerConfig() error {
	viper.Set("server.endpoint", "")
	viper.Set("server.project", "")
	viper.Set("server.api_key", "")
	viper.Set("server.session", "")
	viper.Set("server.jwt", "")
	viper.Set("server.email", "")
	return writeConfig()
}

func writeConfig() error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// IsConfigured returns true if an endpoint, project and some credential are set
func (c *Config) IsConfigured() bool {
	if c.Server.Endpoint == "" || c.Server.Project == "" {
		return false
	}
	return c.Server.APIKey != "" || c.Server.Session != "" || c.Server.JWT != ""
}

// Policy returns the configured update policy, defaulting to fine
func (c *Config) Policy() livesync.Policy {
	p, err := livesync.ParsePolicy(c.Sync.Policy)
	if err != nil {
		return livesync.PolicyFine
	}
	return p
}

// ClearCache removes all cached data
func ClearCache() error {
	cachePath := defaultCachePath()
	if err := os.RemoveAll(cachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// GetCachePath returns the cache directory path
func GetCachePath() string {
	return defaultCachePath()
}
