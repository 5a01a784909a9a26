package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Gateway kinds selectable in configuration.
const (
	GatewayLocal = "local"
	GatewayHTTP  = "http"
	GatewayIMAP  = "imap"
)

// MailboxConfig holds the IMAP settings for the mailbox-backed gateway.
type MailboxConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Folder   string `mapstructure:"folder" yaml:"folder"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// GatewayConfig selects and configures the notification backend.
type GatewayConfig struct {
	// Kind is one of "local", "http", or "imap".
	Kind string `mapstructure:"kind" yaml:"kind"`

	// BaseURL is the root URL of the REST backend (kind "http").
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// DBPath is the SQLite database file (kind "local").
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	Mailbox MailboxConfig `mapstructure:"mailbox" yaml:"mailbox"`
}

// SessionConfig controls how the current user is identified.
type SessionConfig struct {
	// UserID pins the session to a fixed identity. When empty, the
	// identity comes from the token stored in the system keyring.
	UserID string `mapstructure:"user_id" yaml:"user_id"`

	// TokenKey is the keyring entry holding the session token.
	TokenKey string `mapstructure:"token_key" yaml:"token_key"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme           string `mapstructure:"theme" yaml:"theme"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	SortNewestFirst bool   `mapstructure:"sort_newest_first" yaml:"sort_newest_first"`
	OptimisticReads bool   `mapstructure:"optimistic_reads" yaml:"optimistic_reads"`
}

// ServerConfig configures the reference REST backend.
type ServerConfig struct {
	Addr       string  `mapstructure:"addr" yaml:"addr"`
	DBPath     string  `mapstructure:"db_path" yaml:"db_path"`
	Fixtures   string  `mapstructure:"fixtures" yaml:"fixtures"`
	JWTSecret  string  `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	RatePerSec float64 `mapstructure:"rate_per_sec" yaml:"rate_per_sec"`
	Burst      int     `mapstructure:"burst" yaml:"burst"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Gateway GatewayConfig `mapstructure:"gateway" yaml:"gateway"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// ConfigDir returns ~/.config/carehub, falling back to the working
// directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "carehub")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/carehub/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Gateway: GatewayConfig{
			Kind:   GatewayLocal,
			DBPath: filepath.Join(dir, "notifications.db"),
			Mailbox: MailboxConfig{
				Port:   "993",
				Folder: "INBOX",
				TLS:    true,
			},
		},
		Session: SessionConfig{
			TokenKey: "session-token",
		},
		Display: DisplayConfig{
			Theme:           "default",
			PollIntervalSec: 60,
			SortNewestFirst: true,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			DBPath:     filepath.Join(dir, "server.db"),
			RatePerSec: 10,
			Burst:      20,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "carehub.log"),
		},
	}
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return defaultAppConfig()
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
// Environment variables prefixed with CAREHUB_ override file values
// (e.g. CAREHUB_GATEWAY_KIND=http).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("carehub")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	def := defaultAppConfig()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("gateway.kind", def.Gateway.Kind)
	v.SetDefault("gateway.base_url", def.Gateway.BaseURL)
	v.SetDefault("gateway.db_path", def.Gateway.DBPath)
	v.SetDefault("gateway.mailbox.host", def.Gateway.Mailbox.Host)
	v.SetDefault("gateway.mailbox.port", def.Gateway.Mailbox.Port)
	v.SetDefault("gateway.mailbox.username", def.Gateway.Mailbox.Username)
	v.SetDefault("gateway.mailbox.folder", def.Gateway.Mailbox.Folder)
	v.SetDefault("gateway.mailbox.tls", def.Gateway.Mailbox.TLS)
	v.SetDefault("session.user_id", def.Session.UserID)
	v.SetDefault("session.token_key", def.Session.TokenKey)
	v.SetDefault("display.theme", def.Display.Theme)
	v.SetDefault("display.poll_interval_sec", def.Display.PollIntervalSec)
	v.SetDefault("display.sort_newest_first", def.Display.SortNewestFirst)
	v.SetDefault("display.optimistic_reads", def.Display.OptimisticReads)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.db_path", def.Server.DBPath)
	v.SetDefault("server.fixtures", def.Server.Fixtures)
	v.SetDefault("server.jwt_secret", def.Server.JWTSecret)
	v.SetDefault("server.rate_per_sec", def.Server.RatePerSec)
	v.SetDefault("server.burst", def.Server.Burst)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects configurations the application cannot start with.
func (c *AppConfig) Validate() error {
	switch c.Gateway.Kind {
	case GatewayLocal:
		if c.Gateway.DBPath == "" {
			return fmt.Errorf("gateway.db_path is required for the local gateway")
		}
	case GatewayHTTP:
		if c.Gateway.BaseURL == "" {
			return fmt.Errorf("gateway.base_url is required for the http gateway")
		}
	case GatewayIMAP:
		if c.Gateway.Mailbox.Host == "" || c.Gateway.Mailbox.Username == "" {
			return fmt.Errorf("gateway.mailbox.host and username are required for the imap gateway")
		}
	default:
		return fmt.Errorf("unknown gateway kind %q", c.Gateway.Kind)
	}
	if c.Display.PollIntervalSec < 0 {
		return fmt.Errorf("display.poll_interval_sec must not be negative")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("gateway", cfg.Gateway)
	v.Set("session", cfg.Session)
	v.Set("display", cfg.Display)
	v.Set("server", cfg.Server)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
