// Package config handles XDG configuration directory and file paths.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tailscale/hujson"
	"golang.org/x/text/language"
)

const (
	// AppName is the application directory name.
	AppName = "livetask"

	// SettingsFile is the JSON-with-comments settings filename.
	SettingsFile = "config.json"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// HistoryFile is the interactive shell history filename.
	HistoryFile = "history"

	// DefaultLocation is the Realtime Database location used when resolving
	// the database URL from a project.
	DefaultLocation = "us-central1"

	// DefaultListenAddr is the address serve listens on.
	DefaultListenAddr = "127.0.0.1:8080"
)

// Backend names.
const (
	BackendFirebase = "firebase"
	BackendSQLite   = "sqlite"
)

// Environment variables that override the settings file.
const (
	EnvBackend     = "LIVETASK_BACKEND"
	EnvDatabaseURL = "LIVETASK_DATABASE_URL"
	EnvSQLitePath  = "LIVETASK_SQLITE_PATH"
	EnvLocale      = "LIVETASK_LOCALE"
	EnvCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Settings are the values read from config.json and the environment.
type Settings struct {
	Backend         string `json:"backend"`
	DatabaseURL     string `json:"database_url"`
	Project         string `json:"project"`
	Location        string `json:"location"`
	Instance        string `json:"instance"`
	CredentialsFile string `json:"credentials_file"`
	SQLitePath      string `json:"sqlite_path"`
	Locale          string `json:"locale"`
	ListenAddr      string `json:"listen_addr"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	Settings
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/livetask or $HOME/.config/livetask.
// Settings are not read until Load is called.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir}, nil
}

// Load reads config.json from the config directory, then .env from the
// working directory, then applies environment overrides and defaults.
// A missing config.json or .env is not an error.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.SettingsPath())
	switch {
	case err == nil:
		s, err := ParseSettings(data)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", SettingsFile, err)
		}
		c.Settings = s
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("failed to read %s: %w", SettingsFile, err)
	}

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	c.applyEnv()
	c.applyDefaults()
	return c.validate()
}

// ParseSettings decodes a JSON-with-comments settings document.
func ParseSettings(data []byte) (Settings, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(standardized, &s); err != nil {
		return Settings{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return s, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.Backend, EnvBackend)
	override(&c.DatabaseURL, EnvDatabaseURL)
	override(&c.SQLitePath, EnvSQLitePath)
	override(&c.Locale, EnvLocale)
	if c.CredentialsFile == "" {
		override(&c.CredentialsFile, EnvCredentials)
	}
}

func (c *Config) applyDefaults() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendFirebase
	}
	if c.Location == "" {
		c.Location = DefaultLocation
	}
	if c.Instance == "" && c.Project != "" {
		c.Instance = c.Project + "-default-rtdb"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.Dir, "livetask.db")
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	c.DatabaseURL = strings.TrimRight(c.DatabaseURL, "/")
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendFirebase, BackendSQLite:
		return nil
	default:
		return fmt.Errorf("unknown backend: %s (want %s or %s)", c.Backend, BackendFirebase, BackendSQLite)
	}
}

// LocaleTag returns the configured collation locale, or language.Und when
// unset or unparsable.
func (c *Config) LocaleTag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und
	}
	return tag
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to config.json.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// HistoryPath returns the path to the shell history file.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Dir, HistoryFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
