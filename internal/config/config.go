package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

const appName = "contactsync"

// Environment variables consulted on top of the config file.
const (
	EnvConfigPath   = "CONTACTSYNC_CONFIG"
	EnvListenAddr   = "CONTACTSYNC_LISTEN_ADDR"
	EnvTokenBackend = "CONTACTSYNC_TOKEN_BACKEND"
	EnvRunID        = "CONTACTSYNC_RUN_ID"
)

// Isolation modes for running an account sync.
const (
	IsolationInProcess = "inprocess"
	IsolationProcess   = "process"
)

// Token storage backends.
const (
	TokenBackendFile    = "file"
	TokenBackendKeyring = "keyring"
)

// Config holds all contactsync configuration.
type Config struct {
	Paths  PathsConfig  `toml:"paths"`
	Server ServerConfig `toml:"server"`
	Sync   SyncConfig   `toml:"sync"`
	Tokens TokensConfig `toml:"tokens"`
}

// PathsConfig holds the on-disk inputs and outputs. Relative paths are
// resolved against the working directory.
type PathsConfig struct {
	ClientSecret string `toml:"client_secret"`
	Accounts     string `toml:"accounts"`
	Contacts     string `toml:"contacts"`
	TokenDir     string `toml:"token_dir"`
	LogFile      string `toml:"log_file"`
	Journal      string `toml:"journal"`
}

// ServerConfig holds the callback listener settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
	// RedirectURL overrides the first redirect URI of the client secret file.
	RedirectURL string `toml:"redirect_url"`
}

// SyncConfig holds per-account sync settings.
type SyncConfig struct {
	Isolation    string `toml:"isolation"`
	PollInterval string `toml:"poll_interval"`
	AutoContinue bool   `toml:"auto_continue"`
}

type TokensConfig struct {
	Backend string `toml:"backend"`
}

func defaults() Config {
	return Config{
		Paths: PathsConfig{
			ClientSecret: "csecret.json",
			Accounts:     "accounts.txt",
			Contacts:     "contacts.csv",
			TokenDir:     "tokens",
			LogFile:      "debug.log",
		},
		Server: ServerConfig{
			Addr: ":5900",
		},
		Sync: SyncConfig{
			Isolation:    IsolationInProcess,
			PollInterval: "60s",
		},
		Tokens: TokensConfig{
			Backend: TokenBackendFile,
		},
	}
}

// Load reads config from path. If path is empty, returns defaults.
// Environment overrides are applied after the file.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvListenAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvTokenBackend); v != "" {
		c.Tokens.Backend = v
	}
}

// Validate checks enumerated settings and durations.
func (c *Config) Validate() error {
	switch c.Sync.Isolation {
	case IsolationInProcess, IsolationProcess:
	default:
		return fmt.Errorf("invalid sync.isolation %q (use %q or %q)", c.Sync.Isolation, IsolationInProcess, IsolationProcess)
	}
	switch c.Tokens.Backend {
	case TokenBackendFile, TokenBackendKeyring:
	default:
		return fmt.Errorf("invalid tokens.backend %q (use %q or %q)", c.Tokens.Backend, TokenBackendFile, TokenBackendKeyring)
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}
	return nil
}

// PollInterval returns the parsed auth-wait retry interval.
func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Sync.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid sync.poll_interval %q: %w", c.Sync.PollInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid sync.poll_interval %q: must be positive", c.Sync.PollInterval)
	}
	return d, nil
}

// JournalPath returns the run journal database path, defaulting to the data dir.
func (c *Config) JournalPath() string {
	if c.Paths.Journal != "" {
		return c.Paths.Journal
	}
	return filepath.Join(DataDir(), "journal.db")
}

// DefaultPath returns the config file location used when no flag is given.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// ConfigDir returns the contactsync config directory path.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// DataDir returns the contactsync data directory path.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}
