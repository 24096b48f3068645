package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/lu-zhengda/contactsync/internal/config"
	"github.com/lu-zhengda/contactsync/internal/store"
	"github.com/lu-zhengda/contactsync/internal/store/sqlite"
	"github.com/spf13/cobra"
)

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string

	// jsonFlag enables JSON output for all commands.
	jsonFlag bool
)

func NewRootCmd() *cobra.Command {
	var flags runFlags

	root := &cobra.Command{
		Use:   "contactsync",
		Short: "Replace the Google Contacts of several accounts with a CSV export",
		Long: "Walks the accounts listed in the accounts file one at a time, authorizing\n" +
			"each through the browser when needed, and replaces its contacts with the\n" +
			"records of the contact export.",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, flags)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("contactsync %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	flags.register(root)
	root.AddCommand(newRunCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newAccountsCmd())
	root.AddCommand(newAuthURLCmd())
	root.AddCommand(newHistoryCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// configPath returns the config file in effect: the flag, then the
// environment, then the XDG default.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

// loadConfig loads .env from the working directory, then the config file.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openJournal creates the journal's directory and opens the SQLite database.
func openJournal(cfg *config.Config) (*sqlite.DB, error) {
	path := cfg.JournalPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return db, nil
}

func newTokenStore(cfg *config.Config) store.TokenStore {
	if cfg.Tokens.Backend == config.TokenBackendKeyring {
		return store.NewKeyringTokenStore()
	}
	return store.NewFileTokenStore(cfg.Paths.TokenDir)
}

// setupLogging mirrors the standard logger to stderr and the append-only log
// file. The returned closer restores stderr-only logging.
func setupLogging(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return closerFunc(func() error {
		log.SetOutput(os.Stderr)
		return f.Close()
	}), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
