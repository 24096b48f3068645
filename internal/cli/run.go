package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/lu-zhengda/contactsync/internal/app"
	"github.com/lu-zhengda/contactsync/internal/callback"
	"github.com/lu-zhengda/contactsync/internal/config"
	"github.com/lu-zhengda/contactsync/internal/domain"
	"github.com/lu-zhengda/contactsync/internal/provider"
	"github.com/lu-zhengda/contactsync/internal/provider/people"
	"github.com/lu-zhengda/contactsync/internal/source"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"
)

const shutdownTimeout = 5 * time.Second

type runFlags struct {
	yes     bool
	isolate bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "continue to the next account without asking")
	cmd.Flags().BoolVar(&f.isolate, "isolate", false, "sync each account in a separate worker process")
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sync every account in the accounts file (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runSync(cmd *cobra.Command, flags runFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flags.yes {
		cfg.Sync.AutoContinue = true
	}
	if flags.isolate {
		cfg.Sync.Isolation = config.IsolationProcess
	}

	logs, err := setupLogging(cfg.Paths.LogFile)
	if err != nil {
		return err
	}
	defer logs.Close()

	accounts, err := config.LoadAccounts(cfg.Paths.Accounts)
	if err != nil {
		return err
	}
	oauthCfg, err := people.LoadClientConfig(cfg.Paths.ClientSecret, cfg.Server.RedirectURL)
	if err != nil {
		return err
	}
	poll, err := cfg.PollInterval()
	if err != nil {
		return err
	}

	journal, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer journal.Close()

	runID := uuid.NewString()
	runner, err := newRunner(cfg, oauthCfg, runID)
	if err != nil {
		return err
	}

	// Prompts go to stderr when stdout carries the JSON summary.
	var out io.Writer = os.Stdout
	if jsonFlag {
		out = os.Stderr
	}

	tokens := newTokenStore(cfg)
	ctrl := app.NewController(app.Options{
		RunID:    runID,
		Accounts: accounts,
		Store:    tokens,
		AuthURL: func(accountID string) string {
			return people.AuthURL(oauthCfg, accountID)
		},
		Runner:       runner,
		Journal:      journal,
		PollInterval: poll,
		AutoContinue: cfg.Sync.AutoContinue,
		Out:          out,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}
	srv := &http.Server{
		Handler:           callback.NewServer(oauthCfg, tokens, accounts, ctrl),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[auth] callback server stopped: %v", err)
		}
	}()
	log.Printf("[auth] callback server listening on %s", ln.Addr())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[auth] callback server shutdown: %v", err)
		}
	}()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		go ctrl.ReadDecisions(os.Stdin)
	} else if !cfg.Sync.AutoContinue {
		log.Printf("[queue] stdin is not a terminal; answer prompts with GET /continue?proceed=y|n")
	}

	final, runErr := ctrl.Run(ctx)
	if jsonFlag {
		if err := printJSON(toJSONRunSummary(final)); err != nil {
			return err
		}
	} else if err := printRunSummary(os.Stdout, final); err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// newRunner picks the isolation strategy for account syncs.
func newRunner(cfg *config.Config, oauthCfg *oauth2.Config, runID string) (app.Runner, error) {
	if cfg.Sync.Isolation != config.IsolationProcess {
		return inProcessRunner(cfg, oauthCfg), nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable for workers: %w", err)
	}
	env := []string{config.EnvRunID + "=" + runID}
	if path := configPath(); path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		env = append(env, config.EnvConfigPath+"="+path)
	}
	return &app.ProcessRunner{Executable: exe, Env: env, Output: os.Stderr}, nil
}

func inProcessRunner(cfg *config.Config, oauthCfg *oauth2.Config) *app.InProcessRunner {
	return &app.InProcessRunner{
		LoadContacts: func() ([]domain.Contact, error) {
			return source.ReadContacts(cfg.Paths.Contacts)
		},
		NewProvider: func(ctx context.Context, accountID string, token *oauth2.Token) (provider.ContactsProvider, error) {
			return people.New(ctx, oauthCfg, accountID, token)
		},
	}
}

func printRunSummary(w io.Writer, s app.State) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\nRun %s\n", s.RunID)
	fmt.Fprintln(tw, "ACCOUNT\tSTATE\tDETAIL")
	for _, a := range s.Accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.State, a.Detail)
	}
	return tw.Flush()
}
