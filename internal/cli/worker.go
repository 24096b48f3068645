package cli

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lu-zhengda/contactsync/internal/app"
	"github.com/lu-zhengda/contactsync/internal/config"
	"github.com/lu-zhengda/contactsync/internal/domain"
	"github.com/lu-zhengda/contactsync/internal/provider/people"
	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:    app.WorkerCommand + " <account>",
		Short:  "Sync a single account (started by run --isolate)",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID := args[0]
			if err := config.ValidateAccountID(accountID); err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logs, err := setupLogging(cfg.Paths.LogFile)
			if err != nil {
				return err
			}
			defer logs.Close()

			runID := os.Getenv(config.EnvRunID)
			if runID == "" {
				runID = uuid.NewString()
				log.Printf("[worker] %s not set; recording under new run %s", config.EnvRunID, runID)
			}

			journal, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer journal.Close()

			ctx := cmd.Context()
			result := &domain.WorkerResult{RunID: runID, AccountID: accountID, PID: os.Getpid()}
			finish := func(runErr error) error {
				result.FinishedAt = time.Now()
				if runErr != nil {
					result.Error = runErr.Error()
				}
				if err := journal.RecordWorkerResult(ctx, result); err != nil {
					log.Printf("[worker] failed to write completion marker for %s: %v", accountID, err)
				}
				return runErr
			}

			token, err := newTokenStore(cfg).LoadGrant(accountID)
			if err != nil {
				return finish(fmt.Errorf("failed to load grant for %s: %w", accountID, err))
			}
			oauthCfg, err := people.LoadClientConfig(cfg.Paths.ClientSecret, cfg.Server.RedirectURL)
			if err != nil {
				return finish(err)
			}

			log.Printf("[worker] syncing account %s (pid %d, run %s)", accountID, result.PID, runID)
			res, err := inProcessRunner(cfg, oauthCfg).Run(ctx, accountID, token)
			if err != nil {
				return finish(err)
			}
			result.Deleted = res.Outcome.Deleted
			result.Created = res.Outcome.Created
			result.Failed = res.Outcome.Failed()
			log.Printf("[worker] account %s finished: %d deleted, %d created, %d failed",
				accountID, result.Deleted, result.Created, result.Failed)
			return finish(nil)
		},
	}
}
