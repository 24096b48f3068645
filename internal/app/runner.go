package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/lu-zhengda/contactsync/internal/domain"
	"github.com/lu-zhengda/contactsync/internal/provider"
	"golang.org/x/oauth2"
)

// WorkerCommand is the subcommand a ProcessRunner invokes.
const WorkerCommand = "worker"

// RunResult is what a Runner reports for one account. Exactly one field is set:
// Outcome for an in-process sync, Worker for a launched worker process.
type RunResult struct {
	Outcome *domain.SyncOutcome
	Worker  *domain.WorkerHandle
}

// Runner executes the sync of one authorized account.
type Runner interface {
	Run(ctx context.Context, accountID string, token *oauth2.Token) (RunResult, error)
}

// ProviderFactory creates a contacts provider authorized by the account's token.
type ProviderFactory func(ctx context.Context, accountID string, token *oauth2.Token) (provider.ContactsProvider, error)

// ContactLoader reads the contact export.
type ContactLoader func() ([]domain.Contact, error)

// InProcessRunner runs the sync engine in the calling process.
type InProcessRunner struct {
	LoadContacts ContactLoader
	NewProvider  ProviderFactory
}

func (r *InProcessRunner) Run(ctx context.Context, accountID string, token *oauth2.Token) (RunResult, error) {
	records, err := r.LoadContacts()
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to read contacts for %s: %w", accountID, err)
	}
	p, err := r.NewProvider(ctx, accountID, token)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to create provider for %s: %w", accountID, err)
	}
	outcome, err := NewSyncService(p, accountID).Sync(ctx, records)
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Outcome: &outcome}, nil
}

// ProcessRunner starts "<Executable> worker <account>" and returns as soon as
// the process is running. The worker loads its own grant and reports its
// outcome through the journal; the runner only reaps it and logs the exit.
type ProcessRunner struct {
	Executable string
	// Env is appended to the current environment of the worker.
	Env []string
	// Output receives the worker's stdout and stderr. Nil discards them.
	Output io.Writer
}

func (r *ProcessRunner) Run(ctx context.Context, accountID string, token *oauth2.Token) (RunResult, error) {
	if token == nil {
		return RunResult{}, fmt.Errorf("%w: refusing to launch worker for %s without a readable grant", domain.ErrCredential, accountID)
	}

	// Not CommandContext: the worker must outlive a cancelled orchestrator.
	cmd := exec.Command(r.Executable, WorkerCommand, accountID)
	cmd.Env = append(os.Environ(), r.Env...)
	if r.Output != nil {
		cmd.Stdout = r.Output
		cmd.Stderr = r.Output
	}
	if err := cmd.Start(); err != nil {
		return RunResult{}, fmt.Errorf("failed to launch worker for %s: %w", accountID, err)
	}

	handle := &domain.WorkerHandle{
		AccountID: accountID,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
		Status:    domain.WorkerLaunched,
	}
	log.Printf("[worker] launched worker for account %s (pid %d)", accountID, handle.PID)

	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("[worker] worker for account %s (pid %d) exited: %v", accountID, handle.PID, err)
			return
		}
		log.Printf("[worker] worker for account %s (pid %d) exited", accountID, handle.PID)
	}()

	return RunResult{Worker: handle}, nil
}
