package domain

import "time"

type AccountState string

const (
	AccountPending      AccountState = "PENDING"
	AccountAwaitingAuth AccountState = "AWAITING_AUTH"
	AccountSyncing      AccountState = "SYNCING"
	AccountDone         AccountState = "DONE"
	AccountSkipped      AccountState = "SKIPPED"
)

// IsTerminal reports whether no further transition can happen for the account.
func (s AccountState) IsTerminal() bool {
	return s == AccountDone || s == AccountSkipped
}

type AccountStatus struct {
	ID     string
	State  AccountState
	Detail string
}

type WorkerStatus string

const (
	// WorkerLaunched means the process was started and its outcome is unknown.
	WorkerLaunched  WorkerStatus = "launched"
	WorkerSucceeded WorkerStatus = "succeeded"
	WorkerFailed    WorkerStatus = "failed"
)

type WorkerHandle struct {
	AccountID string
	PID       int
	StartedAt time.Time
	Status    WorkerStatus
}

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Accounts   int
}

type AccountEvent struct {
	RunID     string
	AccountID string
	State     AccountState
	Detail    string
	CreatedAt time.Time
}

// WorkerResult is the completion marker a worker process writes when it exits.
type WorkerResult struct {
	RunID      string
	AccountID  string
	PID        int
	Deleted    int
	Created    int
	Failed     int
	Error      string
	FinishedAt time.Time
}

func (r *WorkerResult) Status() WorkerStatus {
	if r.Error != "" {
		return WorkerFailed
	}
	return WorkerSucceeded
}
