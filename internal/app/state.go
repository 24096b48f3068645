package app

import (
	"slices"

	"github.com/lu-zhengda/contactsync/internal/domain"
)

// Phase is what the controller is currently waiting for.
type Phase string

const (
	PhaseStarting         Phase = "starting"
	PhaseAwaitingAuth     Phase = "awaiting_auth"
	PhaseSyncing          Phase = "syncing"
	PhaseAwaitingDecision Phase = "awaiting_decision"
	PhaseFinished         Phase = "finished"
)

// State is the controller's view of one run. It is a value: every transition
// returns a new State and never mutates slices shared with earlier snapshots.
type State struct {
	RunID    string
	Accounts []domain.AccountStatus
	Position int
	Phase    Phase
	AuthURL  string
	Workers  []domain.WorkerHandle
}

// NewState returns the initial state with every account PENDING.
func NewState(runID string, accountIDs []string) State {
	accounts := make([]domain.AccountStatus, len(accountIDs))
	for i, id := range accountIDs {
		accounts[i] = domain.AccountStatus{ID: id, State: domain.AccountPending}
	}
	s := State{RunID: runID, Accounts: accounts, Phase: PhaseStarting}
	if len(accounts) == 0 {
		s.Phase = PhaseFinished
	}
	return s
}

// Current returns the account at the queue position.
func (s State) Current() (domain.AccountStatus, bool) {
	if s.Position < 0 || s.Position >= len(s.Accounts) {
		return domain.AccountStatus{}, false
	}
	return s.Accounts[s.Position], true
}

// Next returns the account after the queue position.
func (s State) Next() (domain.AccountStatus, bool) {
	if s.Position+1 >= len(s.Accounts) {
		return domain.AccountStatus{}, false
	}
	return s.Accounts[s.Position+1], true
}

// HasNext reports whether an account remains after the current one.
func (s State) HasNext() bool {
	_, ok := s.Next()
	return ok
}

// Account returns the status of the named account.
func (s State) Account(id string) (domain.AccountStatus, bool) {
	for _, a := range s.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return domain.AccountStatus{}, false
}

// WithCurrent sets the current account's state and the controller phase.
func (s State) WithCurrent(state domain.AccountState, detail string, phase Phase) State {
	if _, ok := s.Current(); !ok {
		return s
	}
	s.Accounts = slices.Clone(s.Accounts)
	s.Accounts[s.Position].State = state
	s.Accounts[s.Position].Detail = detail
	s.Phase = phase
	if state != domain.AccountAwaitingAuth {
		s.AuthURL = ""
	}
	return s
}

func (s State) WithPhase(phase Phase) State {
	s.Phase = phase
	return s
}

// WithAuthURL records the authorization URL emitted for the current account.
func (s State) WithAuthURL(url string) State {
	s.AuthURL = url
	return s
}

// Advance moves the queue position to the next account, or finishes the run
// when none remain.
func (s State) Advance() State {
	s.AuthURL = ""
	if s.Position < len(s.Accounts) {
		s.Position++
	}
	if s.Position >= len(s.Accounts) {
		s.Position = len(s.Accounts)
		s.Phase = PhaseFinished
		return s
	}
	s.Phase = PhaseStarting
	return s
}

// Halt skips every account after the current one and finishes the run.
func (s State) Halt(detail string) State {
	s.Accounts = slices.Clone(s.Accounts)
	for i := s.Position + 1; i < len(s.Accounts); i++ {
		if !s.Accounts[i].State.IsTerminal() {
			s.Accounts[i].State = domain.AccountSkipped
			s.Accounts[i].Detail = detail
		}
	}
	s.Position = len(s.Accounts)
	s.Phase = PhaseFinished
	s.AuthURL = ""
	return s
}

// WithWorker appends a launched worker handle.
func (s State) WithWorker(h domain.WorkerHandle) State {
	s.Workers = append(slices.Clone(s.Workers), h)
	return s
}

// WithWorkerStatus updates the status of the worker launched for an account.
func (s State) WithWorkerStatus(accountID string, status domain.WorkerStatus) State {
	i := slices.IndexFunc(s.Workers, func(h domain.WorkerHandle) bool { return h.AccountID == accountID })
	if i < 0 {
		return s
	}
	s.Workers = slices.Clone(s.Workers)
	s.Workers[i].Status = status
	return s
}

// Finished reports whether the run is over.
func (s State) Finished() bool {
	return s.Phase == PhaseFinished
}
