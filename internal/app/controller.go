package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lu-zhengda/contactsync/internal/domain"
	"github.com/lu-zhengda/contactsync/internal/store"
	"golang.org/x/oauth2"
)

// DefaultPollInterval is how often a pending authorization is re-checked.
const DefaultPollInterval = 60 * time.Second

var (
	// ErrNoDecisionPending is returned by Decide when the controller is not
	// waiting for the operator.
	ErrNoDecisionPending = errors.New("no operator decision is pending")
	// ErrNotRunning is returned once the run has finished.
	ErrNotRunning = errors.New("controller is not running")
)

// Options configures a Controller.
type Options struct {
	RunID    string
	Accounts []string
	Store    store.TokenStore
	// AuthURL returns the consent URL for an account.
	AuthURL func(accountID string) string
	Runner  Runner
	// Journal is optional.
	Journal      store.Journal
	PollInterval time.Duration
	AutoContinue bool
	// Out receives operator-facing prompts. Nil discards them.
	Out io.Writer
}

type grantStoredEvent struct {
	accountID string
}

type decisionEvent struct {
	accountID string
	proceed   bool
	reply     chan error
}

type syncFinishedEvent struct {
	accountID string
	result    RunResult
	err       error
}

// Controller walks the account queue one account at a time. A single
// goroutine (Run) owns the State; other goroutines talk to it through
// GrantStored and Decide.
type Controller struct {
	accounts     []string
	runID        string
	store        store.TokenStore
	authURL      func(string) string
	runner       Runner
	journal      store.Journal
	pollInterval time.Duration
	autoContinue bool
	out          io.Writer

	events chan any
	done   chan struct{}
	ticker *time.Ticker

	mu       sync.RWMutex
	state    State
	snapshot State
}

func NewController(opts Options) *Controller {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	authURL := opts.AuthURL
	if authURL == nil {
		authURL = func(string) string { return "" }
	}
	s := NewState(opts.RunID, opts.Accounts)
	return &Controller{
		accounts:     opts.Accounts,
		runID:        opts.RunID,
		store:        opts.Store,
		authURL:      authURL,
		runner:       opts.Runner,
		journal:      opts.Journal,
		pollInterval: poll,
		autoContinue: opts.AutoContinue,
		out:          out,
		events:       make(chan any, 16),
		done:         make(chan struct{}),
		state:        s,
		snapshot:     s,
	}
}

// Run processes the queue until every account is DONE or SKIPPED, or ctx is
// cancelled. It must be called once.
func (c *Controller) Run(ctx context.Context) (State, error) {
	defer close(c.done)

	started := time.Now()
	c.recordRun(func(j store.Journal) error {
		return j.StartRun(context.Background(), &domain.Run{ID: c.runID, StartedAt: started, Accounts: len(c.accounts)})
	})
	defer c.recordRun(func(j store.Journal) error {
		return j.FinishRun(context.Background(), &domain.Run{ID: c.runID, StartedAt: started, FinishedAt: time.Now()})
	})

	c.ticker = time.NewTicker(c.pollInterval)
	defer c.ticker.Stop()

	log.Printf("[queue] starting run %s with %d accounts", c.runID, len(c.accounts))
	c.begin(ctx)
	for !c.state.Finished() {
		var tick <-chan time.Time
		if c.state.Phase == PhaseAwaitingAuth {
			tick = c.ticker.C
		}
		select {
		case <-ctx.Done():
			log.Printf("[queue] run %s interrupted at position %d: %v", c.runID, c.state.Position, ctx.Err())
			return c.state, ctx.Err()
		case ev := <-c.events:
			c.handle(ctx, ev)
		case <-tick:
			c.checkGrant(ctx)
		}
	}
	log.Printf("[queue] run %s finished", c.runID)
	return c.state, nil
}

// Snapshot returns the latest state. Safe for concurrent use.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Status returns the latest state with worker handles refreshed from the
// completion markers in the journal.
func (c *Controller) Status(ctx context.Context) State {
	s := c.Snapshot()
	if c.journal == nil {
		return s
	}
	for _, h := range s.Workers {
		if h.Status != domain.WorkerLaunched {
			continue
		}
		res, err := c.journal.GetWorkerResult(ctx, s.RunID, h.AccountID)
		if err != nil {
			log.Printf("[worker] failed to read completion marker for %s: %v", h.AccountID, err)
			continue
		}
		if res != nil {
			s = s.WithWorkerStatus(h.AccountID, res.Status())
		}
	}
	return s
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// GrantStored tells the controller a grant was saved for the account.
func (c *Controller) GrantStored(accountID string) {
	select {
	case c.events <- grantStoredEvent{accountID: accountID}:
	case <-c.done:
	}
}

// Decide answers the pending "continue?" question. accountID, when set, must
// name the account that just finished.
func (c *Controller) Decide(accountID string, proceed bool) error {
	reply := make(chan error, 1)
	select {
	case c.events <- decisionEvent{accountID: accountID, proceed: proceed, reply: reply}:
	case <-c.done:
		return ErrNotRunning
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrNotRunning
		}
	}
}

// ReadDecisions forwards operator answers read line by line from r until r
// is exhausted or the run ends.
func (c *Controller) ReadDecisions(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		proceed, ok := ParseAnswer(scanner.Text())
		if !ok {
			fmt.Fprint(c.out, "Please answer y or n: ")
			continue
		}
		err := c.Decide("", proceed)
		switch {
		case errors.Is(err, ErrNotRunning):
			return
		case errors.Is(err, ErrNoDecisionPending):
			fmt.Fprintln(c.out, "No decision is pending right now.")
		case err != nil:
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	}
}

// ParseAnswer interprets a y/n answer. ok is false for anything else.
func ParseAnswer(s string) (proceed, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	return false, false
}

func (c *Controller) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case grantStoredEvent:
		cur, ok := c.state.Current()
		if c.state.Phase == PhaseAwaitingAuth && ok && cur.ID == ev.accountID {
			c.checkGrant(ctx)
			return
		}
		log.Printf("[auth] grant stored for %s while it is not being awaited", ev.accountID)
	case decisionEvent:
		ev.reply <- c.decide(ctx, ev)
	case syncFinishedEvent:
		c.finishSync(ctx, ev)
	}
}

// begin starts work on the account at the queue position.
func (c *Controller) begin(ctx context.Context) {
	cur, ok := c.state.Current()
	if !ok {
		c.set(c.state.WithPhase(PhaseFinished))
		return
	}
	log.Printf("[queue] processing account: %s", cur.ID)
	if token, ok := c.usableGrant(cur.ID); ok {
		log.Printf("[auth] token found for %s", cur.ID)
		c.startSync(ctx, cur.ID, token)
		return
	}

	url := c.authURL(cur.ID)
	c.transition(domain.AccountAwaitingAuth, "", PhaseAwaitingAuth)
	c.set(c.state.WithAuthURL(url))
	// The first re-check comes a full interval after the wait begins.
	if c.ticker != nil {
		c.ticker.Reset(c.pollInterval)
	}
	log.Printf("[auth] token not found for %s; authorize this app by visiting this url: %s", cur.ID, url)
	fmt.Fprintf(c.out, "\nAuthorize account %s by visiting this URL:\n\n  %s\n\nWaiting for authorization...\n", cur.ID, url)
}

// usableGrant loads the account's grant. A missing or unreadable grant means
// the account is unauthorized.
func (c *Controller) usableGrant(accountID string) (*oauth2.Token, bool) {
	if !c.store.HasGrant(accountID) {
		return nil, false
	}
	token, err := c.store.LoadGrant(accountID)
	if err != nil {
		log.Printf("[auth] stored grant for %s is unusable, treating as unauthorized: %v", accountID, err)
		return nil, false
	}
	return token, true
}

// checkGrant re-checks the store for the awaited account.
func (c *Controller) checkGrant(ctx context.Context) {
	cur, ok := c.state.Current()
	if !ok || c.state.Phase != PhaseAwaitingAuth {
		return
	}
	token, ok := c.usableGrant(cur.ID)
	if !ok {
		log.Printf("[auth] still waiting for authorization of %s: %s", cur.ID, c.state.AuthURL)
		return
	}
	log.Printf("[auth] grant received for %s", cur.ID)
	c.startSync(ctx, cur.ID, token)
}

func (c *Controller) startSync(ctx context.Context, accountID string, token *oauth2.Token) {
	c.transition(domain.AccountSyncing, "", PhaseSyncing)
	go func() {
		res, err := c.runner.Run(ctx, accountID, token)
		select {
		case c.events <- syncFinishedEvent{accountID: accountID, result: res, err: err}:
		case <-c.done:
		}
	}()
}

func (c *Controller) finishSync(ctx context.Context, ev syncFinishedEvent) {
	cur, ok := c.state.Current()
	if !ok || c.state.Phase != PhaseSyncing || cur.ID != ev.accountID {
		log.Printf("[queue] ignoring stale sync result for %s", ev.accountID)
		return
	}

	switch {
	case ev.err != nil:
		reason := "sync failed"
		if errors.Is(ev.err, domain.ErrAuth) {
			reason = "authorization rejected"
		}
		log.Printf("[queue] account %s skipped (%s): %v", ev.accountID, reason, ev.err)
		c.transition(domain.AccountSkipped, ev.err.Error(), PhaseSyncing)
	case ev.result.Worker != nil:
		c.set(c.state.WithWorker(*ev.result.Worker))
		c.transition(domain.AccountDone, fmt.Sprintf("worker pid %d launched", ev.result.Worker.PID), PhaseSyncing)
	default:
		var detail string
		if o := ev.result.Outcome; o != nil {
			detail = fmt.Sprintf("%d deleted, %d created, %d failed", o.Deleted, o.Created, o.Failed())
		}
		log.Printf("[queue] account %s done: %s", ev.accountID, detail)
		c.transition(domain.AccountDone, detail, PhaseSyncing)
	}

	if !c.state.HasNext() {
		c.set(c.state.Advance())
		return
	}
	if c.autoContinue {
		c.set(c.state.Advance())
		c.begin(ctx)
		return
	}
	next, _ := c.state.Next()
	c.set(c.state.WithPhase(PhaseAwaitingDecision))
	log.Printf("[queue] waiting for operator decision before account %s", next.ID)
	fmt.Fprintf(c.out, "Do you want to continue with the next account (%s)? (y/n): ", next.ID)
}

func (c *Controller) decide(ctx context.Context, ev decisionEvent) error {
	if c.state.Phase != PhaseAwaitingDecision {
		return ErrNoDecisionPending
	}
	cur, _ := c.state.Current()
	if ev.accountID != "" && ev.accountID != cur.ID {
		return fmt.Errorf("%w for %s (pending decision follows %s)", ErrNoDecisionPending, ev.accountID, cur.ID)
	}

	if ev.proceed {
		log.Printf("[queue] operator chose to continue after %s", cur.ID)
		c.set(c.state.Advance())
		c.begin(ctx)
		return nil
	}

	log.Printf("[queue] stopping further authorizations and contact syncing after %s", cur.ID)
	const detail = "stopped by operator"
	remaining := c.state.Accounts[c.state.Position+1:]
	c.set(c.state.Halt(detail))
	for _, a := range remaining {
		c.recordAccount(a.ID, domain.AccountSkipped, detail)
	}
	return nil
}

// transition sets the current account's state and journals it.
func (c *Controller) transition(state domain.AccountState, detail string, phase Phase) {
	cur, ok := c.state.Current()
	if !ok {
		return
	}
	c.set(c.state.WithCurrent(state, detail, phase))
	c.recordAccount(cur.ID, state, detail)
}

func (c *Controller) set(s State) {
	c.state = s
	c.mu.Lock()
	c.snapshot = s
	c.mu.Unlock()
}

func (c *Controller) recordAccount(accountID string, state domain.AccountState, detail string) {
	c.recordRun(func(j store.Journal) error {
		return j.RecordAccountEvent(context.Background(), &domain.AccountEvent{
			RunID:     c.runID,
			AccountID: accountID,
			State:     state,
			Detail:    detail,
			CreatedAt: time.Now(),
		})
	})
}

// recordRun writes to the journal when one is configured. Journal failures
// are logged and never affect the run.
func (c *Controller) recordRun(fn func(store.Journal) error) {
	if c.journal == nil {
		return
	}
	if err := fn(c.journal); err != nil {
		log.Printf("[queue] journal write failed: %v", err)
	}
}
