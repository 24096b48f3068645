package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/lu-zhengda/contactsync/internal/domain"
	"github.com/lu-zhengda/contactsync/internal/provider"
	"github.com/lu-zhengda/contactsync/internal/store"
	"golang.org/x/oauth2"
)

func init() {
	log.SetOutput(io.Discard)
}

// fakeProvider serves a fixed set of remote contacts in pages.
type fakeProvider struct {
	mu        sync.Mutex
	pages     [][]provider.RemoteContact
	listErr   error
	deleteErr map[string]error
	createErr map[string]error // keyed by given name
	onDelete  func()
	listCalls int
	deletes   []string
	creates   []string
}

func newFakeProvider(existing ...string) *fakeProvider {
	page := make([]provider.RemoteContact, 0, len(existing))
	for _, name := range existing {
		page = append(page, provider.RemoteContact{ResourceName: name})
	}
	return &fakeProvider{pages: [][]provider.RemoteContact{page}}
}

func (f *fakeProvider) ListContacts(_ context.Context, opts provider.ListOptions) ([]provider.RemoteContact, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, "", f.listErr
	}
	idx := 0
	if opts.PageToken != "" {
		idx, _ = strconv.Atoi(opts.PageToken)
	}
	if idx >= len(f.pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(f.pages) {
		next = strconv.Itoa(idx + 1)
	}
	return f.pages[idx], next, nil
}

func (f *fakeProvider) DeleteContact(_ context.Context, resourceName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, resourceName)
	if f.onDelete != nil {
		f.onDelete()
	}
	return f.deleteErr[resourceName]
}

func (f *fakeProvider) CreateContact(_ context.Context, c *domain.Contact) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, c.GivenName)
	if err := f.createErr[c.GivenName]; err != nil {
		return "", err
	}
	return fmt.Sprintf("people/new%d", len(f.creates)), nil
}

func (f *fakeProvider) counts() (deletes, creates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deletes), len(f.creates)
}

// fakeRunner records which accounts were synced.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	results map[string]RunResult
	errs    map[string]error
	delay   time.Duration
}

func (r *fakeRunner) Run(_ context.Context, accountID string, token *oauth2.Token) (RunResult, error) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, accountID)
	if err := r.errs[accountID]; err != nil {
		return RunResult{}, err
	}
	if res, ok := r.results[accountID]; ok {
		return res, nil
	}
	return RunResult{Outcome: &domain.SyncOutcome{}}, nil
}

func (r *fakeRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// countingStore counts grant lookups per account.
type countingStore struct {
	*store.FileTokenStore
	mu     sync.Mutex
	checks map[string]int
}

func (s *countingStore) HasGrant(accountID string) bool {
	s.mu.Lock()
	if s.checks == nil {
		s.checks = make(map[string]int)
	}
	s.checks[accountID]++
	s.mu.Unlock()
	return s.FileTokenStore.HasGrant(accountID)
}

func (s *countingStore) Checks(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks[accountID]
}

// syncBuffer is a goroutine-safe bytes.Buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "access", RefreshToken: "refresh"}
}

// waitFor polls the controller until cond holds or the deadline passes.
func waitFor(t *testing.T, c *Controller, what string, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s := c.Snapshot(); cond(s) {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; state = %+v", what, c.Snapshot())
	return State{}
}

type runResult struct {
	state State
	err   error
}

// startController runs c in the background and returns a channel with its result.
func startController(t *testing.T, ctx context.Context, c *Controller) <-chan runResult {
	t.Helper()
	ch := make(chan runResult, 1)
	go func() {
		s, err := c.Run(ctx)
		ch <- runResult{state: s, err: err}
	}()
	return ch
}

func awaitResult(t *testing.T, ch <-chan runResult) runResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for Run to return")
		return runResult{}
	}
}

func accountState(t *testing.T, s State, id string) domain.AccountState {
	t.Helper()
	a, ok := s.Account(id)
	if !ok {
		t.Fatalf("account %s not in state", id)
	}
	return a.State
}
