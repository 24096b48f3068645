package app

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/lu-zhengda/contactsync/internal/domain"
	"github.com/lu-zhengda/contactsync/internal/provider"
	"golang.org/x/oauth2"
)

func TestInProcessRunner(t *testing.T) {
	p := newFakeProvider("people/c1")
	r := &InProcessRunner{
		LoadContacts: func() ([]domain.Contact, error) { return records("Ada"), nil },
		NewProvider: func(context.Context, string, *oauth2.Token) (provider.ContactsProvider, error) {
			return p, nil
		},
	}
	res, err := r.Run(context.Background(), "alice", testToken())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Outcome == nil || res.Worker != nil {
		t.Fatalf("result = %+v, want outcome only", res)
	}
	if res.Outcome.Deleted != 1 || res.Outcome.Created != 1 {
		t.Errorf("outcome = %+v", res.Outcome)
	}
}

func TestInProcessRunner_Errors(t *testing.T) {
	okProvider := func(context.Context, string, *oauth2.Token) (provider.ContactsProvider, error) {
		return newFakeProvider(), nil
	}
	okLoader := func() ([]domain.Contact, error) { return nil, nil }

	listFails := newFakeProvider()
	listFails.listErr = domain.ErrAuth

	tests := []struct {
		name   string
		runner *InProcessRunner
		want   error
	}{
		{
			name: "source",
			runner: &InProcessRunner{
				LoadContacts: func() ([]domain.Contact, error) { return nil, fmt.Errorf("%w: empty", domain.ErrSourceFormat) },
				NewProvider:  okProvider,
			},
			want: domain.ErrSourceFormat,
		},
		{
			name: "provider",
			runner: &InProcessRunner{
				LoadContacts: okLoader,
				NewProvider: func(context.Context, string, *oauth2.Token) (provider.ContactsProvider, error) {
					return nil, fmt.Errorf("%w: bad client", domain.ErrConfig)
				},
			},
			want: domain.ErrConfig,
		},
		{
			name: "list",
			runner: &InProcessRunner{
				LoadContacts: okLoader,
				NewProvider: func(context.Context, string, *oauth2.Token) (provider.ContactsProvider, error) {
					return listFails, nil
				},
			},
			want: domain.ErrAuth,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.runner.Run(context.Background(), "alice", testToken())
			if !errors.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestProcessRunner_Launches(t *testing.T) {
	bin, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	r := &ProcessRunner{Executable: bin, Env: []string{"CONTACTSYNC_RUN_ID=run-1"}}
	res, err := r.Run(context.Background(), "alice", testToken())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Worker == nil || res.Outcome != nil {
		t.Fatalf("result = %+v, want worker handle only", res)
	}
	h := res.Worker
	if h.AccountID != "alice" || h.PID <= 0 || h.Status != domain.WorkerLaunched || h.StartedAt.IsZero() {
		t.Errorf("handle = %+v", h)
	}
}

func TestProcessRunner_Errors(t *testing.T) {
	r := &ProcessRunner{Executable: "/nonexistent/contactsync"}
	if _, err := r.Run(context.Background(), "alice", nil); !errors.Is(err, domain.ErrCredential) {
		t.Errorf("Run(nil token) error = %v, want ErrCredential", err)
	}
	if _, err := r.Run(context.Background(), "alice", testToken()); err == nil {
		t.Error("Run() with missing executable succeeded")
	}
}
