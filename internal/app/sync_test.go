package app

import (
	"context"
	"errors"
	"testing"

	"github.com/lu-zhengda/contactsync/internal/domain"
	"github.com/lu-zhengda/contactsync/internal/provider"
)

func records(names ...string) []domain.Contact {
	out := make([]domain.Contact, len(names))
	for i, n := range names {
		out[i] = domain.Contact{Row: i + 2, GivenName: n}
	}
	return out
}

func TestSync_DeletesThenCreates(t *testing.T) {
	p := newFakeProvider("people/c1", "people/c2")
	svc := NewSyncService(p, "alice")

	outcome, err := svc.Sync(context.Background(), records("Ada", "Grace", "Edsger"))
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if outcome.Listed != 2 || outcome.Deleted != 2 || outcome.Created != 3 {
		t.Errorf("outcome = %+v, want 2 listed, 2 deleted, 3 created", outcome)
	}
	if len(p.deletes) != 2 || p.deletes[0] != "people/c1" || p.deletes[1] != "people/c2" {
		t.Errorf("deletes = %q", p.deletes)
	}
	want := []string{"Ada", "Grace", "Edsger"}
	for i, name := range want {
		if p.creates[i] != name {
			t.Errorf("create %d = %q, want %q (source order)", i, p.creates[i], name)
		}
	}
}

func TestSync_DrainsAllPages(t *testing.T) {
	p := &fakeProvider{pages: [][]provider.RemoteContact{
		{{ResourceName: "people/c1"}, {ResourceName: "people/c2"}},
		{{ResourceName: "people/c3"}},
		{{ResourceName: "people/c4"}},
	}}
	outcome, err := NewSyncService(p, "alice").Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if p.listCalls != 3 {
		t.Errorf("list calls = %d, want 3", p.listCalls)
	}
	if outcome.Deleted != 4 {
		t.Errorf("deleted = %d, want 4", outcome.Deleted)
	}
}

func TestSync_AttemptCountsUnderPartialFailure(t *testing.T) {
	boom := errors.New("boom")
	p := newFakeProvider("people/c1", "people/c2", "people/c3")
	p.deleteErr = map[string]error{"people/c2": boom}
	p.createErr = map[string]error{"Ada": boom, "Edsger": boom}

	outcome, err := NewSyncService(p, "alice").Sync(context.Background(), records("Ada", "Grace", "Edsger", "Barbara"))
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}

	deletes, creates := p.counts()
	if deletes != 3 {
		t.Errorf("delete attempts = %d, want 3", deletes)
	}
	if creates != 4 {
		t.Errorf("create attempts = %d, want 4", creates)
	}
	if outcome.DeleteAttempts() != 3 || outcome.CreateAttempts() != 4 {
		t.Errorf("outcome attempts = %d/%d, want 3/4", outcome.DeleteAttempts(), outcome.CreateAttempts())
	}
	if len(outcome.DeleteFailures) != 1 || outcome.DeleteFailures[0].Record != "people/c2" {
		t.Errorf("delete failures = %+v", outcome.DeleteFailures)
	}
	if len(outcome.CreateFailures) != 2 {
		t.Fatalf("create failures = %+v", outcome.CreateFailures)
	}
	if got := outcome.CreateFailures[0].Record; got != `row 2 "Ada"` {
		t.Errorf("failure record = %q, want %q", got, `row 2 "Ada"`)
	}
	if !errors.Is(outcome.CreateFailures[1].Err, boom) {
		t.Errorf("failure err = %v, want boom", outcome.CreateFailures[1].Err)
	}
}

func TestSync_SkipsContactsWithoutResourceName(t *testing.T) {
	p := newFakeProvider("people/c1", "")
	outcome, err := NewSyncService(p, "alice").Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if outcome.Listed != 2 || outcome.DeleteAttempts() != 1 {
		t.Errorf("outcome = %+v, want 2 listed and 1 delete attempt", outcome)
	}
}

func TestSync_ListFailureIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"auth", domain.ErrAuth, domain.ErrAuth},
		{"remote", domain.ErrRemoteOperation, domain.ErrRemoteOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider("people/c1")
			p.listErr = tt.err
			_, err := NewSyncService(p, "alice").Sync(context.Background(), records("Ada"))
			if !errors.Is(err, tt.want) {
				t.Errorf("Sync() error = %v, want %v", err, tt.want)
			}
			deletes, creates := p.counts()
			if deletes != 0 || creates != 0 {
				t.Errorf("attempts = %d/%d after list failure, want none", deletes, creates)
			}
		})
	}
}

func TestRecordID(t *testing.T) {
	tests := []struct {
		contact domain.Contact
		want    string
	}{
		{domain.Contact{Row: 3, GivenName: "Ada", FamilyName: "Lovelace"}, `row 3 "Ada Lovelace"`},
		{domain.Contact{Row: 4}, `row 4 "(unnamed)"`},
		{domain.Contact{GivenName: "Ada"}, `"Ada"`},
	}
	for _, tt := range tests {
		if got := recordID(&tt.contact); got != tt.want {
			t.Errorf("recordID() = %q, want %q", got, tt.want)
		}
	}
}

func TestSync_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newFakeProvider("people/c1", "people/c2", "people/c3")
	p.onDelete = cancel

	outcome, err := NewSyncService(p, "alice").Sync(ctx, records("Ada", "Grace"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Sync() error = %v, want context.Canceled", err)
	}
	deletes, creates := p.counts()
	if deletes != 1 || creates != 0 {
		t.Errorf("attempts = %d deletes, %d creates after cancel, want 1 and 0", deletes, creates)
	}
	if outcome.Deleted != 1 || outcome.Failed() != 0 {
		t.Errorf("outcome = %+v, want the one delete and no failures", outcome)
	}
}
