package app

import (
	"context"
	"fmt"
	"log"

	"github.com/lu-zhengda/contactsync/internal/domain"
	"github.com/lu-zhengda/contactsync/internal/provider"
)

// SyncService replaces every remote contact of a single account with the
// records of the contact export.
type SyncService struct {
	provider  provider.ContactsProvider
	accountID string
}

// NewSyncService creates a SyncService for the given account.
func NewSyncService(p provider.ContactsProvider, accountID string) *SyncService {
	return &SyncService{provider: p, accountID: accountID}
}

// Sync deletes all existing remote contacts, then creates one contact per
// record in order. Individual delete and create failures are recorded in the
// outcome and never stop the run. A failure to list the existing contacts
// is returned as an error, as is cancellation of ctx, which leaves the
// account partially synced and returns the outcome so far.
func (s *SyncService) Sync(ctx context.Context, records []domain.Contact) (domain.SyncOutcome, error) {
	var outcome domain.SyncOutcome

	existing, err := s.listAll(ctx)
	if err != nil {
		return outcome, err
	}
	outcome.Listed = len(existing)
	log.Printf("[sync] found %d existing contacts for account %s", len(existing), s.accountID)

	for _, rc := range existing {
		if err := ctx.Err(); err != nil {
			return outcome, s.interrupted(outcome, err)
		}
		if rc.ResourceName == "" {
			continue
		}
		if err := s.provider.DeleteContact(ctx, rc.ResourceName); err != nil {
			log.Printf("[sync] error deleting contact %s for account %s: %v", rc.ResourceName, s.accountID, err)
			outcome.DeleteFailures = append(outcome.DeleteFailures, domain.RecordFailure{Record: rc.ResourceName, Err: err})
			continue
		}
		outcome.Deleted++
		log.Printf("[sync] contact deleted: %s", rc.ResourceName)
	}
	log.Printf("[sync] deleted %d/%d contacts for account %s", outcome.Deleted, outcome.DeleteAttempts(), s.accountID)

	for i := range records {
		if err := ctx.Err(); err != nil {
			return outcome, s.interrupted(outcome, err)
		}
		rec := &records[i]
		id := recordID(rec)
		if _, err := s.provider.CreateContact(ctx, rec); err != nil {
			log.Printf("[sync] error creating contact %s for account %s: %v", id, s.accountID, err)
			outcome.CreateFailures = append(outcome.CreateFailures, domain.RecordFailure{Record: id, Err: err})
			continue
		}
		outcome.Created++
		log.Printf("[sync] contact created: %s", id)
	}

	log.Printf("[sync] account %s processed: %d deleted, %d created, %d failed",
		s.accountID, outcome.Deleted, outcome.Created, outcome.Failed())
	return outcome, nil
}

func (s *SyncService) interrupted(outcome domain.SyncOutcome, err error) error {
	log.Printf("[sync] account %s interrupted: %d deleted, %d created, %d failed",
		s.accountID, outcome.Deleted, outcome.Created, outcome.Failed())
	return fmt.Errorf("sync of %s interrupted: %w", s.accountID, err)
}

// listAll drains every page of the account's connections.
func (s *SyncService) listAll(ctx context.Context) ([]provider.RemoteContact, error) {
	var (
		all       []provider.RemoteContact
		pageToken string
	)
	for {
		page, next, err := s.provider.ListContacts(ctx, provider.ListOptions{
			PageToken: pageToken,
			PageSize:  provider.MaxPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list contacts (fetched %d so far): %w", len(all), err)
		}
		all = append(all, page...)
		if next == "" || next == pageToken {
			return all, nil
		}
		pageToken = next
	}
}

// recordID names a source record in logs and failures.
func recordID(c *domain.Contact) string {
	name := c.DisplayName()
	if name == "" {
		name = "(unnamed)"
	}
	if c.Row > 0 {
		return fmt.Sprintf("row %d %q", c.Row, name)
	}
	return fmt.Sprintf("%q", name)
}
