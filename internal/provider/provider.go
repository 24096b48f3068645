package provider

import (
	"context"

	"github.com/lu-zhengda/contactsync/internal/domain"
)

// MaxPageSize is the largest page the contacts service returns.
const MaxPageSize = 1000

type ListOptions struct {
	PageToken string
	PageSize  int
}

// RemoteContact is an existing contact in the remote address book.
type RemoteContact struct {
	ResourceName string
	DisplayName  string
}

// ContactsProvider is the remote contacts service for one authorized account.
type ContactsProvider interface {
	// ListContacts returns one page of contacts and the next page token,
	// which is empty on the last page.
	ListContacts(ctx context.Context, opts ListOptions) ([]RemoteContact, string, error)
	DeleteContact(ctx context.Context, resourceName string) error
	// CreateContact returns the resource name of the created contact.
	CreateContact(ctx context.Context, contact *domain.Contact) (string, error)
}
