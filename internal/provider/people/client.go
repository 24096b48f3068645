package people

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/lu-zhengda/contactsync/internal/domain"
	"github.com/lu-zhengda/contactsync/internal/provider"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	peopleapi "google.golang.org/api/people/v1"
)

const resourceMe = "people/me"

var _ provider.ContactsProvider = (*Provider)(nil)

// Provider implements provider.ContactsProvider on the Google People API.
type Provider struct {
	accountID string
	service   *peopleapi.Service
}

// New creates a People API provider authorized by the account's grant. The
// token source refreshes expired access tokens.
func New(ctx context.Context, cfg *oauth2.Config, accountID string, token *oauth2.Token) (*Provider, error) {
	if token == nil {
		return nil, fmt.Errorf("%w: no token for %s", domain.ErrAuth, accountID)
	}
	return NewWithOptions(ctx, accountID, option.WithTokenSource(cfg.TokenSource(ctx, token)))
}

// NewWithOptions creates a provider from explicit client options.
func NewWithOptions(ctx context.Context, accountID string, opts ...option.ClientOption) (*Provider, error) {
	srv, err := peopleapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create people service: %w", err)
	}
	return &Provider{accountID: accountID, service: srv}, nil
}

// ListContacts returns a page of the account's connections.
func (p *Provider) ListContacts(ctx context.Context, opts provider.ListOptions) ([]provider.RemoteContact, string, error) {
	size := opts.PageSize
	if size <= 0 || size > provider.MaxPageSize {
		size = provider.MaxPageSize
	}
	call := p.service.People.Connections.List(resourceMe).
		PersonFields("names").
		PageSize(int64(size))
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", classify(err, "failed to list contacts for "+p.accountID)
	}

	contacts := make([]provider.RemoteContact, 0, len(resp.Connections))
	for _, person := range resp.Connections {
		contacts = append(contacts, provider.RemoteContact{
			ResourceName: person.ResourceName,
			DisplayName:  displayName(person),
		})
	}
	return contacts, resp.NextPageToken, nil
}

func (p *Provider) DeleteContact(ctx context.Context, resourceName string) error {
	if _, err := p.service.People.DeleteContact(resourceName).Context(ctx).Do(); err != nil {
		return classify(err, "failed to delete contact "+resourceName)
	}
	return nil
}

func (p *Provider) CreateContact(ctx context.Context, contact *domain.Contact) (string, error) {
	person, err := p.service.People.CreateContact(mapContact(contact)).Context(ctx).Do()
	if err != nil {
		return "", classify(err, fmt.Sprintf("failed to create contact %q", contact.DisplayName()))
	}
	return person.ResourceName, nil
}

// classify wraps err with ErrAuth when the service or the token endpoint
// rejected the credentials, and with ErrRemoteOperation otherwise.
func classify(err error, msg string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s: %v", domain.ErrAuth, msg, err)
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: %s: %v", domain.ErrAuth, msg, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrRemoteOperation, msg, err)
}
