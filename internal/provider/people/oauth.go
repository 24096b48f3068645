package people

import (
	"fmt"
	"os"

	"github.com/lu-zhengda/contactsync/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	peopleapi "google.golang.org/api/people/v1"
)

// Scopes requested for every account: read/write contacts and read "other contacts".
var Scopes = []string{
	peopleapi.ContactsScope,
	peopleapi.ContactsOtherReadonlyScope,
}

// LoadClientConfig reads the Google client secret JSON ("installed" or "web"
// credentials). redirectURL, when set, replaces the file's first redirect URI.
func LoadClientConfig(path, redirectURL string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read client secret: %v", domain.ErrConfig, err)
	}
	cfg, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse client secret %s: %v", domain.ErrConfig, path, err)
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client secret %s has no client_id or client_secret", domain.ErrConfig, path)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg, nil
}

// AuthURL returns the consent URL for an account. The account identifier is
// carried in the OAuth state parameter so the callback can attribute the code.
func AuthURL(cfg *oauth2.Config, accountID string) string {
	return cfg.AuthCodeURL(accountID, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}
