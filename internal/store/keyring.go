package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lu-zhengda/contactsync/internal/domain"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

const serviceName = "contactsync"

// KeyringTokenStore persists OAuth2 tokens in the OS keyring
// (macOS Keychain, Windows Credential Manager, or Linux Secret Service).
type KeyringTokenStore struct{}

// NewKeyringTokenStore returns a new KeyringTokenStore.
func NewKeyringTokenStore() *KeyringTokenStore {
	return &KeyringTokenStore{}
}

func (k *KeyringTokenStore) HasGrant(accountID string) bool {
	_, err := keyring.Get(serviceName, accountID)
	return err == nil
}

// LoadGrant retrieves the OAuth2 token for the given account ID from the OS keyring.
func (k *KeyringTokenStore) LoadGrant(accountID string) (*oauth2.Token, error) {
	data, err := keyring.Get(serviceName, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load token for %s from keyring: %v", domain.ErrCredential, accountID, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal token for %s: %v", domain.ErrCredential, accountID, err)
	}
	if !decodedUsable(&token) {
		return nil, fmt.Errorf("%w: token for %s has no access or refresh token", domain.ErrCredential, accountID)
	}
	return &token, nil
}

// SaveGrant stores the given OAuth2 token in the OS keyring under the account ID.
func (k *KeyringTokenStore) SaveGrant(accountID string, token *oauth2.Token) error {
	if token == nil {
		return errors.New("token cannot be nil")
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := keyring.Set(serviceName, accountID, string(data)); err != nil {
		return fmt.Errorf("failed to save token to keyring: %w", err)
	}
	return nil
}

// DeleteGrant removes the OAuth2 token for the given account ID from the OS keyring.
func (k *KeyringTokenStore) DeleteGrant(accountID string) error {
	err := keyring.Delete(serviceName, accountID)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}
