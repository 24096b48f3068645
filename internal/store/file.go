package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lu-zhengda/contactsync/internal/domain"
	"golang.org/x/oauth2"
)

// FileTokenStore persists grant tokens as <dir>/<account>.json files.
type FileTokenStore struct {
	dir string
}

// NewFileTokenStore returns a FileTokenStore rooted at dir. The directory is
// created on first save.
func NewFileTokenStore(dir string) *FileTokenStore {
	return &FileTokenStore{dir: dir}
}

// Path returns the token file path for the account.
func (f *FileTokenStore) Path(accountID string) string {
	return filepath.Join(f.dir, accountID+".json")
}

func (f *FileTokenStore) HasGrant(accountID string) bool {
	info, err := os.Stat(f.Path(accountID))
	return err == nil && info.Mode().IsRegular()
}

func (f *FileTokenStore) LoadGrant(accountID string) (*oauth2.Token, error) {
	data, err := os.ReadFile(f.Path(accountID))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read token for %s: %v", domain.ErrCredential, accountID, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: failed to decode token for %s: %v", domain.ErrCredential, accountID, err)
	}
	if !decodedUsable(&token) {
		return nil, fmt.Errorf("%w: token for %s has no access or refresh token", domain.ErrCredential, accountID)
	}
	return &token, nil
}

// SaveGrant writes the token to a temporary file and renames it over the
// previous one so readers never observe a partial file.
func (f *FileTokenStore) SaveGrant(accountID string, token *oauth2.Token) error {
	if token == nil {
		return errors.New("token cannot be nil")
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, "."+accountID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to set token file mode: %w", err)
	}
	if err := os.Rename(tmpName, f.Path(accountID)); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

func (f *FileTokenStore) DeleteGrant(accountID string) error {
	if err := os.Remove(f.Path(accountID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}
