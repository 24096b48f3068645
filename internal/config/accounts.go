package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/lu-zhengda/contactsync/internal/domain"
)

// LoadAccounts reads the ordered account list: one identifier per line,
// blank lines and lines starting with '#' ignored.
func LoadAccounts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open account list: %v", domain.ErrConfig, err)
	}
	defer f.Close()

	var (
		accounts []string
		seen     = make(map[string]int)
		lineNo   int
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		id := strings.TrimSpace(scanner.Text())
		if id == "" || strings.HasPrefix(id, "#") {
			continue
		}
		if err := ValidateAccountID(id); err != nil {
			return nil, fmt.Errorf("%w: account list line %d: %v", domain.ErrConfig, lineNo, err)
		}
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: account list line %d: %q already listed on line %d", domain.ErrConfig, lineNo, id, prev)
		}
		seen[id] = lineNo
		accounts = append(accounts, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read account list: %v", domain.ErrConfig, err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: account list %s is empty", domain.ErrConfig, path)
	}
	return accounts, nil
}

// ValidateAccountID rejects identifiers that cannot safely name a token file.
func ValidateAccountID(id string) error {
	if id == "" {
		return fmt.Errorf("empty account identifier")
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("invalid account identifier %q", id)
	}
	return nil
}
