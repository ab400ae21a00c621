// Package credentials reads vendor API keys from per-account key files.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrAuthentication is returned when a credential file is missing or empty.
var ErrAuthentication = errors.New("authentication failure")

// Scheme selects how a credential is presented to the vendor.
type Scheme string

const (
	SchemeBasic  Scheme = "basic"
	SchemeBearer Scheme = "bearer"
)

// Credential is an API token bound to an account name.
// Basic auth sends (token, account); bearer sends the token alone.
type Credential struct {
	Token   string
	Account string
	Scheme  Scheme
}

// Masked returns a printable form that never exposes the token.
func (c Credential) Masked() string {
	token := "****"
	if len(c.Token) > 8 {
		token = c.Token[:2] + "****" + c.Token[len(c.Token)-2:]
	}
	return fmt.Sprintf("%s(%s, %s)", c.Scheme, token, c.Account)
}

// Store locates key files as <Dir>/<Pattern % account>.
type Store struct {
	Dir     string
	Pattern string
	Scheme  Scheme
}

// NewStore creates a store, expanding a leading ~ in dir.
func NewStore(dir, pattern string, scheme Scheme) *Store {
	return &Store{Dir: expandHome(dir), Pattern: pattern, Scheme: scheme}
}

// Path returns the key file path for an account.
func (s *Store) Path(account string) string {
	return filepath.Join(s.Dir, fmt.Sprintf(s.Pattern, account))
}

// Read loads the credential for account.
func (s *Store) Read(account string) (Credential, error) {
	if strings.TrimSpace(account) == "" {
		return Credential{}, fmt.Errorf("%w: account name is required", ErrAuthentication)
	}

	path := s.Path(account)
	data, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: API key file not found at %s: %v", ErrAuthentication, path, err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return Credential{}, fmt.Errorf("%w: API key file %s is empty", ErrAuthentication, path)
	}

	return Credential{Token: token, Account: account, Scheme: s.Scheme}, nil
}

func expandHome(dir string) string {
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	return filepath.Join(home, strings.TrimPrefix(dir, "~"))
}
