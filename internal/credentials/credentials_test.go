package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "freshstatus_acme.key"), []byte("  secret-token-123\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "freshstatus_empty.key"), []byte("\n"), 0o600))

	store := NewStore(dir, "freshstatus_%s.key", SchemeBearer)

	cred, err := store.Read("acme")
	require.NoError(t, err)
	assert.Equal(t, Credential{Token: "secret-token-123", Account: "acme", Scheme: SchemeBearer}, cred)

	tests := []struct {
		name    string
		account string
	}{
		{name: "missing_file", account: "ghost"},
		{name: "empty_file", account: "empty"},
		{name: "blank_account", account: "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Read(tt.account)
			assert.ErrorIs(t, err, ErrAuthentication)
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".secrets"), expandHome("~/.secrets"))
	assert.Equal(t, "/etc/keys", expandHome("/etc/keys"))
}

func TestMasked(t *testing.T) {
	c := Credential{Token: "abcdefghijkl", Account: "acme", Scheme: SchemeBasic}
	assert.Equal(t, "basic(ab****kl, acme)", c.Masked())
	assert.NotContains(t, c.Masked(), "cdefghij")

	short := Credential{Token: "abc", Account: "x", Scheme: SchemeBasic}
	assert.Equal(t, "basic(****, x)", short.Masked())
}
