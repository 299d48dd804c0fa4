package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useArrayKeyring(t *testing.T) {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	prev := open
	open = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { open = prev })
}

func TestTokenPrefersEnvironment(t *testing.T) {
	useArrayKeyring(t)
	require.NoError(t, Set(TokenKey, "from-keyring"))
	t.Setenv(TokenEnv, " from-env ")

	tok, err := Token()
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)
}

func TestTokenFromKeyring(t *testing.T) {
	useArrayKeyring(t)
	t.Setenv(TokenEnv, "")
	require.NoError(t, Set(TokenKey, "secret"))

	tok, err := Token()
	require.NoError(t, err)
	assert.Equal(t, "secret", tok)

	require.NoError(t, Delete(TokenKey))
	_, err = Token()
	assert.ErrorIs(t, err, ErrNoToken)
}
