package cipher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

func TestNew_RequiresPrimarySecret(t *testing.T) {
	_, err := New("", "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	c, err := New("current-secret", "")
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestRoundTrip(t *testing.T) {
	c, err := New("current-secret", "")
	require.NoError(t, err)

	for _, plaintext := range []string{
		"4509 123456",
		"а",
		strings.Repeat("long passport line ", 50),
	} {
		token, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(token, "v1:"))
		assert.NotContains(t, token, strings.TrimSpace(plaintext))

		plain, legacy := c.Decrypt(token)
		assert.Equal(t, strings.TrimSpace(plaintext), plain)
		assert.False(t, legacy, "primary-key ciphertext must not report legacy")
	}
}

func TestEncrypt_EmptyStaysEmpty(t *testing.T) {
	c, err := New("current-secret", "")
	require.NoError(t, err)

	token, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, token)

	plain, legacy := c.Decrypt("")
	assert.Empty(t, plain)
	assert.False(t, legacy)
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	c, err := New("current-secret", "")
	require.NoError(t, err)

	a, err := c.Encrypt("4509 123456")
	require.NoError(t, err)
	b, err := c.Encrypt("4509 123456")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecrypt_LegacyKeyFlagsMigration(t *testing.T) {
	old, err := New("retired-secret", "")
	require.NoError(t, err)
	token, err := old.Encrypt("4509 123456")
	require.NoError(t, err)

	rotated, err := New("current-secret", "retired-secret")
	require.NoError(t, err)

	plain, legacy := rotated.Decrypt(token)
	assert.Equal(t, "4509 123456", plain)
	assert.True(t, legacy, "legacy-key ciphertext must be flagged for re-encryption")

	// Re-encrypted under the primary key, the flag clears.
	migrated, err := rotated.Encrypt(plain)
	require.NoError(t, err)
	plain2, legacy2 := rotated.Decrypt(migrated)
	assert.Equal(t, "4509 123456", plain2)
	assert.False(t, legacy2)
}

func TestDecrypt_PlaintextPassesThrough(t *testing.T) {
	c, err := New("current-secret", "retired-secret")
	require.NoError(t, err)

	// Pre-encryption rows have no prefix and must come back unchanged.
	plain, legacy := c.Decrypt("4509 123456")
	assert.Equal(t, "4509 123456", plain)
	assert.False(t, legacy)
}

func TestDecrypt_UnopenableCiphertextPassesThrough(t *testing.T) {
	stranger, err := New("some-other-secret", "")
	require.NoError(t, err)
	token, err := stranger.Encrypt("4509 123456")
	require.NoError(t, err)

	c, err := New("current-secret", "retired-secret")
	require.NoError(t, err)

	// Neither key opens it: the read path degrades instead of failing.
	plain, legacy := c.Decrypt(token)
	assert.Equal(t, token, plain)
	assert.False(t, legacy)
}
