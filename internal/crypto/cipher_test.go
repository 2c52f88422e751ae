package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("test-secret")
	require.NoError(t, err)

	encrypted, err := c.Encrypt("caldav-password")
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "caldav-password")

	decrypted, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "caldav-password", decrypted)
}

func TestCipherEncryptIsNonDeterministic(t *testing.T) {
	c, err := NewCipher("test-secret")
	require.NoError(t, err)

	first, err := c.Encrypt("same-password")
	require.NoError(t, err)
	second, err := c.Encrypt("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCipherWrongSecret(t *testing.T) {
	c1, err := NewCipher("secret-one")
	require.NoError(t, err)
	c2, err := NewCipher("secret-two")
	require.NoError(t, err)

	encrypted, err := c1.Encrypt("password")
	require.NoError(t, err)

	_, err = c2.Decrypt(encrypted)
	assert.Error(t, err)
}

func TestCipherEmptySecret(t *testing.T) {
	_, err := NewCipher("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestCipherInvalidPayloads(t *testing.T) {
	c, err := NewCipher("test-secret")
	require.NoError(t, err)

	for _, payload := range []string{"", "no-separator", ".leading", "trailing.", "!!!.!!!"} {
		t.Run(payload, func(t *testing.T) {
			_, err := c.Decrypt(payload)
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}
