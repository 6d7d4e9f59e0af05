package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor([]byte("test-encryption-key-32-bytes-ok!"))
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("tok1")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "tok1")

	again, err := enc.Encrypt("tok1")
	require.NoError(t, err)
	assert.NotEqual(t, ciphertext, again, "nonce must differ between encryptions")

	plain, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "tok1", plain)
}

func TestEncryptor_WrongKey(t *testing.T) {
	a, err := NewEncryptorFromSecret("correct horse battery staple", "default")
	require.NoError(t, err)
	b, err := NewEncryptorFromSecret("correct horse battery staple", "work")
	require.NoError(t, err)

	ciphertext, err := a.Encrypt("tok1")
	require.NoError(t, err)

	_, err = b.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = a.Decrypt("AAAA")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestNewEncryptor_InvalidKey(t *testing.T) {
	_, err := NewEncryptor([]byte("short"))
	assert.ErrorContains(t, err, "key must be 32 bytes")

	_, err = NewEncryptorFromSecret("", "default")
	assert.Error(t, err)
}
