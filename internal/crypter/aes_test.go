package crypter

import (
	"crypto/aes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyotin/queueline/internal/randutil"
)

const (
	testKey = "0123456789abcdef"
	testIV  = "fedcba9876543210"
)

func TestNewAesValidation(t *testing.T) {
	cases := []struct {
		name    string
		key, iv string
		wantErr bool
	}{
		{name: "valid 16-byte key", key: testKey, iv: testIV},
		{name: "valid 32-byte key", key: testKey + testKey, iv: testIV},
		{name: "empty key", key: "", iv: testIV, wantErr: true},
		{name: "empty iv", key: testKey, iv: "", wantErr: true},
		{name: "bad key length", key: "short", iv: testIV, wantErr: true},
		{name: "bad iv length", key: testKey, iv: "short", wantErr: true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewAes(c.key, c.iv)
			if c.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewAes(testKey, testIV)
	require.NoError(t, err)

	inputs := [][]byte{
		[]byte("a"),
		[]byte(`{"ticket_id":7,"service":"register"}`),
		[]byte(randutilMust(t, 1024)),
	}

	for _, in := range inputs {
		cipherText, err := c.EnCrypt(in)
		require.NoError(t, err)
		assert.NotEqual(t, in, cipherText)
		assert.Zero(t, len(cipherText)%aes.BlockSize)

		plain, err := c.DeCrypt(cipherText)
		require.NoError(t, err)
		assert.Equal(t, in, plain)
	}
}

func TestEncryptRejectsEmpty(t *testing.T) {
	c, err := NewAes(testKey, testIV)
	require.NoError(t, err)

	_, err = c.EnCrypt(nil)
	assert.Error(t, err)
}

func TestDecryptRejectsBadInput(t *testing.T) {
	c, err := NewAes(testKey, testIV)
	require.NoError(t, err)

	_, err = c.DeCrypt(nil)
	assert.Error(t, err)

	_, err = c.DeCrypt([]byte("not block aligned"))
	assert.Error(t, err)

	// Block-aligned garbage decrypts to invalid padding.
	_, err = c.DeCrypt(make([]byte, aes.BlockSize))
	assert.Error(t, err)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	c1, err := NewAes(testKey, testIV)
	require.NoError(t, err)
	c2, err := NewAes("fedcba9876543210", testIV)
	require.NoError(t, err)

	cipherText, err := c1.EnCrypt([]byte("session payload"))
	require.NoError(t, err)

	plain, err := c2.DeCrypt(cipherText)
	if err == nil {
		// CBC with the wrong key usually breaks the padding; if it
		// happens to parse, it must at least not equal the input.
		assert.NotEqual(t, []byte("session payload"), plain)
	}
}

func randutilMust(t *testing.T, n int) string {
	t.Helper()
	s, err := randutil.GenerateRandomBytes(n)
	require.NoError(t, err)
	return s
}
