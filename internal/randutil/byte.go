// Package randutil generates the random values queueline hands out:
// URL-safe capability tokens and jittered poll intervals.
package randutil

import (
	"crypto/rand"
	"fmt"
)

// Letters is the URL-safe alphabet tokens are drawn from, so a token can
// sit in a query string or chat deep link without escaping.
const Letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// GenerateRandomBytes returns a random string of the given length drawn
// from Letters, sourced from crypto/rand.
func GenerateRandomBytes(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be a positive integer: %d", length)
	}

	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %v", err)
	}

	for i := 0; i < length; i++ {
		bytes[i] = Letters[int(bytes[i])%len(Letters)]
	}

	return string(bytes), nil
}
