package krb5

import (
	"crypto/rand"
	"fmt"
)

const (
	generatedPasswordLength = 120
	passwordMinByte         = 32
	passwordMaxByte         = 122
)

// GeneratePassword produces a 120-character password whose bytes lie in the closed
// ASCII range [32, 122]. It fills a random buffer and discards out-of-range bytes
// rather than reducing modulo the range, so every accepted character is uniformly
// distributed over the full range.
func GeneratePassword() (string, error) {
	out := make([]byte, 0, generatedPasswordLength)
	buf := make([]byte, generatedPasswordLength)

	for len(out) < generatedPasswordLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("krb5: read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= passwordMinByte && b <= passwordMaxByte {
				out = append(out, b)
				if len(out) == generatedPasswordLength {
					break
				}
			}
		}
	}

	return string(out), nil
}
