package krb5

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePasswordLengthAndCharset(t *testing.T) {
	p, err := GeneratePassword()
	require.NoError(t, err)

	assert.Len(t, p, generatedPasswordLength)
	for _, c := range []byte(p) {
		assert.GreaterOrEqual(t, c, byte(passwordMinByte))
		assert.LessOrEqual(t, c, byte(passwordMaxByte))
	}
}

func TestGeneratePasswordIsRandom(t *testing.T) {
	a, err := GeneratePassword()
	require.NoError(t, err)
	b, err := GeneratePassword()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
