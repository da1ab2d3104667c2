package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	t.Run("ValidPassword", func(t *testing.T) {
		hash, err := HashPassword("correct-horse-battery", bcrypt.MinCost)
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "correct-horse-battery", hash)
	})

	t.Run("TooShort", func(t *testing.T) {
		_, err := HashPassword("short", bcrypt.MinCost)
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("TooLong", func(t *testing.T) {
		_, err := HashPassword(strings.Repeat("a", 73), bcrypt.MinCost)
		assert.ErrorIs(t, err, ErrPasswordTooLong)
	})
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, CheckPassword("correct-horse-battery", hash))
	assert.ErrorIs(t, CheckPassword("wrong-password-here", hash), ErrInvalidPassword)
}

func TestGenerateAPIToken(t *testing.T) {
	plaintext, hash, err := GenerateAPIToken()
	require.NoError(t, err)

	assert.Len(t, plaintext, 64) // 32 bytes hex-encoded
	assert.Len(t, hash, 64)      // sha256 hex-encoded
	assert.NotEqual(t, plaintext, hash)
	assert.Equal(t, hash, HashToken(plaintext))

	// Tokens are unique
	second, _, err := GenerateAPIToken()
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, second)
}
