package credentials

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPbkdf2Hasher(t *testing.T) {
	hasher := NewPbkdf2Hasher()

	t.Run("ValidPassword", func(t *testing.T) {
		hashed, err := hasher.Hash("validPassword123")
		require.NoError(t, err)
		assert.NotEmpty(t, hashed)

		assert.True(t, hasher.Verify("validPassword123", hashed), "The password should match the hashed password")
	})

	t.Run("EmptyPassword", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.Error(t, err)

		assert.False(t, hasher.Verify("", "anything"))
	})

	t.Run("IncorrectPassword", func(t *testing.T) {
		hashed, err := hasher.Hash("correctPassword")
		require.NoError(t, err)

		assert.False(t, hasher.Verify("incorrectPassword", hashed), "Incorrect password should not match the hashed password")
	})

	t.Run("SaltMakesHashesDiffer", func(t *testing.T) {
		first, err := hasher.Hash("myPassword")
		require.NoError(t, err)
		second, err := hasher.Hash("myPassword")
		require.NoError(t, err)

		assert.NotEqual(t, first, second, "two hashes of the same password should differ by salt")
		assert.True(t, hasher.Verify("myPassword", first))
		assert.True(t, hasher.Verify("myPassword", second))
	})

	t.Run("Encoding", func(t *testing.T) {
		hashed, err := hasher.Hash("myPassword")
		require.NoError(t, err)

		parts := strings.Split(hashed, "-")
		require.Len(t, parts, 2)
		assert.Len(t, parts[0], 64, "256-bit key hex encoded")
		assert.Len(t, parts[1], 32, "128-bit salt hex encoded")
	})

	t.Run("CorruptedHashFailsClosed", func(t *testing.T) {
		assert.False(t, hasher.Verify("correctPassword", "invalidHash"))
		assert.False(t, hasher.Verify("correctPassword", "zz-zz"))
		assert.False(t, hasher.Verify("correctPassword", "ABCD-EF"), "wrong key length should not verify")
	})
}

func TestGenerateActivationCode(t *testing.T) {
	code, err := GenerateActivationCode()
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.NotContains(t, code, "+")
	assert.NotContains(t, code, "/")
	assert.NotContains(t, code, "=")

	other, err := GenerateActivationCode()
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}
