package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	first, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	second, err := h.Hash("s3cret-pass")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret-pass", first)
	assert.NotEqual(t, first, second, "salt must differ between calls")
	assert.True(t, h.Verify("s3cret-pass", first))
	assert.True(t, h.Verify("s3cret-pass", second))
	assert.False(t, h.Verify("wrong-pass", first))
}

func TestPasswordHasher_VerifyMalformedHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	for _, hash := range []string{"", "plaintext", "$2b$", "$argon2id$v=19$m=65536,t=3,p=4$abc$def"} {
		assert.False(t, h.Verify("anything", hash), hash)
	}
}

func TestNewPasswordHasher_CostFallback(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(bcrypt.MinCost).cost)
}
