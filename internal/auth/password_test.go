package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	digest, err := HashPassword("correct horse battery staple", 4)
	require.NoError(t, err)

	assert.True(t, CheckPassword("correct horse battery staple", digest))
	assert.False(t, CheckPassword("correct horse battery stapler", digest))
}

func TestHashPasswordDefaultCost(t *testing.T) {
	digest, err := HashPassword("hunter22", 0)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestHashPasswordSalted(t *testing.T) {
	a, err := HashPassword("same password", 4)
	require.NoError(t, err)
	b, err := HashPassword("same password", 4)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, CheckPassword("same password", a))
	assert.True(t, CheckPassword("same password", b))
}

func TestCheckPasswordCorruptDigest(t *testing.T) {
	assert.False(t, CheckPassword("anything", ""))
	assert.False(t, CheckPassword("anything", "not-a-bcrypt-digest"))
	assert.False(t, CheckPassword("anything", "$2a$garbage"))
}
