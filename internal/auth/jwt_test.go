package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-with-enough-entropy"

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("user-123", testSecret, time.Minute)
	require.NoError(t, err)

	subject, err := ValidateAccessToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-123", subject)
}

func TestAccessTokenExpired(t *testing.T) {
	token, err := GenerateAccessToken("user-123", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("user-123", testSecret, time.Minute)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "a-completely-different-secret-key")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenTampered(t *testing.T) {
	token, err := GenerateAccessToken("user-123", testSecret, time.Minute)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = ValidateAccessToken(tampered, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenRejectsNonHMAC(t *testing.T) {
	// alg=none style tokens must not validate even with a valid shape.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenEmptySubject(t *testing.T) {
	token, err := GenerateAccessToken("", testSecret, time.Minute)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateRefreshTokenEntropy(t *testing.T) {
	a, err := GenerateRefreshToken()
	require.NoError(t, err)
	b, err := GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 43) // 32 bytes base64url
}

func TestHashTokenShape(t *testing.T) {
	digest := HashToken("some-token")
	assert.Len(t, digest, 64)
	assert.Equal(t, digest, HashToken("some-token"))
	assert.NotEqual(t, digest, HashToken("some-other-token"))
}
