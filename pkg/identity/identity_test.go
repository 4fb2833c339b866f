package identity

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestUserIDFromToken(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "user-123", "iss": "test"})

	sub, err := UserIDFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", sub)
}

func TestUserIDFromTokenMissingSubject(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"iss": "test"})

	_, err := UserIDFromToken(token)
	assert.Error(t, err)
}

func TestUserIDFromTokenMalformed(t *testing.T) {
	_, err := UserIDFromToken("not-a-jwt")
	assert.Error(t, err)
}
