package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestSetTokenReadsJWTClaims(t *testing.T) {
	store := NewSessionStore()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	err := store.SetToken(signedToken(t, jwt.MapClaims{
		"sub": "user_42",
		"exp": exp.Unix(),
	}))
	require.NoError(t, err)

	assert.Equal(t, "user_42", store.Subject())

	gotExp, ok := store.ExpiresAt()
	require.True(t, ok)
	assert.True(t, gotExp.Equal(exp))

	token, err := store.AccessToken(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, store.Active())
}

func TestExpiredTokenIsRejected(t *testing.T) {
	store := NewSessionStore()

	err := store.SetToken(signedToken(t, jwt.MapClaims{
		"sub": "user_42",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}))
	require.NoError(t, err)

	_, err = store.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, store.Active())
}

func TestOpaqueTokenIsAccepted(t *testing.T) {
	store := NewSessionStore()

	require.NoError(t, store.SetToken("not-a-jwt"))

	token, err := store.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not-a-jwt", token)

	assert.Empty(t, store.Subject())
	_, ok := store.ExpiresAt()
	assert.False(t, ok)
}

func TestEmptyTokenIsRejected(t *testing.T) {
	store := NewSessionStore()

	assert.Error(t, store.SetToken(""))

	_, err := store.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestClearEndsSession(t *testing.T) {
	store := NewSessionStore()
	require.NoError(t, store.SetToken("not-a-jwt"))

	store.Clear()

	_, err := store.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, store.Active())
}

func TestSetTokenReplacesPreviousClaims(t *testing.T) {
	store := NewSessionStore()

	require.NoError(t, store.SetToken(signedToken(t, jwt.MapClaims{
		"sub": "user_42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})))
	require.NoError(t, store.SetToken("not-a-jwt"))

	assert.Empty(t, store.Subject())
	_, ok := store.ExpiresAt()
	assert.False(t, ok)
}
