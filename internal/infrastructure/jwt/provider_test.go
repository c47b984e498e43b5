package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mint builds a token the way the external identity service would.
func mint(t *testing.T, key *rsa.PrivateKey, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func newTestProvider(t *testing.T) (*Provider, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &Provider{publicKey: &key.PublicKey}, key
}

func TestVerify_AcceptsExternallyMintedToken(t *testing.T) {
	p, key := newTestProvider(t)
	tok := mint(t, key, Claims{
		UserID: "u1",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := p.Verify(tok)

	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	p, key := newTestProvider(t)
	tok := mint(t, key, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := p.Verify(tok)
	require.Error(t, err)
}

func TestVerify_RejectsWrongSigningMethod(t *testing.T) {
	p, _ := newTestProvider(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u1"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = p.Verify(tok)
	require.Error(t, err)
}

func TestVerify_RejectsTokenSignedWithOtherKey(t *testing.T) {
	p, _ := newTestProvider(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tok := mint(t, otherKey, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err = p.Verify(tok)
	require.Error(t, err)
}
