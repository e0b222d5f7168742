package mockservice

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiharness/api-contract-tests/config"
)

func TestTokenRoundTrip(t *testing.T) {
	s := New(config.MockConfig{}, nil)
	token := s.issueToken("testuser", accounts["testuser"], tokenTTL)

	claims, err := s.verifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "testuser", claims.Sub)
	assert.Equal(t, "Test User", claims.Name)
	assert.Equal(t, "user", claims.Role)
	assert.Greater(t, claims.Exp, time.Now().Unix())
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	s := New(config.MockConfig{}, nil)
	token := encodeToken(tokenClaims{Sub: "x", Exp: time.Now().Add(-time.Minute).Unix()})

	_, err := s.verifyToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	s := New(config.MockConfig{}, nil)
	token := s.issueToken("admin", accounts["admin"], tokenTTL)
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	tampered := parts[0] + "." + parts[1] + "A." + parts[2]
	_, err := s.verifyToken(tampered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}

func TestVerifyTokenRejectsMalformed(t *testing.T) {
	s := New(config.MockConfig{}, nil)

	_, err := s.verifyToken("just-a-string")
	require.Error(t, err)

	_, err = s.verifyToken("a.b")
	require.Error(t, err)
}

func TestStaticTokenBypassesVerification(t *testing.T) {
	s := New(config.MockConfig{StaticToken: "letmein"}, nil)

	claims, err := s.verifyToken("letmein")
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)

	_, err = s.verifyToken("letmeout")
	assert.Error(t, err)
}

func TestEncodeTokenIsDeterministic(t *testing.T) {
	claims := tokenClaims{Sub: "a", Name: "A", Role: "user", Iat: 100, Exp: 200}
	assert.Equal(t, encodeToken(claims), encodeToken(claims))
}
