package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	s := NewService("test-secret")
	s.RegisterAPICredentials(TestAPIKey, TestAPISecret)
	return s
}

func TestGenerateToken(t *testing.T) {
	s := newTestService()

	token, err := s.GenerateToken(Credentials{
		APIKey:    TestAPIKey,
		APISecret: TestAPISecret,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), token.Expiration, time.Minute)
}

func TestGenerateTokenInvalidCredentials(t *testing.T) {
	s := newTestService()

	cases := []Credentials{
		{APIKey: TestAPIKey, APISecret: "wrong"},
		{APIKey: "unknown", APISecret: TestAPISecret},
		{},
	}
	for _, creds := range cases {
		_, err := s.GenerateToken(creds)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
}

func TestValidateToken(t *testing.T) {
	s := newTestService()

	token, err := s.GenerateToken(Credentials{
		APIKey:    TestAPIKey,
		APISecret: TestAPISecret,
	})
	require.NoError(t, err)

	claims, err := s.ValidateToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, TestAPIKey, claims.ClientID)
	assert.Contains(t, claims.Permissions, "trade")
}

func TestValidateTokenWrongSecret(t *testing.T) {
	s := newTestService()
	token, err := s.GenerateToken(Credentials{
		APIKey:    TestAPIKey,
		APISecret: TestAPISecret,
	})
	require.NoError(t, err)

	other := NewService("different-secret")
	_, err = other.ValidateToken(token.Token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	s := newTestService()

	_, err := s.ValidateToken("not-a-token")
	assert.Error(t, err)
}
