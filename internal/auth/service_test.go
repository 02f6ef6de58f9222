package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgauth "github.com/forno-digital/pizzaria-backend/pkg/auth"
	"github.com/forno-digital/pizzaria-backend/pkg/config"
	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
	"github.com/forno-digital/pizzaria-backend/pkg/security"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	hash, err := security.HashPassword("forno-secret", config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	require.NoError(t, err)

	svc, err := NewService(
		config.AdminConfig{Username: "admin", PasswordHash: hash},
		config.JWTConfig{Secret: "secret", Issuer: "pizzaria-admin", ExpirationMinutes: 60},
	)
	require.NoError(t, err)
	return svc
}

func TestLoginSuccess(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "admin", Password: "forno-secret"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "admin", resp.Username)

	claims, err := pkgauth.ParseAccessToken(
		config.JWTConfig{Secret: "secret", Issuer: "pizzaria-admin", ExpirationMinutes: 60},
		resp.AccessToken,
	)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)

	cases := []LoginRequest{
		{Username: "admin", Password: "wrong"},
		{Username: "intruder", Password: "forno-secret"},
		{Username: "", Password: ""},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		require.Error(t, err)
		coded := pkgerrors.As(err)
		require.NotNil(t, coded)
		assert.Equal(t, pkgerrors.CodeUnauthorized, coded.Code())
		assert.Equal(t, invalidCredentialsMessage, coded.Message())
	}
}

func TestNewServiceRequiresCredentialConfig(t *testing.T) {
	_, err := NewService(config.AdminConfig{}, config.JWTConfig{})
	require.Error(t, err)
}
