package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmadisti/pharmadisti-backend/pkg/config"
	"github.com/pharmadisti/pharmadisti-backend/pkg/errors"
)

func newTestManager() *Manager {
	return NewManager(&config.JWTConfig{
		Secret: "test-secret",
		Issuer: "pharmadisti",
	})
}

func TestManager_VerifyRoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.Generate("user-123", "linh@example.com", "Linh Tran", "warehouse", time.Hour)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "linh@example.com", claims.Email)
	assert.Equal(t, "Linh Tran", claims.Name)
	assert.Equal(t, "warehouse", claims.Role)
}

func TestManager_Verify_WrongSecret(t *testing.T) {
	m := newTestManager()

	token, err := m.Generate("user-123", "", "", "", time.Hour)
	require.NoError(t, err)

	other := NewManager(&config.JWTConfig{Secret: "other-secret", Issuer: "pharmadisti"})
	_, err = other.Verify(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestManager_Verify_WrongIssuer(t *testing.T) {
	m := NewManager(&config.JWTConfig{Secret: "test-secret", Issuer: "someone-else"})

	token, err := m.Generate("user-123", "", "", "", time.Hour)
	require.NoError(t, err)

	_, err = newTestManager().Verify(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestManager_Verify_Expired(t *testing.T) {
	m := newTestManager()

	token, err := m.Generate("user-123", "", "", "", -time.Minute)
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestManager_Verify_Garbage(t *testing.T) {
	_, err := newTestManager().Verify("not-a-token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}
