package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rakibdev/topup-shop/internal/models"
)

func TestRotateToken(t *testing.T) {
	auth, _ := newAuthService(t)
	registerUser(t, auth, "u@example.com", "secret123")

	res, err := auth.Login(context.Background(), "u@example.com", "secret123")
	require.NoError(t, err)

	tokens := &TokenService{
		DB:            auth.Repo.DB,
		JWTSecret:     auth.JWTSecret,
		RefreshSecret: auth.RefreshSecret,
	}

	newAccess, newRefresh, err := tokens.RotateToken(res.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, newAccess)
	require.NotEmpty(t, newRefresh)
	require.NotEqual(t, res.RefreshToken, newRefresh)

	// The consumed token is revoked and cannot be replayed.
	var old models.RefreshToken
	require.NoError(t, auth.Repo.DB.Where("token = ?", res.RefreshToken).First(&old).Error)
	require.True(t, old.Revoked)

	_, _, err = tokens.RotateToken(res.RefreshToken)
	require.Error(t, err)

	// The replacement still works.
	_, _, err = tokens.RotateToken(newRefresh)
	require.NoError(t, err)
}

func TestRotateTokenFailureKeepsOldToken(t *testing.T) {
	auth, _ := newAuthService(t)
	registerUser(t, auth, "u@example.com", "secret123")

	res, err := auth.Login(context.Background(), "u@example.com", "secret123")
	require.NoError(t, err)

	tokens := &TokenService{
		DB:            auth.Repo.DB,
		JWTSecret:     auth.JWTSecret,
		RefreshSecret: auth.RefreshSecret,
	}

	require.NoError(t, auth.Repo.DB.Exec(
		`CREATE TRIGGER block_refresh_inserts BEFORE INSERT ON refresh_tokens
		 BEGIN SELECT RAISE(ABORT, 'blocked'); END`,
	).Error)

	_, _, err = tokens.RotateToken(res.RefreshToken)
	require.Error(t, err)

	// The failed rotation rolled back as a whole: the old token is still
	// valid, the user is not locked out.
	var old models.RefreshToken
	require.NoError(t, auth.Repo.DB.Where("token = ?", res.RefreshToken).First(&old).Error)
	require.False(t, old.Revoked)

	require.NoError(t, auth.Repo.DB.Exec(`DROP TRIGGER block_refresh_inserts`).Error)

	_, _, err = tokens.RotateToken(res.RefreshToken)
	require.NoError(t, err)
}

func TestValidateRefreshRejectsAccessToken(t *testing.T) {
	auth, _ := newAuthService(t)
	user := registerUser(t, auth, "u@example.com", "secret123")

	access, err := SignAccessToken(user.ID, user.Role, auth.JWTSecret, time.Now().Add(time.Minute))
	require.NoError(t, err)

	_, err = ValidateRefresh(access, auth.RefreshSecret, auth.Repo.DB)
	require.Error(t, err)
}

func TestValidateRefreshRejectsExpiredRow(t *testing.T) {
	auth, _ := newAuthService(t)
	registerUser(t, auth, "u@example.com", "secret123")

	res, err := auth.Login(context.Background(), "u@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, auth.Repo.DB.Model(&models.RefreshToken{}).
		Where("token = ?", res.RefreshToken).
		Update("expires_at", time.Now().Add(-time.Hour).Unix()).Error)

	_, err = ValidateRefresh(res.RefreshToken, auth.RefreshSecret, auth.Repo.DB)
	require.Error(t, err)
}
