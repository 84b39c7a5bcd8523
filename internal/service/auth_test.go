package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rakibdev/topup-shop/internal/models"
	"github.com/rakibdev/topup-shop/internal/transport"
)

func newAuthService(t *testing.T) (*AuthService, *fakeMailer) {
	t.Helper()
	db := newTestDB(t)
	mailer := &fakeMailer{}
	svc := &AuthService{
		Repo:          newRepo(db),
		Notify:        newNotify(mailer),
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
	return svc, mailer
}

func registerUser(t *testing.T, svc *AuthService, email, password string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), transport.RegisterRequest{
		Name:     "test",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return user
}

func storedOTP(t *testing.T, svc *AuthService, email string) string {
	t.Helper()
	var v models.Verification
	require.NoError(t, svc.Repo.DB.Where("identifier = ?", email).First(&v).Error)
	return v.Value
}

func TestRegisterAndVerifyEmail(t *testing.T) {
	svc, mailer := newAuthService(t)

	user := registerUser(t, svc, "u@example.com", "secret123")
	require.Equal(t, "user", user.Role)
	require.False(t, user.EmailVerified)
	require.Len(t, mailer.sent, 1)

	code := storedOTP(t, svc, user.Email)
	require.Len(t, code, 6)

	require.NoError(t, svc.VerifyEmail(context.Background(), user.Email, code))

	var stored models.User
	require.NoError(t, svc.Repo.DB.First(&stored, user.ID).Error)
	require.True(t, stored.EmailVerified)
}

func TestVerifyEmailCodeIsSingleUse(t *testing.T) {
	svc, _ := newAuthService(t)
	user := registerUser(t, svc, "u@example.com", "secret123")
	code := storedOTP(t, svc, user.Email)

	require.NoError(t, svc.VerifyEmail(context.Background(), user.Email, code))

	err := svc.VerifyEmail(context.Background(), user.Email, code)
	require.ErrorIs(t, err, ErrValidation)
}

func TestVerifyEmailExpiredCode(t *testing.T) {
	svc, _ := newAuthService(t)
	user := registerUser(t, svc, "u@example.com", "secret123")
	code := storedOTP(t, svc, user.Email)

	require.NoError(t, svc.Repo.DB.Model(&models.Verification{}).
		Where("identifier = ?", user.Email).
		Update("expires_at", time.Now().Add(-time.Minute).Unix()).Error)

	err := svc.VerifyEmail(context.Background(), user.Email, code)
	require.ErrorIs(t, err, ErrValidation)

	// The expired row is burned, not left behind for retries.
	var count int64
	svc.Repo.DB.Model(&models.Verification{}).Count(&count)
	require.Zero(t, count)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t)
	registerUser(t, svc, "u@example.com", "secret123")

	_, err := svc.Register(context.Background(), transport.RegisterRequest{
		Email:    "u@example.com",
		Password: "other",
	})
	require.ErrorIs(t, err, ErrConflict)
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	user := registerUser(t, svc, "u@example.com", "secret123")

	res, err := svc.Login(context.Background(), "u@example.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, user.ID, res.User.ID)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	require.False(t, res.IsAdmin)

	var rt models.RefreshToken
	require.NoError(t, svc.Repo.DB.Where("user_id = ?", user.ID).First(&rt).Error)
	require.Equal(t, res.RefreshToken, rt.Token)
	require.False(t, rt.Revoked)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthService(t)
	registerUser(t, svc, "u@example.com", "secret123")

	_, err := svc.Login(context.Background(), "u@example.com", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(context.Background(), "nobody@example.com", "secret123")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoginBanned(t *testing.T) {
	svc, _ := newAuthService(t)
	user := registerUser(t, svc, "u@example.com", "secret123")

	require.NoError(t, svc.Repo.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{"banned": true, "ban_reason": "fraud"}).Error)

	_, err := svc.Login(context.Background(), "u@example.com", "secret123")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Contains(t, err.Error(), "fraud")
}

func TestLoginBanExpired(t *testing.T) {
	svc, _ := newAuthService(t)
	user := registerUser(t, svc, "u@example.com", "secret123")

	require.NoError(t, svc.Repo.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"banned":      true,
			"ban_expires": time.Now().Add(-time.Hour).Unix(),
		}).Error)

	_, err := svc.Login(context.Background(), "u@example.com", "secret123")
	require.NoError(t, err)
}

func TestResetPassword(t *testing.T) {
	svc, mailer := newAuthService(t)
	user := registerUser(t, svc, "u@example.com", "secret123")

	// Burn the registration OTP so the reset code is the only row.
	require.NoError(t, svc.Repo.DeleteVerificationsFor(context.Background(), user.Email))
	sentBefore := len(mailer.sent)

	require.NoError(t, svc.ForgotPassword(context.Background(), user.Email))
	require.Len(t, mailer.sent, sentBefore+1)

	code := storedOTP(t, svc, user.Email)
	require.NoError(t, svc.ResetPassword(context.Background(), user.Email, code, "newpass456"))

	_, err := svc.Login(context.Background(), "u@example.com", "secret123")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(context.Background(), "u@example.com", "newpass456")
	require.NoError(t, err)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, mailer := newAuthService(t)

	// Unknown addresses report success so the endpoint cannot be used to
	// enumerate accounts.
	require.NoError(t, svc.ForgotPassword(context.Background(), "nobody@example.com"))
	require.Empty(t, mailer.sent)
}
