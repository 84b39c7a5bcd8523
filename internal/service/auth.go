package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rakibdev/topup-shop/internal/hash"
	"github.com/rakibdev/topup-shop/internal/logging"
	"github.com/rakibdev/topup-shop/internal/models"
	"github.com/rakibdev/topup-shop/internal/mykafka"
	"github.com/rakibdev/topup-shop/internal/notify"
	"github.com/rakibdev/topup-shop/internal/repo"
	"github.com/rakibdev/topup-shop/internal/transport"
)

const otpTTL = 10 * time.Minute

type AuthService struct {
	Repo          *repo.GormRepo
	Notify        *notify.Service
	Producer      *mykafka.Producer
	JWTSecret     []byte
	RefreshSecret []byte
}

type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	IsAdmin      bool
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register", "email", req.Email)

	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	taken, err := s.Repo.UserEmailTaken(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: pwHash,
		Role:         "user",
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}

	if err := s.issueOTP(ctx, user); err != nil {
		l.Error("otp_issue_failed", "error", err)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, "user_events", fmt.Sprint(user.ID), map[string]interface{}{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
	}); err != nil {
		l.Error("kafka_publish_failed", "topic", "user_events", "error", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) issueOTP(ctx context.Context, user *models.User) error {
	code, err := hash.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteVerificationsFor(ctx, user.Email); err != nil {
		return err
	}
	v := &models.Verification{
		Identifier: user.Email,
		Value:      code,
		ExpiresAt:  time.Now().Add(otpTTL).Unix(),
		UserID:     user.ID,
	}
	if err := s.Repo.CreateVerification(ctx, v); err != nil {
		return err
	}
	if s.Notify != nil {
		s.Notify.VerificationCode(ctx, user.Email, code)
	}
	return nil
}

// consumeOTP validates and burns a code: a matching row is always deleted,
// whether it was still fresh or already expired.
func (s *AuthService) consumeOTP(ctx context.Context, email, code string) (*models.Verification, error) {
	v, err := s.Repo.GetVerification(ctx, email, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid code", ErrValidation)
		}
		return nil, err
	}
	if time.Now().Unix() > v.ExpiresAt {
		_ = s.Repo.DeleteVerification(ctx, v.ID)
		return nil, fmt.Errorf("%w: code expired", ErrValidation)
	}
	if err := s.Repo.DeleteVerification(ctx, v.ID); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	v, err := s.consumeOTP(ctx, email, code)
	if err != nil {
		return err
	}
	user, err := s.Repo.GetUserByID(ctx, v.UserID)
	if err != nil {
		return err
	}
	user.EmailVerified = true
	return s.Repo.SaveUser(ctx, user)
}

func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Do not leak which addresses exist.
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}
	return s.issueOTP(ctx, user)
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	code, err := hash.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteVerificationsFor(ctx, user.Email); err != nil {
		return err
	}
	v := &models.Verification{
		Identifier: user.Email,
		Value:      code,
		ExpiresAt:  time.Now().Add(otpTTL).Unix(),
		UserID:     user.ID,
	}
	if err := s.Repo.CreateVerification(ctx, v); err != nil {
		return err
	}
	if s.Notify != nil {
		s.Notify.PasswordResetCode(ctx, user.Email, code)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password required", ErrValidation)
	}
	v, err := s.consumeOTP(ctx, email, code)
	if err != nil {
		return err
	}
	user, err := s.Repo.GetUserByID(ctx, v.UserID)
	if err != nil {
		return err
	}
	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = pwHash
	return s.Repo.SaveUser(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if user.Banned && (user.BanExpires == 0 || time.Now().Unix() < user.BanExpires) {
		l.Warn("login_banned", "user_id", user.ID)
		return nil, fmt.Errorf("%w: account banned: %s", ErrUnauthorized, user.BanReason)
	}

	accessExp := time.Now().Add(15 * time.Minute)
	accessToken, err := SignAccessToken(user.ID, user.Role, s.JWTSecret, accessExp)
	if err != nil {
		return nil, err
	}

	refreshExp := time.Now().Add(7 * 24 * time.Hour)
	refreshToken, err := SignRefreshToken(user.ID, user.Role, s.RefreshSecret, refreshExp)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.SaveRefreshToken(ctx, &models.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: refreshExp.Unix(),
	}); err != nil {
		return nil, err
	}

	l.Info("login_success", "user_id", user.ID)
	return &LoginResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		IsAdmin:      user.Role == "admin",
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.Repo.RevokeRefreshToken(ctx, refreshToken)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, req transport.UpdateProfileRequest) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Image != nil {
		user.Image = *req.Image
	}
	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
