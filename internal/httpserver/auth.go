package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rakibdev/topup-shop/internal/logging"
	"github.com/rakibdev/topup-shop/internal/service"
	"github.com/rakibdev/topup-shop/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		l.Warn("register_failed", "error", err)
		return serviceError(err, "cannot register")
	}

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		l.Warn("login_failed", "error", err)
		return serviceError(err, "cannot login")
	}

	c.SetCookie(CreateCookie("accessToken", res.AccessToken, "/", res.AccessExp))
	c.SetCookie(CreateCookie("refreshToken", res.RefreshToken, "/", res.RefreshExp))

	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"user":     res.User,
		"is_admin": res.IsAdmin,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	refreshCookie, err := c.Cookie("refreshToken")
	if err == nil {
		if err := h.Svc.Logout(ctx, refreshCookie.Value); err != nil {
			l.Error("logout_failed", "status", 500, "reason", "cannot revoke refresh token", "error", err)
		}
	}

	c.SetCookie(DeleteCookie("accessToken", "/"))
	c.SetCookie(DeleteCookie("refreshToken", "/"))

	l.Info("logout_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.Svc.Repo.GetUserByID(ctx, currentUserID(c))
	if err != nil {
		return serviceError(err, "cannot load user")
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHTTP) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.verify_email")

	var req transport.VerifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.VerifyEmail(ctx, req.Email, req.Code); err != nil {
		l.Warn("verify_email_failed", "error", err)
		return serviceError(err, "cannot verify email")
	}

	l.Info("verify_email_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}

func (h *AuthHTTP) ResendVerification(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.ResendVerificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.ResendVerification(ctx, req.Email); err != nil {
		return serviceError(err, "cannot resend code")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "code sent if the address is registered"})
}

func (h *AuthHTTP) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.ForgotPassword(ctx, req.Email); err != nil {
		return serviceError(err, "cannot send reset code")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "code sent if the address is registered"})
}

func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.reset_password")

	var req transport.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.ResetPassword(ctx, req.Email, req.Code, req.Password); err != nil {
		l.Warn("reset_password_failed", "error", err)
		return serviceError(err, "cannot reset password")
	}

	l.Info("reset_password_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func (h *AuthHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.update_profile")

	var req transport.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.UpdateProfile(ctx, currentUserID(c), req)
	if err != nil {
		l.Warn("update_profile_failed", "error", err)
		return serviceError(err, "cannot update profile")
	}

	l.Info("update_profile_success")
	return c.JSON(http.StatusOK, user)
}
