package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/rakibdev/topup-shop/internal/logging"
	"github.com/rakibdev/topup-shop/internal/service"
)

func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)

			l := base.With(
				"method", c.Request().Method,
				"path", c.Path(),
				"url", c.Request().URL.Path,
				"remote_ip", c.RealIP(),
				"user_agent", c.Request().UserAgent(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}

			req := c.Request().WithContext(logging.IntoContext(c.Request().Context(), l))
			c.SetRequest(req)

			start := time.Now()
			err := next(c)
			dur := time.Since(start)
			status := c.Response().Status

			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
				status = c.Response().Status
			}

			switch {
			case err != nil || status >= 500:
				l.Error("request completed", "status", status, "duration_ms", dur.Milliseconds(), "error", errStr(err))
			case status >= 400:
				l.Warn("request completed", "status", status, "duration_ms", dur.Milliseconds())
			default:
				l.Info("request completed", "status", status, "duration_ms", dur.Milliseconds(), "bytes", c.Response().Size)
			}
			return nil
		}
	}
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%v", err)
}

// AuthMW authenticates requests from the access/refresh cookie pair,
// transparently rotating an expired access token.
type AuthMW struct {
	Tokens *service.TokenService
}

func (m *AuthMW) authenticate(c echo.Context) error {
	asCookie, err := c.Cookie("accessToken")
	if err == nil {
		token, err := jwt.Parse(asCookie.Value, func(j *jwt.Token) (interface{}, error) {
			return m.Tokens.JWTSecret, nil
		})
		if err == nil && token.Valid {
			setUserContext(c, token.Claims.(jwt.MapClaims))
			return nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
	}

	rfCookie, err := c.Cookie("refreshToken")
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	newAccess, newRefresh, err := m.Tokens.RotateToken(rfCookie.Value)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	c.SetCookie(CreateCookie("accessToken", newAccess, "/", time.Now().Add(15*time.Minute)))
	c.SetCookie(CreateCookie("refreshToken", newRefresh, "/", time.Now().Add(7*24*time.Hour)))

	token, _ := jwt.Parse(newAccess, func(j *jwt.Token) (interface{}, error) { return m.Tokens.JWTSecret, nil })
	setUserContext(c, token.Claims.(jwt.MapClaims))
	return nil
}

func (m *AuthMW) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := m.authenticate(c); err != nil {
			return err
		}
		return next(c)
	}
}

func (m *AuthMW) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := m.authenticate(c); err != nil {
			return err
		}
		if role, _ := c.Get("role").(string); role != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "admin only")
		}
		return next(c)
	}
}

func setUserContext(c echo.Context, claims jwt.MapClaims) {
	c.Set("userID", uint(claims["sub"].(float64)))
	c.Set("role", claims["role"].(string))
}

func currentUserID(c echo.Context) uint {
	id, _ := c.Get("userID").(uint)
	return id
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "admin"
}
