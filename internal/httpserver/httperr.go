package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/rakibdev/topup-shop/internal/service"
)

// serviceError maps the service-layer sentinel errors onto HTTP codes with
// a safe message; anything unanticipated becomes a generic 500.
func serviceError(err error, fallback string) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUpstream):
		return echo.NewHTTPError(http.StatusBadGateway, "payment provider unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, fallback)
	}
}
