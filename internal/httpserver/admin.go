package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rakibdev/topup-shop/internal/logging"
	"github.com/rakibdev/topup-shop/internal/repo"
	"github.com/rakibdev/topup-shop/internal/transport"
	"github.com/rakibdev/topup-shop/internal/util"
)

// AdminHTTP covers the user-management surface of the dashboard.
type AdminHTTP struct {
	Repo *repo.GormRepo
}

func (h *AdminHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_users")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, users, err := h.Repo.ListUsers(ctx, offset, limit)
	if err != nil {
		l.Error("list_users_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list users")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": users,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *AdminHTTP) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_user")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	var req transport.AdminUserUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Repo.GetUserByID(ctx, uint(id))
	if err != nil {
		l.Warn("update_user_failed", "user_id", id, "error", err)
		return serviceError(err, "cannot load user")
	}

	if req.Role != nil {
		if *req.Role != "user" && *req.Role != "admin" {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown role")
		}
		user.Role = *req.Role
	}
	if req.Banned != nil {
		user.Banned = *req.Banned
		if !*req.Banned {
			user.BanReason = ""
			user.BanExpires = 0
		}
	}
	if req.BanReason != nil {
		user.BanReason = *req.BanReason
	}
	if req.BanExpires != nil {
		user.BanExpires = *req.BanExpires
	}

	if err := h.Repo.SaveUser(ctx, user); err != nil {
		l.Error("update_user_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update user")
	}

	l.Info("update_user_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, user)
}
