package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rakibdev/topup-shop/internal/logging"
	"github.com/rakibdev/topup-shop/internal/service"
	"github.com/rakibdev/topup-shop/internal/transport"
	"github.com/rakibdev/topup-shop/internal/util"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.CreateOrder(ctx, currentUserID(c), req)
	if err != nil {
		l.Warn("create_order_failed", "error", err)
		return serviceError(err, "cannot create order")
	}

	l.Info("create_order_success", "order_number", res.Order.OrderNumber)
	return c.JSON(http.StatusCreated, echo.Map{
		"order":          res.Order,
		"payment_url":    res.PaymentURL,
		"payment_failed": res.PaymentFailed,
	})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	order, err := h.Svc.GetOrder(ctx, uint(id), currentUserID(c), isAdmin(c))
	if err != nil {
		l.Warn("get_order_failed", "order_id", id, "error", err)
		return serviceError(err, "cannot get order")
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, orders, err := h.Svc.ListOrdersForUser(ctx, currentUserID(c), offset, limit)
	if err != nil {
		l.Error("list_orders_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *OrderHTTP) AdminListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.admin_list_orders")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, orders, err := h.Svc.ListOrders(ctx, c.QueryParam("status"), c.QueryParam("payment_status"), offset, limit)
	if err != nil {
		l.Error("admin_list_orders_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *OrderHTTP) AdminUpdateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.admin_update_order")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	var req transport.AdminOrderUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.UpdateOrderAdmin(ctx, uint(id), req)
	if err != nil {
		l.Warn("admin_update_order_failed", "order_id", id, "error", err)
		return serviceError(err, "cannot update order")
	}

	l.Info("admin_update_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}
