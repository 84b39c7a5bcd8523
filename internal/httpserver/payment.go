package httpserver

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rakibdev/topup-shop/internal/logging"
	"github.com/rakibdev/topup-shop/internal/payment"
	"github.com/rakibdev/topup-shop/internal/service"
	"github.com/rakibdev/topup-shop/internal/transport"
)

type PaymentHTTP struct {
	Svc    *service.ReconcileService
	Orders *service.OrderService
	// WebhookKey is the shared secret the provider echoes back in the
	// RT-UDDOKTAPAY-API-KEY header.
	WebhookKey string
}

// Create re-creates a gateway checkout for an order still awaiting payment.
func (h *PaymentHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.create")

	var req transport.CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	paymentURL, err := h.Orders.RetryPayment(ctx, currentUserID(c), isAdmin(c), req.OrderID)
	if err != nil {
		l.Warn("create_failed", "order_id", req.OrderID, "error", err)
		return serviceError(err, "cannot create payment")
	}

	l.Info("create_success", "order_id", req.OrderID)
	return c.JSON(http.StatusOK, echo.Map{"payment_url": paymentURL})
}

// Verify is the redirect-back path: the customer returns from the gateway
// with the invoice id and we re-verify against the provider.
func (h *PaymentHTTP) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.verify")

	var req transport.VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("verify_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.InvoiceID == "" {
		req.InvoiceID = c.QueryParam("invoice_id")
	}

	order, transitioned, err := h.Svc.Reconcile(ctx, req.InvoiceID)
	if err != nil {
		l.Warn("verify_failed", "invoice_id", req.InvoiceID, "error", err)
		return serviceError(err, "cannot verify payment")
	}

	l.Info("verify_success", "order_number", order.OrderNumber, "transitioned", transitioned)
	return c.JSON(http.StatusOK, echo.Map{
		"order":          order,
		"payment_status": order.PaymentStatus,
	})
}

// Webhook is the asynchronous provider callback. The header secret is
// compared in constant time; the payload is never trusted beyond the
// invoice id, which is re-verified against the provider.
func (h *PaymentHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")

	key := c.Request().Header.Get(payment.APIKeyHeader)
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.WebhookKey)) != 1 {
		l.Warn("webhook_rejected", "status", 401, "reason", "bad api key")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
	}

	var req transport.WebhookRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("webhook_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, transitioned, err := h.Svc.Reconcile(ctx, req.InvoiceID)
	if err != nil {
		l.Warn("webhook_reconcile_failed", "invoice_id", req.InvoiceID, "error", err)
		return serviceError(err, "cannot process webhook")
	}

	l.Info("webhook_processed", "order_number", order.OrderNumber, "transitioned", transitioned)
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
