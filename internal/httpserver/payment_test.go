package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rakibdev/topup-shop/internal/models"
	"github.com/rakibdev/topup-shop/internal/payment"
	"github.com/rakibdev/topup-shop/internal/repo"
	"github.com/rakibdev/topup-shop/internal/service"
)

type stubGateway struct {
	verifyResult *payment.VerifyResult
	verifyErr    error
}

func (g *stubGateway) CreatePayment(context.Context, payment.CreateRequest) (*payment.CreateResult, error) {
	return &payment.CreateResult{PaymentURL: "https://pay.example.com/inv-1", InvoiceID: "inv-1"}, nil
}

func (g *stubGateway) VerifyPayment(context.Context, string) (*payment.VerifyResult, error) {
	return g.verifyResult, g.verifyErr
}

func newPaymentHandler(t *testing.T) (*PaymentHTTP, *stubGateway, *models.Order) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Category{}, &models.Product{}, &models.ProductVariant{},
		&models.Order{}, &models.OrderItem{}, &models.User{},
	))

	cat := &models.Category{Name: "Games", Slug: "games", IsActive: true}
	require.NoError(t, db.Create(cat).Error)
	prod := &models.Product{Name: "X", Slug: "x", CategoryID: cat.ID, IsActive: true}
	require.NoError(t, db.Create(prod).Error)
	user := &models.User{Email: "u@example.com", PasswordHash: "x", Role: "user"}
	require.NoError(t, db.Create(user).Error)

	order := &models.Order{
		OrderNumber:   service.GenerateOrderNumber(),
		UserID:        user.ID,
		Email:         user.Email,
		ProductID:     prod.ID,
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.OrderStatusPending,
		TotalAmount:   100,
		InvoiceID:     "inv-1",
	}
	require.NoError(t, db.Create(order).Error)

	gw := &stubGateway{}
	h := &PaymentHTTP{
		Svc: &service.ReconcileService{
			Repo:    &repo.GormRepo{DB: db},
			Gateway: gw,
		},
		WebhookKey: "topsecret",
	}
	return h, gw, order
}

func postWebhook(h *PaymentHTTP, apiKey, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook/uddoktapay", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if apiKey != "" {
		req.Header.Set(payment.APIKeyHeader, apiKey)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Webhook(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestWebhookRejectsBadKey(t *testing.T) {
	h, gw, order := newPaymentHandler(t)
	gw.verifyResult = &payment.VerifyResult{
		Status:   payment.StatusCompleted,
		Metadata: map[string]string{"order_id": strconv.FormatUint(uint64(order.ID), 10)},
	}

	for _, key := range []string{"", "wrong"} {
		rec := postWebhook(h, key, `{"invoice_id":"inv-1","status":"COMPLETED"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "key %q", key)
	}

	// Rejected calls must not touch the order.
	var stored models.Order
	require.NoError(t, h.Svc.Repo.DB.First(&stored, order.ID).Error)
	require.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

func TestWebhookAppliesTransition(t *testing.T) {
	h, gw, order := newPaymentHandler(t)
	gw.verifyResult = &payment.VerifyResult{
		Status:    payment.StatusCompleted,
		InvoiceID: "inv-1",
		RawStatus: "COMPLETED",
		Metadata:  map[string]string{"order_id": strconv.FormatUint(uint64(order.ID), 10)},
	}

	rec := postWebhook(h, "topsecret", `{"invoice_id":"inv-1","status":"COMPLETED"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Order
	require.NoError(t, h.Svc.Repo.DB.First(&stored, order.ID).Error)
	require.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	require.Equal(t, models.OrderStatusProcessing, stored.Status)
}

func TestWebhookIgnoresSpoofedStatus(t *testing.T) {
	h, gw, order := newPaymentHandler(t)

	// Body claims COMPLETED but the provider still reports PENDING; the
	// re-verification wins and nothing changes.
	gw.verifyResult = &payment.VerifyResult{
		Status:    payment.StatusPending,
		InvoiceID: "inv-1",
		RawStatus: "PENDING",
		Metadata:  map[string]string{"order_id": strconv.FormatUint(uint64(order.ID), 10)},
	}

	rec := postWebhook(h, "topsecret", `{"invoice_id":"inv-1","status":"COMPLETED"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Order
	require.NoError(t, h.Svc.Repo.DB.First(&stored, order.ID).Error)
	require.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	require.Equal(t, models.OrderStatusPending, stored.Status)
}

func TestVerifyReadsInvoiceFromQuery(t *testing.T) {
	h, gw, order := newPaymentHandler(t)
	gw.verifyResult = &payment.VerifyResult{
		Status:    payment.StatusCompleted,
		InvoiceID: "inv-1",
		RawStatus: "COMPLETED",
		Metadata:  map[string]string{"order_id": strconv.FormatUint(uint64(order.ID), 10)},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/verify?invoice_id=inv-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Verify(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"payment_status":"PAID"`)
}
