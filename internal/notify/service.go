package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rakibdev/topup-shop/internal/logging"
	"github.com/rakibdev/topup-shop/internal/models"
	"github.com/rakibdev/topup-shop/internal/mykafka"
)

// Service sends transactional email best-effort: every failure is logged and
// swallowed so a broken mail provider can never fail an order, a payment
// reconciliation or a registration.
type Service struct {
	Mailer   Mailer
	Producer *mykafka.Producer
}

func (s *Service) send(ctx context.Context, to, subject, body string) {
	l := logging.FromContext(ctx).With("svc", "notify", "to", to, "subject", subject)

	event := map[string]interface{}{
		"type":    "email_send",
		"to":      to,
		"subject": subject,
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, "email_events", to, event); err != nil {
		l.Error("email_event_publish_failed", "error", err)
	}

	if s.Mailer == nil {
		return
	}
	if err := s.Mailer.Send(pubCtx, to, subject, body); err != nil {
		l.Error("email_send_failed", "error", err)
	}
}

func (s *Service) OrderConfirmation(ctx context.Context, order *models.Order) {
	subject := fmt.Sprintf("Order %s received", order.OrderNumber)
	body := fmt.Sprintf(
		"Thanks for your order!\r\n\r\nOrder number: %s\r\nTotal: %d\r\n\r\nWe will process it as soon as the payment is confirmed.",
		order.OrderNumber, order.TotalAmount,
	)
	s.send(ctx, order.Email, subject, body)
}

func (s *Service) PaymentStatus(ctx context.Context, order *models.Order) {
	var subject, body string
	switch order.PaymentStatus {
	case models.PaymentStatusPaid:
		subject = fmt.Sprintf("Payment received for order %s", order.OrderNumber)
		body = fmt.Sprintf("We received your payment of %d. Your order %s is now being processed.", order.TotalAmount, order.OrderNumber)
	default:
		subject = fmt.Sprintf("Payment failed for order %s", order.OrderNumber)
		body = fmt.Sprintf("The payment for order %s did not complete. Please try again or contact support.", order.OrderNumber)
	}
	s.send(ctx, order.Email, subject, body)
}

func (s *Service) VerificationCode(ctx context.Context, email, code string) {
	subject := "Your verification code"
	body := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
	s.send(ctx, email, subject, body)
}

func (s *Service) PasswordResetCode(ctx context.Context, email, code string) {
	subject := "Your password reset code"
	body := fmt.Sprintf("Your password reset code is %s. It expires in 10 minutes.", code)
	s.send(ctx, email, subject, body)
}
