package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rakibdev/topup-shop/internal/config"
	"github.com/rakibdev/topup-shop/internal/es"
	"github.com/rakibdev/topup-shop/internal/httpserver"
	"github.com/rakibdev/topup-shop/internal/logging"
	"github.com/rakibdev/topup-shop/internal/mykafka"
	"github.com/rakibdev/topup-shop/internal/notify"
	"github.com/rakibdev/topup-shop/internal/payment"
	"github.com/rakibdev/topup-shop/internal/repo"
	"github.com/rakibdev/topup-shop/internal/service"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatal(err)
		}
		defer prod.Close()
	}

	esConn, err := es.NewClient(configuration)
	if err != nil {
		logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		esConn = nil
	}

	gateway := payment.NewUddoktaPay(
		configuration.UDDOKTAPAY_API_KEY,
		configuration.UDDOKTAPAY_BASE_URL,
		configuration.BASE_URL,
	)

	mailer := &notify.SMTPMailer{
		Host:     configuration.SMTP_HOST,
		Port:     configuration.SMTP_PORT,
		Username: configuration.SMTP_USER,
		Password: configuration.SMTP_PASSWORD,
		From:     configuration.SMTP_FROM,
	}
	notifier := &notify.Service{Mailer: mailer, Producer: prod}

	r := &repo.GormRepo{DB: db}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	orderSvc := &service.OrderService{
		Repo:     r,
		Gateway:  gateway,
		Notify:   notifier,
		Producer: prod,
	}

	deps := &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: &service.AuthService{
			Repo:          r,
			Notify:        notifier,
			Producer:      prod,
			JWTSecret:     jwtSecret,
			RefreshSecret: refreshSecret,
		}},
		CatalogHandler: &httpserver.CatalogHTTP{
			Svc: &service.CatalogService{Repo: r, Producer: prod, ES: esConn},
			ES:  esConn,
		},
		OrderHandler: &httpserver.OrderHTTP{Svc: orderSvc},
		PaymentHandler: &httpserver.PaymentHTTP{
			Svc: &service.ReconcileService{
				Repo:     r,
				Gateway:  gateway,
				Notify:   notifier,
				Producer: prod,
			},
			Orders:     orderSvc,
			WebhookKey: configuration.UDDOKTAPAY_API_KEY,
		},
		AdminHandler: &httpserver.AdminHTTP{Repo: r},
		AuthMW: &httpserver.AuthMW{Tokens: &service.TokenService{
			DB:            db,
			JWTSecret:     jwtSecret,
			RefreshSecret: refreshSecret,
		}},
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(httpserver.RequestLogger(logger))

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
