package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/rakibdev/topup-shop/internal/models"
	"github.com/rakibdev/topup-shop/internal/notify"
	"github.com/rakibdev/topup-shop/internal/payment"
	"github.com/rakibdev/topup-shop/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Order{},
		&models.OrderItem{},
		&models.User{},
		&models.RefreshToken{},
		&models.Verification{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

type fakeGateway struct {
	createResult *payment.CreateResult
	createErr    error
	verifyResult *payment.VerifyResult
	verifyErr    error

	createCalls int
	verifyCalls int
}

func (g *fakeGateway) CreatePayment(_ context.Context, _ payment.CreateRequest) (*payment.CreateResult, error) {
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	if g.createResult != nil {
		return g.createResult, nil
	}
	return &payment.CreateResult{PaymentURL: "https://pay.example.com/inv-1", InvoiceID: "inv-1"}, nil
}

func (g *fakeGateway) VerifyPayment(_ context.Context, _ string) (*payment.VerifyResult, error) {
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.verifyResult, nil
}

type sentMail struct {
	To      string
	Subject string
}

type fakeMailer struct {
	sent []sentMail
}

func (m *fakeMailer) Send(_ context.Context, to, subject, _ string) error {
	m.sent = append(m.sent, sentMail{To: to, Subject: subject})
	return nil
}

func newNotify(mailer *fakeMailer) *notify.Service {
	return &notify.Service{Mailer: mailer}
}

func seedCatalog(t *testing.T, db *gorm.DB) (*models.Category, *models.Product, *models.ProductVariant) {
	t.Helper()

	cat := &models.Category{Name: "Games", Slug: "games", IsActive: true}
	if err := db.Create(cat).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	prod := &models.Product{
		Name:       "X",
		Slug:       "x",
		CategoryID: cat.ID,
		IsActive:   true,
		Variants: []models.ProductVariant{
			{Name: "100 coins", Price: 100, IsActive: true},
		},
	}
	if err := db.Create(prod).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	return cat, prod, &prod.Variants[0]
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()

	user := &models.User{Email: email, Name: "test", PasswordHash: "x", Role: role}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func newRepo(db *gorm.DB) *repo.GormRepo {
	return &repo.GormRepo{DB: db}
}
