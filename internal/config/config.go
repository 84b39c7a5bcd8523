package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rakibdev/topup-shop/internal/models"
)

type Config struct {
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	JWT_SECRET     string
	REFRESH_SECRET string

	KAFKA_ADDRESS string

	SMTP_HOST     string
	SMTP_PORT     string
	SMTP_USER     string
	SMTP_PASSWORD string
	SMTP_FROM     string

	UDDOKTAPAY_API_KEY  string
	UDDOKTAPAY_BASE_URL string

	// BASE_URL is the public address of this service, used to build the
	// redirect, cancel and webhook URLs handed to the payment gateway.
	BASE_URL string

	LOG_LEVEL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:             os.Getenv("DB_HOST"),
		DB_PORT:             os.Getenv("DB_PORT"),
		DB_USER:             os.Getenv("DB_USER"),
		DB_PASSWORD:         os.Getenv("DB_PASSWORD"),
		DB_NAME:             os.Getenv("DB_NAME"),
		ES_URL:              os.Getenv("ES_URL"),
		ES_USER:             os.Getenv("ES_USER"),
		ES_PASSWORD:         os.Getenv("ES_PASSWORD"),
		JWT_SECRET:          os.Getenv("JWT_SECRET"),
		REFRESH_SECRET:      os.Getenv("REFRESH_SECRET"),
		KAFKA_ADDRESS:       os.Getenv("KAFKA_ADDRESS"),
		SMTP_HOST:           os.Getenv("SMTP_HOST"),
		SMTP_PORT:           os.Getenv("SMTP_PORT"),
		SMTP_USER:           os.Getenv("SMTP_USER"),
		SMTP_PASSWORD:       os.Getenv("SMTP_PASSWORD"),
		SMTP_FROM:           os.Getenv("SMTP_FROM"),
		UDDOKTAPAY_API_KEY:  os.Getenv("UDDOKTAPAY_API_KEY"),
		UDDOKTAPAY_BASE_URL: os.Getenv("UDDOKTAPAY_BASE_URL"),
		BASE_URL:            os.Getenv("BASE_URL"),
		LOG_LEVEL:           os.Getenv("LOG_LEVEL"),
	}

	return config, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to database: %w", err)
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
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}
