package config

import (
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"campuseats/internal/database"
)

type Config struct {
	Port string

	DB database.Config

	StripeSecretKey     string
	StripeWebhookSecret string

	MpesaBaseURL     string
	MpesaConsumerKey string
	MpesaSecret      string
	MpesaShortcode   string
	MpesaPasskey     string
	MpesaCallbackURL string

	ReconcileInterval time.Duration
	ReconcileAfter    time.Duration
}

func Load() Config {
	return Config{
		Port: getenv("PORT", "8080"),
		DB: database.Config{
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getenv("DB_PORT", "5432"),
			User:     getenv("DB_USERNAME", "postgres"),
			Password: getenv("DB_PASSWORD", "postgres"),
			Name:     getenv("DB_DATABASE", "campuseats"),
			Schema:   getenv("DB_SCHEMA", "public"),
		},
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		MpesaBaseURL:        getenv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		MpesaConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		MpesaSecret:         os.Getenv("MPESA_CONSUMER_SECRET"),
		MpesaShortcode:      getenv("MPESA_SHORTCODE", "174379"),
		MpesaPasskey:        os.Getenv("MPESA_PASSKEY"),
		MpesaCallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
		ReconcileInterval:   getdur("RECONCILE_INTERVAL", time.Minute),
		ReconcileAfter:      getdur("RECONCILE_AFTER", 2*time.Minute),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getdur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
