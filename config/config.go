package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	Port       string
	Env        string
	AppBaseURL string

	// Razorpay (card rail)
	RazorpayKey           string
	RazorpaySecret        string
	RazorpayWebhookSecret string

	// Mobile money rails
	MTNBaseURL          string
	MTNClientID         string
	MTNClientSecret     string
	MTNTokenURL         string
	MTNWebhookSecret    string
	AirtelBaseURL       string
	AirtelAPIKey        string
	AirtelWebhookSecret string
	ZamtelBaseURL       string
	ZamtelAPIKey        string
	ZamtelWebhookToken  string

	// Extension pricing in basis points, configurable per jurisdiction
	ServiceFeeBps int64
	TaxBps        int64

	CronSecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// A missing .env file is fine in deployed environments; real env vars win.
	_ = godotenv.Load()

	config := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		Port:       os.Getenv("PORT"),
		Env:        os.Getenv("ENV"),
		AppBaseURL: os.Getenv("APP_BASE_URL"),

		RazorpayKey:           os.Getenv("RAZORPAY_KEY"),
		RazorpaySecret:        os.Getenv("RAZORPAY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),

		MTNBaseURL:          os.Getenv("MTN_MOMO_BASE_URL"),
		MTNClientID:         os.Getenv("MTN_MOMO_CLIENT_ID"),
		MTNClientSecret:     os.Getenv("MTN_MOMO_CLIENT_SECRET"),
		MTNTokenURL:         os.Getenv("MTN_MOMO_TOKEN_URL"),
		MTNWebhookSecret:    os.Getenv("MTN_MOMO_WEBHOOK_SECRET"),
		AirtelBaseURL:       os.Getenv("AIRTEL_MONEY_BASE_URL"),
		AirtelAPIKey:        os.Getenv("AIRTEL_MONEY_API_KEY"),
		AirtelWebhookSecret: os.Getenv("AIRTEL_MONEY_WEBHOOK_SECRET"),
		ZamtelBaseURL:       os.Getenv("ZAMTEL_KWACHA_BASE_URL"),
		ZamtelAPIKey:        os.Getenv("ZAMTEL_KWACHA_API_KEY"),
		ZamtelWebhookToken:  os.Getenv("ZAMTEL_KWACHA_WEBHOOK_TOKEN"),

		ServiceFeeBps: envInt64("SERVICE_FEE_BPS", 1000),
		TaxBps:        envInt64("TAX_BPS", 1600),

		CronSecret: os.Getenv("CRON_SECRET"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     int(envInt64("SMTP_PORT", 587)),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
	}

	if config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
