// Package config loads application configuration from environment
// variables.  main loads an optional .env file before calling Load.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env            string // APP_ENV: dev, test or prod
	Port           string // APP_PORT
	DBUser         string // DB_USER
	DBPass         string // DB_PASS, empty allowed
	DBHost         string // DB_HOST
	DBPort         string // DB_PORT
	DBName         string // DB_NAME
	JWTSecret      string // JWT_SECRET
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
	BcryptCost     int    // BCRYPT_COST
	LogLevel       string // LOG_LEVEL

	StripeSecretKey     string // STRIPE_SECRET_KEY; empty selects the mock gateway
	StripeWebhookSecret string // STRIPE_WEBHOOK_SECRET
	PaymentCurrency     string // PAYMENT_CURRENCY

	AdminEmail    string // ADMIN_EMAIL; empty skips the admin bootstrap
	AdminPassword string // ADMIN_PASSWORD

	RabbitMQURL string // RABBITMQ_URL; empty disables events
	LogDir      string // BOOKING_LOG_DIR
}

// Load reads configuration values from environment variables.  Required
// variables are enforced by must() and missing values cause the program
// to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "8080"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         envStr("DB_PORT", "3306"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		LogLevel:       envStr("LOG_LEVEL", "info"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: must("STRIPE_WEBHOOK_SECRET"),
		PaymentCurrency:     strings.ToLower(envStr("PAYMENT_CURRENCY", "dkk")),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		RabbitMQURL: envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		LogDir:      envStr("BOOKING_LOG_DIR", "logs"),
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		logrus.Fatal("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}
	return cfg
}

// IsProd reports whether the app runs in production mode.
func (c Config) IsProd() bool { return c.Env == "prod" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		logrus.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
