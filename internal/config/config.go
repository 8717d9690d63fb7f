package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
)

type Config struct {
	Port string

	DatabaseURL string

	StripeSecret        string
	StripeWebhookSecret string

	IdentityURL       string
	IdentityAPIKey    string
	IdentityJWTSecret string

	NotifyWebhookURL    string
	NotifyWebhookSecret string

	SentryDSN string
}

// New reads configuration from the environment. All missing required
// variables are reported in one error so a broken deployment fails with the
// full list, not one variable at a time.
func New() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	cfg := &Config{
		Port:                port,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		StripeSecret:        os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		IdentityURL:         os.Getenv("IDENTITY_URL"),
		IdentityAPIKey:      os.Getenv("IDENTITY_API_KEY"),
		IdentityJWTSecret:   os.Getenv("IDENTITY_JWT_SECRET"),
		NotifyWebhookURL:    os.Getenv("NOTIFY_WEBHOOK_URL"),
		NotifyWebhookSecret: os.Getenv("NOTIFY_WEBHOOK_SECRET"),
		SentryDSN:           os.Getenv("SENTRY_DSN"),
	}

	var result *multierror.Error
	required := []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"STRIPE_SECRET_KEY", cfg.StripeSecret},
		{"STRIPE_WEBHOOK_SECRET", cfg.StripeWebhookSecret},
		{"IDENTITY_URL", cfg.IdentityURL},
		{"IDENTITY_API_KEY", cfg.IdentityAPIKey},
		{"IDENTITY_JWT_SECRET", cfg.IdentityJWTSecret},
		{"NOTIFY_WEBHOOK_URL", cfg.NotifyWebhookURL},
		{"NOTIFY_WEBHOOK_SECRET", cfg.NotifyWebhookSecret},
	}
	for _, v := range required {
		if v.value == "" {
			result = multierror.Append(result, fmt.Errorf("%s environment variable is required", v.name))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}
