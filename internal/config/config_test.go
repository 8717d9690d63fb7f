package config

import (
	"strings"
	"testing"
)

func setAllRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "test.db")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("IDENTITY_URL", "https://identity.example.com")
	t.Setenv("IDENTITY_API_KEY", "anon-key")
	t.Setenv("IDENTITY_JWT_SECRET", "jwt-secret")
	t.Setenv("NOTIFY_WEBHOOK_URL", "https://automation.example.com/webhook")
	t.Setenv("NOTIFY_WEBHOOK_SECRET", "notify-secret")
}

func TestNew_AllRequired(t *testing.T) {
	setAllRequired(t)

	cfg, err := New()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "test.db" {
		t.Errorf("Expected database url 'test.db', got %s", cfg.DatabaseURL)
	}
}

func TestNew_PortOverride(t *testing.T) {
	setAllRequired(t)
	t.Setenv("PORT", "9090")

	cfg, err := New()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
}

func TestNew_CollectsAllMissingVars(t *testing.T) {
	setAllRequired(t)
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("IDENTITY_URL", "")

	_, err := New()
	if err == nil {
		t.Fatal("Expected error for missing vars, got nil")
	}
	if !strings.Contains(err.Error(), "STRIPE_SECRET_KEY") {
		t.Errorf("Expected error to mention STRIPE_SECRET_KEY, got %v", err)
	}
	if !strings.Contains(err.Error(), "IDENTITY_URL") {
		t.Errorf("Expected error to mention IDENTITY_URL, got %v", err)
	}
}
