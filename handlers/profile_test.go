package handlers

import (
	"context"
	"net/http"
	"testing"

	"minisaas.app/cloud/models"
)

func TestGetProfile_Found(t *testing.T) {
	env := newTestEnv()
	if err := env.storage.SaveProfile(context.Background(), &models.Profile{
		ID:    "user-1",
		Email: "user@example.com",
	}); err != nil {
		t.Fatalf("Failed to seed profile: %v", err)
	}

	w := env.do(t, http.MethodGet, "/profile/user-1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body := decodeBody(t, w)
	profile, ok := body["profile"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected profile object")
	}
	if profile["email"] != "user@example.com" {
		t.Errorf("Expected email 'user@example.com', got %v", profile["email"])
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodGet, "/profile/missing", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Profile not found" {
		t.Errorf("Expected 'Profile not found', got %v", body["error"])
	}
}

func TestUpdateStripeCustomerID_Success(t *testing.T) {
	env := newTestEnv()
	if err := env.storage.SaveProfile(context.Background(), &models.Profile{
		ID:    "user-1",
		Email: "user@example.com",
	}); err != nil {
		t.Fatalf("Failed to seed profile: %v", err)
	}

	w := env.do(t, http.MethodPost, "/profile/update-stripe-customer-id", map[string]string{
		"userId":           "user-1",
		"stripeCustomerId": "cus_123",
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	profile, err := env.storage.GetProfile(context.Background(), "user-1")
	if err != nil || profile == nil {
		t.Fatalf("Expected profile, got %v, %v", profile, err)
	}
	if profile.StripeCustomerID != "cus_123" {
		t.Errorf("Expected stripe customer id 'cus_123', got %s", profile.StripeCustomerID)
	}
}

func TestUpdateStripeCustomerID_Overwrites(t *testing.T) {
	env := newTestEnv()
	if err := env.storage.SaveProfile(context.Background(), &models.Profile{
		ID:               "user-1",
		Email:            "user@example.com",
		StripeCustomerID: "cus_old",
	}); err != nil {
		t.Fatalf("Failed to seed profile: %v", err)
	}

	w := env.do(t, http.MethodPost, "/profile/update-stripe-customer-id", map[string]string{
		"userId":           "user-1",
		"stripeCustomerId": "cus_new",
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	profile, _ := env.storage.GetProfile(context.Background(), "user-1")
	if profile.StripeCustomerID != "cus_new" {
		t.Errorf("Expected overwrite to 'cus_new', got %s", profile.StripeCustomerID)
	}
}

func TestUpdateStripeCustomerID_UnknownUserStillReportsSuccess(t *testing.T) {
	env := newTestEnv()

	// The store treats an update of a missing row as a no-op, so the
	// endpoint reports success without a profile to update.
	w := env.do(t, http.MethodPost, "/profile/update-stripe-customer-id", map[string]string{
		"userId":           "ghost",
		"stripeCustomerId": "cus_123",
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["success"] != true {
		t.Errorf("Expected success true, got %v", body)
	}

	profile, err := env.storage.GetProfile(context.Background(), "ghost")
	if err != nil || profile != nil {
		t.Errorf("Expected no profile row created, got %v, %v", profile, err)
	}
}

func TestUpdateStripeCustomerID_MissingFields(t *testing.T) {
	env := newTestEnv()

	w := env.do(t, http.MethodPost, "/profile/update-stripe-customer-id", map[string]string{
		"userId": "user-1",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
