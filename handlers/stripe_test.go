package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stripe/stripe-go/v82"
)

func webhookEvent(t *testing.T, eventType string, data interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal event data: %v", err)
	}
	return stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestStripeWebhook_Acknowledges(t *testing.T) {
	env := newTestEnv()
	env.payments.webhookEvent = webhookEvent(t, "customer.created", map[string]string{
		"id":    "cus_1",
		"email": "buyer@example.com",
	})

	w := env.do(t, http.MethodPost, "/payment/webhook", map[string]string{}, map[string]string{
		"Stripe-Signature": "t=1,v1=abc",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["received"] != true {
		t.Errorf("Expected received true, got %v", body)
	}
}

func TestStripeWebhook_MissingSignature(t *testing.T) {
	env := newTestEnv()

	req := env.do(t, http.MethodPost, "/payment/webhook", map[string]string{}, nil)
	if req.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", req.Code)
	}
	body := decodeBody(t, req)
	if body["error"] != "No signature provided" {
		t.Errorf("Expected 'No signature provided', got %v", body["error"])
	}
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	env := newTestEnv()
	env.payments.webhookErr = errors.New("signature mismatch")

	w := env.do(t, http.MethodPost, "/payment/webhook", map[string]string{}, map[string]string{
		"Stripe-Signature": "t=1,v1=bogus",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Invalid signature" {
		t.Errorf("Expected 'Invalid signature', got %v", body["error"])
	}
}

func TestStripeWebhook_UnhandledEventStillAcknowledged(t *testing.T) {
	env := newTestEnv()
	env.payments.webhookEvent = webhookEvent(t, "charge.refunded", map[string]string{"id": "ch_1"})

	w := env.do(t, http.MethodPost, "/payment/webhook", map[string]string{}, map[string]string{
		"Stripe-Signature": "t=1,v1=abc",
	})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for unhandled event type, got %d", w.Code)
	}
}

func TestStripeWebhook_OversizedBody(t *testing.T) {
	env := newTestEnv()

	payload := map[string]string{"padding": strings.Repeat("x", maxWebhookBodyBytes+1)}
	w := env.do(t, http.MethodPost, "/payment/webhook", payload, map[string]string{
		"Stripe-Signature": "t=1,v1=abc",
	})

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 for oversized body, got %d", w.Code)
	}
}
