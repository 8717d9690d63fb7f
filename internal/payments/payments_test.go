package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// newTestClient points the Stripe SDK at a local server standing in for the
// Stripe API.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(server.URL),
	})
	client := NewClientWithBackend("sk_test_123", "whsec_test", &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
	return client, server
}

func stripeAPIStub() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/customers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			email := r.URL.Query().Get("email")
			if email == "existing@example.com" {
				fmt.Fprint(w, `{"object":"list","url":"/v1/customers","has_more":false,"data":[{"id":"cus_existing","object":"customer","email":"existing@example.com","name":"Existing User"}]}`)
				return
			}
			fmt.Fprint(w, `{"object":"list","url":"/v1/customers","has_more":false,"data":[]}`)
			return
		}

		// POST create
		r.ParseForm()
		fmt.Fprintf(w, `{"id":"cus_new","object":"customer","email":"%s","name":"%s"}`,
			r.Form.Get("email"), r.Form.Get("name"))
	})

	mux.HandleFunc("/v1/customers/cus_existing", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		name := r.Form.Get("name")
		if name == "" {
			name = "Existing User"
		}
		fmt.Fprintf(w, `{"id":"cus_existing","object":"customer","email":"existing@example.com","name":"%s"}`, name)
	})

	mux.HandleFunc("/v1/payment_methods", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"object":"list","url":"/v1/payment_methods","has_more":false,"data":[{"id":"pm_1","object":"payment_method","type":"card","card":{"brand":"visa","last4":"4242","exp_month":12,"exp_year":2030}}]}`)
	})

	mux.HandleFunc("/v1/payment_methods/pm_1/attach", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"pm_1","object":"payment_method","type":"card"}`)
	})

	mux.HandleFunc("/v1/payment_methods/pm_1/detach", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"pm_1","object":"payment_method","type":"card"}`)
	})

	mux.HandleFunc("/v1/payment_intents", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		currency := r.Form.Get("currency")
		fmt.Fprintf(w, `{"id":"pi_1","object":"payment_intent","client_secret":"pi_1_secret_abc","amount":%s,"currency":"%s","status":"requires_payment_method"}`,
			r.Form.Get("amount"), currency)
	})

	mux.HandleFunc("/v1/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"sub_1","object":"subscription","status":"active","customer":{"id":"cus_existing"}}`)
	})

	mux.HandleFunc("/v1/subscriptions/sub_1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"sub_1","object":"subscription","status":"canceled","customer":{"id":"cus_existing"}}`)
	})

	return mux
}

func TestClient_FindCustomerByEmail(t *testing.T) {
	client, _ := newTestClient(t, stripeAPIStub())
	ctx := context.Background()

	customer, err := client.FindCustomerByEmail(ctx, "existing@example.com")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if customer == nil || customer.ID != "cus_existing" {
		t.Errorf("Expected customer cus_existing, got %v", customer)
	}

	customer, err = client.FindCustomerByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if customer != nil {
		t.Errorf("Expected nil customer for unknown email, got %v", customer)
	}
}

func TestClient_CreateCustomer(t *testing.T) {
	client, _ := newTestClient(t, stripeAPIStub())

	customer, err := client.CreateCustomer(context.Background(), "new@example.com", "New User")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if customer.ID != "cus_new" {
		t.Errorf("Expected customer id 'cus_new', got '%s'", customer.ID)
	}
	if customer.Email != "new@example.com" {
		t.Errorf("Expected email echoed back, got '%s'", customer.Email)
	}
}

func TestClient_AttachPaymentMethod(t *testing.T) {
	client, _ := newTestClient(t, stripeAPIStub())

	err := client.AttachPaymentMethod(context.Background(), "cus_existing", "pm_1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestClient_ListPaymentMethods(t *testing.T) {
	client, _ := newTestClient(t, stripeAPIStub())

	methods, err := client.ListPaymentMethods(context.Background(), "cus_existing")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(methods) != 1 {
		t.Fatalf("Expected 1 payment method, got %d", len(methods))
	}
	if methods[0].Brand != "visa" || methods[0].Last4 != "4242" {
		t.Errorf("Expected visa/4242 card, got %s/%s", methods[0].Brand, methods[0].Last4)
	}
	if methods[0].ExpMonth != 12 || methods[0].ExpYear != 2030 {
		t.Errorf("Expected expiry 12/2030, got %d/%d", methods[0].ExpMonth, methods[0].ExpYear)
	}
}

func TestClient_DetachPaymentMethod(t *testing.T) {
	client, _ := newTestClient(t, stripeAPIStub())

	if err := client.DetachPaymentMethod(context.Background(), "pm_1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestClient_Subscriptions(t *testing.T) {
	client, _ := newTestClient(t, stripeAPIStub())
	ctx := context.Background()

	sub, err := client.CreateSubscription(ctx, "cus_existing", "price_basic_monthly", "pm_1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if sub.ID != "sub_1" || sub.Status != "active" {
		t.Errorf("Expected active sub_1, got %v", sub)
	}

	canceled, err := client.CancelSubscription(ctx, "sub_1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if canceled.Status != "canceled" {
		t.Errorf("Expected status 'canceled', got '%s'", canceled.Status)
	}
}

// signPayload builds a Stripe-Signature header the way Stripe does:
// HMAC-SHA256 over "<timestamp>.<payload>".
func TestClient_CreatePaymentIntent(t *testing.T) {
	client, _ := newTestClient(t, stripeAPIStub())

	intent, err := client.CreatePaymentIntent(context.Background(), 1999, "", "cus_existing")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if intent.ClientSecret != "pi_1_secret_abc" {
		t.Errorf("Expected client secret 'pi_1_secret_abc', got '%s'", intent.ClientSecret)
	}
	if intent.Amount != 1999 {
		t.Errorf("Expected amount 1999, got %d", intent.Amount)
	}
	// Empty currency falls back to usd.
	if intent.Currency != "usd" {
		t.Errorf("Expected currency 'usd', got '%s'", intent.Currency)
	}
}

func signPayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestClient_ConstructWebhookEvent(t *testing.T) {
	client := NewClient("sk_test_123", "whsec_test")
	payload := []byte(`{"id":"evt_1","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)

	event, err := client.ConstructWebhookEvent(payload, signPayload(payload, "whsec_test", time.Now()))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if event.Type != "customer.created" {
		t.Errorf("Expected event type 'customer.created', got '%s'", event.Type)
	}
}

func TestClient_ConstructWebhookEvent_BadSignature(t *testing.T) {
	client := NewClient("sk_test_123", "whsec_test")
	payload := []byte(`{"id":"evt_1","object":"event","type":"customer.created"}`)

	if _, err := client.ConstructWebhookEvent(payload, signPayload(payload, "whsec_wrong", time.Now())); err == nil {
		t.Error("Expected signature verification error, got nil")
	}

	// Stale timestamp outside tolerance
	if _, err := client.ConstructWebhookEvent(payload, signPayload(payload, "whsec_test", time.Now().Add(-time.Hour))); err == nil {
		t.Error("Expected tolerance error for stale signature, got nil")
	}
}
