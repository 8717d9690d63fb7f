package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"

	"minisaas.app/cloud/internal/logger"
)

const maxWebhookBodyBytes = 65536

// StripeWebhook verifies the event signature and acknowledges. Events are
// logged for observability; no local state is derived from them.
func (s *Server) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "Failed to read request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		writeErrorResponse(w, http.StatusBadRequest, "No signature provided")
		return
	}

	event, err := s.Payments.ConstructWebhookEvent(payload, signature)
	if err != nil {
		logger.Warn("Webhook signature verification failed", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	s.logStripeEvent(event)

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *Server) logStripeEvent(event stripe.Event) {
	switch event.Type {
	case "customer.created", "customer.updated":
		var customer stripe.Customer
		if err := json.Unmarshal(event.Data.Raw, &customer); err != nil {
			logger.Warn("Failed to parse customer event", map[string]interface{}{
				"event_type": string(event.Type),
			})
			return
		}
		logger.Info("Stripe customer event", map[string]interface{}{
			"event_type":  string(event.Type),
			"customer_id": customer.ID,
			"email":       customer.Email,
		})

	case "payment_method.attached":
		var pm stripe.PaymentMethod
		if err := json.Unmarshal(event.Data.Raw, &pm); err != nil {
			logger.Warn("Failed to parse payment method event", nil)
			return
		}
		fields := map[string]interface{}{
			"payment_method_id": pm.ID,
		}
		if pm.Card != nil {
			fields["brand"] = string(pm.Card.Brand)
			fields["last4"] = pm.Card.Last4
		}
		logger.Info("Payment method attached", fields)

	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			logger.Warn("Failed to parse payment intent event", nil)
			return
		}
		logger.Info("Payment succeeded", map[string]interface{}{
			"payment_intent_id": intent.ID,
			"amount":            formatCurrency(intent.Amount, string(intent.Currency)),
		})

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			logger.Warn("Failed to parse invoice event", nil)
			return
		}
		logger.Info("Invoice event", map[string]interface{}{
			"event_type": string(event.Type),
			"invoice_id": invoice.ID,
			"amount":     formatCurrency(invoice.AmountDue, string(invoice.Currency)),
			"date":       formatDate(time.Unix(invoice.Created, 0).UTC()),
		})

	default:
		logger.Debug("Unhandled Stripe event", map[string]interface{}{
			"event_type": string(event.Type),
		})
	}
}
