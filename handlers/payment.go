package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"minisaas.app/cloud/internal/logger"
	"minisaas.app/cloud/internal/onboarding"
	"minisaas.app/cloud/internal/payments"
	"minisaas.app/cloud/models"
)

type createCustomerRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Missing email")
		return
	}

	customer, err := s.Payments.CreateCustomer(r.Context(), req.Email, req.Name)
	if err != nil {
		logger.Error("Failed to create customer", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to create customer")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]*models.Customer{"customer": customer})
}

type findOrCreateCustomerResponse struct {
	Customer *models.Customer `json:"customer"`
	Created  bool             `json:"created"`
}

// FindOrCreateCustomer reuses the first customer matching the email and only
// creates one when the search comes back empty.
func (s *Server) FindOrCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Missing email")
		return
	}

	existing, err := s.Payments.FindCustomerByEmail(r.Context(), req.Email)
	if err != nil {
		logger.Error("Customer lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to search for existing customer")
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusOK, findOrCreateCustomerResponse{Customer: existing, Created: false})
		return
	}

	customer, err := s.Payments.CreateCustomer(r.Context(), req.Email, req.Name)
	if err != nil {
		logger.Error("Failed to create customer", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to create customer")
		return
	}

	writeJSON(w, http.StatusCreated, findOrCreateCustomerResponse{Customer: customer, Created: true})
}

type attachPaymentMethodRequest struct {
	CustomerID      string `json:"customerId"`
	PaymentMethodID string `json:"paymentMethodId"`
}

func (s *Server) AttachPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req attachPaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CustomerID == "" || req.PaymentMethodID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Missing customerId or paymentMethodId")
		return
	}

	if err := s.Payments.AttachPaymentMethod(r.Context(), req.CustomerID, req.PaymentMethodID); err != nil {
		logger.Error("Failed to attach payment method", map[string]interface{}{
			"customer_id": req.CustomerID,
			"error":       err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, payments.ErrorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListPaymentMethods accepts the customer id from the query string (GET) or
// the request body (POST).
func (s *Server) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")
	if customerID == "" && r.Method == http.MethodPost {
		var req struct {
			CustomerID string `json:"customerId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			customerID = req.CustomerID
		}
	}
	if customerID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Missing customerId")
		return
	}

	methods, err := s.Payments.ListPaymentMethods(r.Context(), customerID)
	if err != nil {
		logger.Error("Failed to list payment methods", map[string]interface{}{
			"customer_id": customerID,
			"error":       err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to list payment methods")
		return
	}

	writeJSON(w, http.StatusOK, map[string][]models.PaymentMethod{"paymentMethods": methods})
}

// DeletePaymentMethod detaches the card and clears the profile's customer
// link via the orchestrator.
func (s *Server) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	paymentMethodID := r.URL.Query().Get("paymentMethodId")
	userID := r.URL.Query().Get("userId")
	if paymentMethodID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Missing paymentMethodId")
		return
	}
	if userID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Missing userId")
		return
	}

	if err := s.Onboarding.RemovePaymentMethod(r.Context(), userID, paymentMethodID); err != nil {
		logger.Error("Failed to remove payment method", map[string]interface{}{
			"user_id":           userID,
			"payment_method_id": paymentMethodID,
			"error":             err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to remove payment method")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Payment method removed successfully",
	})
}

type setupPaymentMethodRequest struct {
	UserID          string `json:"userId"`
	PaymentMethodID string `json:"paymentMethodId"`
}

type setupPaymentMethodResponse struct {
	Success  bool             `json:"success"`
	Customer *models.Customer `json:"customer"`
	Created  bool             `json:"created"`
}

// SetupPaymentMethod runs the full first-card sequence for a registered
// user: resolve or create the Stripe customer, attach the card, and link the
// customer to the profile.
func (s *Server) SetupPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req setupPaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.PaymentMethodID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Missing userId or paymentMethodId")
		return
	}

	result, err := s.Onboarding.SetupPaymentMethod(r.Context(), req.UserID, req.PaymentMethodID)
	if err != nil {
		if errors.Is(err, onboarding.ErrProfileNotFound) {
			writeErrorResponse(w, http.StatusNotFound, "Profile not found")
			return
		}
		logger.Error("Payment method setup failed", map[string]interface{}{
			"user_id": req.UserID,
			"error":   err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to set up payment method")
		return
	}

	writeJSON(w, http.StatusOK, setupPaymentMethodResponse{
		Success:  true,
		Customer: result.Customer,
		Created:  result.Created,
	})
}

type createPaymentIntentRequest struct {
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	CustomerID string `json:"customer_id"`
}

// CreatePaymentIntent starts a one-time payment. The response carries the
// client secret the frontend confirms the payment with.
func (s *Server) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req createPaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		writeErrorResponse(w, http.StatusBadRequest, "Amount is required")
		return
	}

	intent, err := s.Payments.CreatePaymentIntent(r.Context(), req.Amount, req.Currency, req.CustomerID)
	if err != nil {
		logger.Error("Failed to create payment intent", map[string]interface{}{
			"amount": req.Amount,
			"error":  err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, payments.ErrorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"clientSecret": intent.ClientSecret})
}

type createSubscriptionRequest struct {
	CustomerID      string `json:"customerId"`
	PriceID         string `json:"priceId"`
	PaymentMethodID string `json:"paymentMethodId"`
}

func (s *Server) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CustomerID == "" || req.PriceID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Missing customerId or priceId")
		return
	}

	sub, err := s.Payments.CreateSubscription(r.Context(), req.CustomerID, req.PriceID, req.PaymentMethodID)
	if err != nil {
		logger.Error("Failed to create subscription", map[string]interface{}{
			"customer_id": req.CustomerID,
			"error":       err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, payments.ErrorMessage(err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"subscriptionId": sub.ID,
		"status":         sub.Status,
	})
}

func (s *Server) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	subscriptionID := r.URL.Query().Get("subscriptionId")
	if subscriptionID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Missing subscriptionId")
		return
	}

	sub, err := s.Payments.CancelSubscription(r.Context(), subscriptionID)
	if err != nil {
		logger.Error("Failed to cancel subscription", map[string]interface{}{
			"subscription_id": subscriptionID,
			"error":           err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to cancel subscription")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"subscriptionId": sub.ID,
		"status":         sub.Status,
	})
}
