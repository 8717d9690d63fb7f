package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"minisaas.app/cloud/internal/logger"
	"minisaas.app/cloud/models"
)

func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	profile, err := s.Storage.GetProfile(r.Context(), id)
	if err != nil {
		logger.Error("Failed to load profile", map[string]interface{}{
			"user_id": id,
			"error":   err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	if profile == nil {
		writeErrorResponse(w, http.StatusNotFound, "Profile not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]*models.Profile{"profile": profile})
}

type updateStripeCustomerIDRequest struct {
	UserID           string `json:"userId"`
	StripeCustomerID string `json:"stripeCustomerId"`
}

// UpdateStripeCustomerID overwrites the profile's customer link directly.
// Unlike the setup flow this does not check for an existing value.
func (s *Server) UpdateStripeCustomerID(w http.ResponseWriter, r *http.Request) {
	var req updateStripeCustomerIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.StripeCustomerID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Missing userId or stripeCustomerId")
		return
	}

	if err := s.Storage.SetStripeCustomerID(r.Context(), req.UserID, req.StripeCustomerID); err != nil {
		logger.Error("Failed to update stripe customer id", map[string]interface{}{
			"user_id": req.UserID,
			"error":   err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Failed to update profile",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
