package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"minisaas.app/cloud/internal/identity"
	"minisaas.app/cloud/internal/logger"
	"minisaas.app/cloud/models"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Success bool            `json:"success"`
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile,omitempty"`
}

type loginResponse struct {
	Success bool            `json:"success"`
	User    *models.User    `json:"user,omitempty"`
	Session *models.Session `json:"session"`
}

// Register creates a user with the identity provider and a matching local
// profile row. Provider rejections come back with the provider's message.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, profile, err := s.Onboarding.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		var providerErr *identity.Error
		if errors.As(err, &providerErr) {
			writeErrorResponse(w, http.StatusBadRequest, providerErr.Message)
			return
		}
		logger.Error("Registration failed", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to create user profile")
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Success: true,
		User:    user,
		Profile: profile,
	})
}

// Login exchanges credentials for a provider session. The login notification
// is queued by the orchestrator and never blocks the response.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	session, err := s.Onboarding.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var providerErr *identity.Error
		if errors.As(err, &providerErr) {
			writeErrorResponse(w, http.StatusUnauthorized, providerErr.Message)
			return
		}
		logger.Error("Login failed", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		User:    session.User,
		Session: session,
	})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Missing access token")
		return
	}

	if err := s.Identity.SignOut(r.Context(), token); err != nil {
		var providerErr *identity.Error
		if errors.As(err, &providerErr) && providerErr.Status < 500 {
			writeErrorResponse(w, http.StatusUnauthorized, providerErr.Message)
			return
		}
		logger.Error("Logout failed", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the authenticated user. The token signature is checked locally
// before the provider round trip.
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeErrorResponse(w, http.StatusUnauthorized, "Missing access token")
		return
	}

	if _, err := s.Identity.VerifyAccessToken(token); err != nil {
		writeErrorResponse(w, http.StatusUnauthorized, "Invalid access token")
		return
	}

	user, err := s.Identity.CurrentUser(r.Context(), token)
	if err != nil {
		var providerErr *identity.Error
		if errors.As(err, &providerErr) && providerErr.Status < 500 {
			writeErrorResponse(w, http.StatusUnauthorized, providerErr.Message)
			return
		}
		writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}
