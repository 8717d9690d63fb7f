package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"minisaas.app/cloud/internal/logger"
	"minisaas.app/cloud/internal/notify"
)

type forwardNotificationRequest struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
}

// ForwardNotification relays a caller-supplied login event to the automation
// webhook synchronously, so the caller learns whether delivery worked.
func (s *Server) ForwardNotification(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.notifySecret)) != 1 {
		writeErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req forwardNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.Email == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Missing user_id or email")
		return
	}

	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	payload := notify.Payload{
		UserID:    req.UserID,
		Email:     req.Email,
		Name:      req.Name,
		Timestamp: timestamp,
		EventType: notify.KindLogin,
	}

	if err := s.Notifier.Forward(r.Context(), payload); err != nil {
		logger.Error("Notification forward failed", map[string]interface{}{
			"user_id": req.UserID,
			"error":   err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to forward notification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Notification forwarded successfully",
	})
}
