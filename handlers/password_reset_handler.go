package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"experteneAPI/internal/types/passwordreset"
	"experteneAPI/services"
)

type PasswordResetHandler struct {
	resetService *services.PasswordResetService
}

func NewPasswordResetHandler(resetService *services.PasswordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{resetService: resetService}
}

// RequestReset always answers 200 with the same body, whether or not the
// email exists or the rate limit was hit, so addresses cannot be enumerated.
func (h *PasswordResetHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req passwordreset.RequestResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		respondWithErrorCode(w, http.StatusBadRequest, "invalid_email", "A valid email is required")
		return
	}

	if err := h.resetService.RequestReset(ctx, email); err != nil {
		// Internal failures are logged but still answered with the generic
		// body; the client learns nothing about the account.
		log.Printf("Password reset request failed for %s: %v", email, err)
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "If that address has an account, a reset link is on its way",
	})
}

func (h *PasswordResetHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req passwordreset.ConfirmResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Token == "" {
		respondWithErrorCode(w, http.StatusBadRequest, "missing_token", "Field 'token' is required")
		return
	}

	err := h.resetService.ConfirmReset(ctx, req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrResetTokenInvalid):
			respondWithErrorCode(w, http.StatusBadRequest, "invalid_token", "Reset link is invalid or expired")
		case errors.Is(err, services.ErrWeakPassword):
			respondWithErrorCode(w, http.StatusBadRequest, "weak_password", "Password must be at least 8 characters")
		default:
			log.Printf("Password reset confirmation failed: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to reset password")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}
