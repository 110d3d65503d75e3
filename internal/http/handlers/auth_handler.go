package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"

	"github.com/legendspp/hotel-bookings/internal/http/response"
	"github.com/legendspp/hotel-bookings/pkg/auth"
	"github.com/legendspp/hotel-bookings/pkg/logger"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /v1/auth/login for front-desk staff. Credentials are
// checked against the configured admin account.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		response.BadRequest(w, "email and password are required")
		return
	}

	cfg := h.config.Auth
	if cfg.AdminPasswordHash == "" || !strings.EqualFold(email, cfg.AdminEmail) {
		response.Unauthorized(w, "Invalid credentials")
		return
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, cfg.AdminPasswordHash)
	if err != nil || !match {
		response.Unauthorized(w, "Invalid credentials")
		return
	}

	token, err := auth.NewStaffToken(email, cfg.JWTSecret, cfg.StaffTokenTTL)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to sign staff token", "error", err)
		response.InternalError(w, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}
