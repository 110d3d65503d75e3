package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/legendspp/hotel-bookings/internal/domain"
	"github.com/legendspp/hotel-bookings/internal/http/response"
	"github.com/legendspp/hotel-bookings/internal/payments"
	"github.com/legendspp/hotel-bookings/internal/service"
	"github.com/legendspp/hotel-bookings/pkg/auth"
	"github.com/legendspp/hotel-bookings/pkg/config"
	"github.com/legendspp/hotel-bookings/pkg/logger"
)

type Handlers struct {
	bookingService service.BookingService
	gateway        payments.Gateway
	config         *config.Config
}

func New(bookingService service.BookingService, gateway payments.Gateway, cfg *config.Config) *Handlers {
	return &Handlers{
		bookingService: bookingService,
		gateway:        gateway,
		config:         cfg,
	}
}

type claimsKey struct{}

// RequireStaff guards the admin routes with a staff JWT.
func (h *Handlers) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(w, "Missing or invalid authorization header")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
		if err != nil {
			response.Unauthorized(w, "Invalid token")
			return
		}

		if claims.Role != "staff" {
			response.Forbidden(w, "Insufficient permissions")
			return
		}

		ctx := context.WithValue(r.Context(), logger.StaffIDKey, claims.Email)
		ctx = context.WithValue(ctx, claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeDomainError maps domain sentinels to the HTTP error taxonomy.
// Anything unrecognized is an upstream failure: logged with context,
// surfaced as a generic 500.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrRoomUnavailable):
		response.Conflict(w, "room unavailable")
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "not found")
	case errors.Is(err, domain.ErrBookingCanceled):
		response.Conflict(w, "booking is canceled")
	default:
		logger.ErrorContext(ctx, "Request failed", "error", err)
		response.InternalError(w, "Internal error")
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
