package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/legendspp/hotel-bookings/internal/domain"
	"github.com/legendspp/hotel-bookings/internal/http/response"
)

// CreateBooking handles POST /v1/bookings: claims a room and returns the
// pending booking together with its payment link.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.BookingRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	result, err := h.bookingService.Create(r.Context(), &req)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// GetBooking handles GET /v1/bookings/{id}
func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	booking, err := h.bookingService.Get(r.Context(), id)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	if booking == nil {
		response.NotFound(w, "Booking not found")
		return
	}

	writeJSON(w, http.StatusOK, booking)
}
