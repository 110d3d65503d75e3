package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/legendspp/hotel-bookings/internal/domain"
	"github.com/legendspp/hotel-bookings/internal/http/response"
)

// ListBookings handles GET /v1/admin/bookings with optional status filter.
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var statusPtr *domain.BookingStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		if st, ok := domain.ParseBookingStatus(raw); ok {
			statusPtr = &st
		} else {
			response.BadRequest(w, "Invalid status parameter")
			return
		}
	}

	bookings, err := h.bookingService.List(r.Context(), limit, offset, statusPtr)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}

	writeJSON(w, http.StatusOK, bookings)
}

type bookingPatch struct {
	Status string `json:"status"`
}

// UpdateBooking handles PATCH /v1/admin/bookings/{id}. Cancellation is the
// only staff transition; it frees the room's date range immediately.
func (h *Handlers) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	var patch bookingPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if patch.Status != string(domain.BookingCanceled) {
		response.BadRequest(w, "Only status=canceled is supported")
		return
	}

	booking, err := h.bookingService.Cancel(r.Context(), id, "staff_canceled")
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
