package handlers

import (
	"net/http"

	"github.com/legendspp/hotel-bookings/internal/domain"
	"github.com/legendspp/hotel-bookings/internal/http/response"
)

// GetAvailability handles GET /v1/availability?room_type&check_in&check_out
func (h *Handlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomType := q.Get("room_type")
	checkInRaw := q.Get("check_in")
	checkOutRaw := q.Get("check_out")

	if roomType == "" || checkInRaw == "" || checkOutRaw == "" {
		response.BadRequest(w, "room_type, check_in and check_out are required")
		return
	}

	checkIn, err := domain.ParseDate(checkInRaw)
	if err != nil {
		response.BadRequest(w, "check_in must be a date in "+domain.DateLayout+" format")
		return
	}
	checkOut, err := domain.ParseDate(checkOutRaw)
	if err != nil {
		response.BadRequest(w, "check_out must be a date in "+domain.DateLayout+" format")
		return
	}

	avail, err := h.bookingService.Search(r.Context(), roomType, checkIn, checkOut)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, avail)
}
