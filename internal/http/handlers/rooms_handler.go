package handlers

import (
	"net/http"

	"github.com/legendspp/hotel-bookings/internal/domain"
)

// ListRooms handles GET /v1/rooms: the room catalog for browsing screens.
// The status column here is the display cache; date-specific availability
// comes from GET /v1/availability.
func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.bookingService.Rooms(r.Context())
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}

	writeJSON(w, http.StatusOK, rooms)
}
