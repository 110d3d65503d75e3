package domain

import (
	"strings"
	"time"
)

type RoomStatus string

// Room status is a coarse convenience cache for listing screens. It is
// refreshed after booking mutations and by the sweep, and is never consulted
// when deciding availability; the overlap query over bookings is the source
// of truth.
const (
	RoomAvailable RoomStatus = "available"
	RoomBooked    RoomStatus = "booked"
)

type Room struct {
	ID               int64      `json:"id"`
	Number           string     `json:"number"`
	RoomType         string     `json:"room_type"`
	Status           RoomStatus `json:"status"`
	MaxOccupancy     int        `json:"max_occupancy"`
	NightlyRateCents int64      `json:"nightly_rate_cents"`
	WeekendRateCents int64      `json:"weekend_rate_cents"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsType reports whether the room belongs to the given type, case-insensitively.
func (r *Room) IsType(roomType string) bool {
	return strings.EqualFold(r.RoomType, roomType)
}

// QuoteCents prices a stay over [checkIn, checkOut) by walking the nights and
// charging the weekend rate for Saturday and Sunday nights.
func (r *Room) QuoteCents(checkIn, checkOut time.Time) int64 {
	regular, weekend := CountNights(checkIn, checkOut)
	return int64(regular)*r.NightlyRateCents + int64(weekend)*r.WeekendRateCents
}

// Availability is the result of an availability query: derived, never stored.
type Availability struct {
	RoomType  string `json:"room_type"`
	Total     int    `json:"total_rooms"`
	Available int    `json:"available_count"`
	FreeRooms []Room `json:"available_rooms"`
}
