// Package availability answers which rooms of a type are free for a date
// range and claims one atomically at booking time. Conflict detection is
// always the overlap query over bookings; the room status column is a
// display cache and is never read here.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/legendspp/hotel-bookings/internal/domain"
	"github.com/legendspp/hotel-bookings/internal/repo/postgres"
	"github.com/legendspp/hotel-bookings/pkg/logger"
)

type Engine struct {
	rooms    postgres.RoomRepository
	bookings postgres.BookingRepository
}

func New(rooms postgres.RoomRepository, bookings postgres.BookingRepository) *Engine {
	return &Engine{rooms: rooms, bookings: bookings}
}

// Query computes the free rooms of a type for the half-open range
// [checkIn, checkOut). Read-only.
func (e *Engine) Query(ctx context.Context, roomType string, checkIn, checkOut time.Time) (*domain.Availability, error) {
	if !checkIn.Before(checkOut) {
		return nil, fmt.Errorf("%w: check_in must be before check_out", domain.ErrInvalidInput)
	}

	rooms, err := e.rooms.ListByType(ctx, roomType)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil, fmt.Errorf("%w: unknown room type %q", domain.ErrInvalidInput, roomType)
	}

	ids := make([]int64, 0, len(rooms))
	for _, room := range rooms {
		ids = append(ids, room.ID)
	}

	booked, err := e.bookings.BookedRoomIDs(ctx, ids, checkIn, checkOut)
	if err != nil {
		return nil, fmt.Errorf("query overlapping bookings: %w", err)
	}

	bookedSet := make(map[int64]struct{}, len(booked))
	for _, id := range booked {
		bookedSet[id] = struct{}{}
	}

	// Rooms arrive ordered by id, so the free list is already in
	// first-fit order.
	free := make([]domain.Room, 0, len(rooms))
	for _, room := range rooms {
		if _, taken := bookedSet[room.ID]; !taken {
			free = append(free, room)
		}
	}

	return &domain.Availability{
		RoomType:  roomType,
		Total:     len(rooms),
		Available: len(free),
		FreeRooms: free,
	}, nil
}

// Claim assigns a free room to the request and inserts the pending booking.
// Candidate selection here is only an optimization: the insert itself
// re-validates the overlap against the exclusion constraint, so a candidate
// that was taken between the scan and the insert simply falls through to
// the next one. When every candidate is taken the caller gets
// domain.ErrRoomUnavailable.
func (e *Engine) Claim(ctx context.Context, req *domain.BookingRequest) (*domain.Booking, error) {
	checkIn, checkOut := req.Dates()

	candidates, err := e.candidates(ctx, req, checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	for _, room := range candidates {
		b, err := e.bookings.Insert(ctx, room.ID, req)
		if err == domain.ErrRoomUnavailable {
			logger.DebugContext(ctx, "Claim lost race for room, trying next candidate",
				"room_id", room.ID, "check_in", domain.FormatDate(checkIn))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert booking: %w", err)
		}

		e.refreshStatusCache(ctx)
		return b, nil
	}

	return nil, domain.ErrRoomUnavailable
}

func (e *Engine) candidates(ctx context.Context, req *domain.BookingRequest, checkIn, checkOut time.Time) ([]domain.Room, error) {
	if req.RoomID != nil {
		room, err := e.rooms.GetByID(ctx, *req.RoomID)
		if err != nil {
			return nil, fmt.Errorf("get room: %w", err)
		}
		if room == nil {
			return nil, fmt.Errorf("%w: room %d", domain.ErrNotFound, *req.RoomID)
		}
		if req.RoomType != "" && !room.IsType(req.RoomType) {
			return nil, fmt.Errorf("%w: room %d is not a %s room", domain.ErrInvalidInput, room.ID, req.RoomType)
		}
		req.RoomType = room.RoomType
		return []domain.Room{*room}, nil
	}

	avail, err := e.Query(ctx, req.RoomType, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if avail.Available == 0 {
		return nil, domain.ErrRoomUnavailable
	}
	return avail.FreeRooms, nil
}

// refreshStatusCache updates the coarse per-room status column. Best effort:
// the cache going stale affects listing screens only, never correctness.
func (e *Engine) refreshStatusCache(ctx context.Context) {
	if err := e.rooms.RefreshStatuses(ctx, time.Now()); err != nil {
		logger.WarnContext(ctx, "Failed to refresh room status cache", "error", err)
	}
}
