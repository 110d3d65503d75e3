// Package sweep is the periodic housekeeping pass: it cancels pending
// bookings the guest abandoned, removes rows whose check-out has passed,
// and refreshes the room status cache.
package sweep

import (
	"context"
	"time"

	"github.com/legendspp/hotel-bookings/internal/repo/postgres"
	"github.com/legendspp/hotel-bookings/pkg/events"
	"github.com/legendspp/hotel-bookings/pkg/logger"
)

type Sweeper struct {
	bookings postgres.BookingRepository
	rooms    postgres.RoomRepository
	bus      events.Publisher
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

func New(bookings postgres.BookingRepository, rooms postgres.RoomRepository, bus events.Publisher, interval, grace time.Duration) *Sweeper {
	return &Sweeper{
		bookings: bookings,
		rooms:    rooms,
		bus:      bus,
		interval: interval,
		grace:    grace,
		now:      time.Now,
	}
}

// Run blocks until ctx is canceled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs a single housekeeping pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()

	expired, err := s.bookings.ExpireStalePending(ctx, now.Add(-s.grace))
	if err != nil {
		logger.ErrorContext(ctx, "Sweep: failed to expire stale pending bookings", "error", err)
	}
	for _, id := range expired {
		if err := s.bus.Publish(ctx, events.BookingExpired, events.BookingExpiredEvent{
			BookingID: id,
			ExpiredAt: now,
		}); err != nil {
			logger.ErrorContext(ctx, "Sweep: failed to publish expired event", "error", err, "booking_id", id)
		}
	}

	removed, err := s.bookings.DeletePastCheckout(ctx, now)
	if err != nil {
		logger.ErrorContext(ctx, "Sweep: failed to delete past-checkout bookings", "error", err)
	}

	if err := s.rooms.RefreshStatuses(ctx, now); err != nil {
		logger.ErrorContext(ctx, "Sweep: failed to refresh room statuses", "error", err)
	}

	if len(expired) > 0 || removed > 0 {
		logger.InfoContext(ctx, "Sweep completed",
			"expired_pending", len(expired),
			"removed_past_checkout", removed,
		)
	}
}
