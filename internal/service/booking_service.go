package service

import (
	"context"
	"fmt"
	"time"

	"github.com/legendspp/hotel-bookings/internal/availability"
	"github.com/legendspp/hotel-bookings/internal/domain"
	"github.com/legendspp/hotel-bookings/internal/payments"
	"github.com/legendspp/hotel-bookings/internal/repo/postgres"
	"github.com/legendspp/hotel-bookings/pkg/events"
	"github.com/legendspp/hotel-bookings/pkg/logger"
)

// CreateResult is a freshly claimed pending booking plus the payment link
// the guest must complete to confirm it.
type CreateResult struct {
	Booking     *domain.Booking `json:"booking"`
	PaymentURL  string          `json:"payment_url"`
	AmountCents int64           `json:"amount_cents"`
	Currency    string          `json:"currency"`
}

type BookingService interface {
	Rooms(ctx context.Context) ([]domain.Room, error)
	Search(ctx context.Context, roomType string, checkIn, checkOut time.Time) (*domain.Availability, error)
	Create(ctx context.Context, req *domain.BookingRequest) (*CreateResult, error)
	Get(ctx context.Context, id int64) (*domain.Booking, error)
	List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error)
	// Finalize is the single idempotent confirmation path shared by the
	// payment webhook and the client-reported confirmation call.
	Finalize(ctx context.Context, bookingID int64, paymentRef string) (*domain.Booking, error)
	Cancel(ctx context.Context, id int64, reason string) (*domain.Booking, error)
}

type bookingService struct {
	engine   *availability.Engine
	bookings postgres.BookingRepository
	rooms    postgres.RoomRepository
	gateway  payments.Gateway
	bus      events.Publisher
}

func NewBookingService(
	engine *availability.Engine,
	bookings postgres.BookingRepository,
	rooms postgres.RoomRepository,
	gateway payments.Gateway,
	bus events.Publisher,
) BookingService {
	return &bookingService{
		engine:   engine,
		bookings: bookings,
		rooms:    rooms,
		gateway:  gateway,
		bus:      bus,
	}
}

func (s *bookingService) Rooms(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.List(ctx)
}

func (s *bookingService) Search(ctx context.Context, roomType string, checkIn, checkOut time.Time) (*domain.Availability, error) {
	return s.engine.Query(ctx, roomType, checkIn, checkOut)
}

func (s *bookingService) Create(ctx context.Context, req *domain.BookingRequest) (*CreateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	booking, err := s.engine.Claim(ctx, req)
	if err != nil {
		return nil, err
	}

	room, err := s.rooms.GetByID(ctx, booking.RoomID)
	if err != nil || room == nil {
		return nil, fmt.Errorf("load room %d: %w", booking.RoomID, err)
	}

	link, err := s.gateway.CreateLink(ctx, booking, room)
	if err != nil {
		// Without a payment link the booking can never be finalized, so
		// release the claim rather than hold the room for the grace period.
		if _, cancelErr := s.bookings.Cancel(ctx, booking.ID); cancelErr != nil {
			logger.ErrorContext(ctx, "Failed to release claim after payment link error",
				"error", cancelErr, "booking_id", booking.ID)
		}
		return nil, fmt.Errorf("create payment link: %w", err)
	}

	s.publish(ctx, events.BookingCreated, events.BookingCreatedEvent{
		BookingID: booking.ID,
		RoomID:    booking.RoomID,
		RoomType:  booking.RoomType,
		GuestName: booking.GuestName,
		Email:     booking.Email,
		CheckIn:   domain.FormatDate(booking.CheckIn),
		CheckOut:  domain.FormatDate(booking.CheckOut),
		CreatedAt: booking.CreatedAt,
	})
	s.publish(ctx, events.PaymentLinkCreated, events.PaymentLinkCreatedEvent{
		BookingID:   booking.ID,
		AmountCents: link.AmountCents,
		Currency:    link.Currency,
	})

	return &CreateResult{
		Booking:     booking,
		PaymentURL:  link.URL,
		AmountCents: link.AmountCents,
		Currency:    link.Currency,
	}, nil
}

func (s *bookingService) Get(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *bookingService) List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	return s.bookings.List(ctx, limit, offset, status)
}

func (s *bookingService) Finalize(ctx context.Context, bookingID int64, paymentRef string) (*domain.Booking, error) {
	booking, transitioned, err := s.bookings.Finalize(ctx, bookingID, paymentRef)
	if err != nil {
		return nil, err
	}

	// Only the call that performed the transition notifies; replays of the
	// same confirmation stay silent.
	if transitioned {
		s.publish(ctx, events.PaymentCompleted, events.PaymentCompletedEvent{
			BookingID:   booking.ID,
			PaymentRef:  paymentRef,
			CompletedAt: booking.UpdatedAt,
		})
		s.publish(ctx, events.BookingConfirmed, events.BookingConfirmedEvent{
			BookingID:   booking.ID,
			RoomID:      booking.RoomID,
			RoomType:    booking.RoomType,
			GuestName:   booking.GuestName,
			Email:       booking.Email,
			CheckIn:     domain.FormatDate(booking.CheckIn),
			CheckOut:    domain.FormatDate(booking.CheckOut),
			PaymentRef:  paymentRef,
			ConfirmedAt: booking.UpdatedAt,
		})
		s.refreshRoomStatuses(ctx)
	}

	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, id int64, reason string) (*domain.Booking, error) {
	booking, err := s.bookings.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, nil
	}

	s.publish(ctx, events.BookingCanceled, events.BookingCanceledEvent{
		BookingID:  booking.ID,
		RoomID:     booking.RoomID,
		GuestName:  booking.GuestName,
		Email:      booking.Email,
		Reason:     reason,
		CanceledAt: booking.UpdatedAt,
	})
	s.refreshRoomStatuses(ctx)

	return booking, nil
}

func (s *bookingService) publish(ctx context.Context, subject string, payload any) {
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}

func (s *bookingService) refreshRoomStatuses(ctx context.Context) {
	if err := s.rooms.RefreshStatuses(ctx, time.Now()); err != nil {
		logger.WarnContext(ctx, "Failed to refresh room status cache", "error", err)
	}
}
