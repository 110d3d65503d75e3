package payments

import (
	"context"

	"github.com/legendspp/hotel-bookings/internal/domain"
)

// Link is a hosted payment page for one booking. The guest completes payment
// off-site and is redirected back to the confirmation page.
type Link struct {
	URL         string
	SessionID   string
	AmountCents int64
	Currency    string
}

// Event is a provider-agnostic payment notification. Ref doubles as the
// idempotency token for finalization.
type Event struct {
	BookingID int64
	Ref       string
	Completed bool
}

type Gateway interface {
	// CreateLink creates a hosted checkout session for the booking, priced
	// from the room's rates, with the booking id carried in the session
	// metadata so the webhook can correlate it back.
	CreateLink(ctx context.Context, b *domain.Booking, room *domain.Room) (*Link, error)

	// ParseWebhook verifies the provider signature over the raw payload and
	// extracts the payment event. Unknown event types yield a nil Event.
	ParseWebhook(payload []byte, signature string) (*Event, error)

	// VerifySession looks the session up at the provider and reports its
	// payment state. Client-reported confirmations go through this, so a
	// fabricated session id never confirms a booking.
	VerifySession(ctx context.Context, sessionID string) (*Event, error)
}
