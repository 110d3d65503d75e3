// Package notify turns booking events into guest and front-desk emails.
// Delivery is best effort: a failed send is logged and dropped, it never
// affects the booking that produced the event.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/legendspp/hotel-bookings/internal/mailer"
	"github.com/legendspp/hotel-bookings/pkg/config"
	"github.com/legendspp/hotel-bookings/pkg/events"
	"github.com/legendspp/hotel-bookings/pkg/logger"
)

type Notifier struct {
	bus        events.Subscriber
	mailer     mailer.Service
	adminEmail string
	fromName   string
}

func New(bus events.Subscriber, m mailer.Service, cfg config.EmailConfig) *Notifier {
	return &Notifier{
		bus:        bus,
		mailer:     m,
		adminEmail: cfg.AdminEmail,
		fromName:   cfg.FromName,
	}
}

// Start registers the queue subscriptions. The queue group keeps a single
// email per event when multiple instances run.
func (n *Notifier) Start() error {
	if err := n.bus.QueueSubscribe(events.BookingConfirmed, "notify", n.onConfirmed); err != nil {
		return fmt.Errorf("subscribe %s: %w", events.BookingConfirmed, err)
	}
	if err := n.bus.QueueSubscribe(events.BookingCanceled, "notify", n.onCanceled); err != nil {
		return fmt.Errorf("subscribe %s: %w", events.BookingCanceled, err)
	}
	return nil
}

func (n *Notifier) onConfirmed(msg *events.Message) {
	var ev events.BookingConfirmedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Failed to decode booking confirmed event", "error", err)
		return
	}

	subject := fmt.Sprintf("Booking Confirmation - %s", n.fromName)
	text := fmt.Sprintf(
		"Thank you for your booking, %s!\nRoom Type: %s\nCheck-in: %s\nCheck-out: %s\nYour room has been reserved and we look forward to hosting you.",
		ev.GuestName, ev.RoomType, ev.CheckIn, ev.CheckOut,
	)
	html := fmt.Sprintf(`
		<p>Thank you for your booking, <b>%s</b>!</p>
		<p>Room Type: <b>%s</b></p>
		<p>Your check-in date: <b>%s</b></p>
		<p>Your check-out date: <b>%s</b></p>
		<p>Your room has been reserved and we look forward to hosting you.</p>
		<p>Best regards,<br/>%s Team</p>
	`, ev.GuestName, ev.RoomType, ev.CheckIn, ev.CheckOut, n.fromName)

	if _, err := n.mailer.Send(ev.Email, ev.GuestName, subject, text, html); err != nil {
		logger.Error("Failed to send confirmation email", "error", err, "booking_id", ev.BookingID)
	}

	if n.adminEmail != "" {
		adminSubject := fmt.Sprintf("New booking #%d confirmed", ev.BookingID)
		adminText := fmt.Sprintf("Booking #%d: %s (%s), %s room, %s to %s, payment %s",
			ev.BookingID, ev.GuestName, ev.Email, ev.RoomType, ev.CheckIn, ev.CheckOut, ev.PaymentRef)
		if _, err := n.mailer.Send(n.adminEmail, "", adminSubject, adminText, ""); err != nil {
			logger.Error("Failed to send admin notification", "error", err, "booking_id", ev.BookingID)
		}
	}
}

func (n *Notifier) onCanceled(msg *events.Message) {
	var ev events.BookingCanceledEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Failed to decode booking canceled event", "error", err)
		return
	}

	subject := fmt.Sprintf("Booking Canceled - %s", n.fromName)
	text := fmt.Sprintf("Hi %s, your booking #%d has been canceled. If this is unexpected, please contact us.",
		ev.GuestName, ev.BookingID)
	html := fmt.Sprintf(`
		<p>Hi <b>%s</b>,</p>
		<p>Your booking #%d has been canceled.</p>
		<p>If this is unexpected, please contact us.</p>
	`, ev.GuestName, ev.BookingID)

	if _, err := n.mailer.Send(ev.Email, ev.GuestName, subject, text, html); err != nil {
		logger.Error("Failed to send cancellation email", "error", err, "booking_id", ev.BookingID)
	}
}
