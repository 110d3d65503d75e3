package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/legendspp/hotel-bookings/pkg/logger"
)

// Publisher is the write side of the bus. Closing the underlying
// connection is the owner's job, so it is not part of this interface.
type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Subjects
const (
	BookingCreated   = "booking.created"
	BookingConfirmed = "booking.confirmed"
	BookingCanceled  = "booking.canceled"
	BookingExpired   = "booking.expired"

	PaymentLinkCreated = "payment.link.created"
	PaymentCompleted   = "payment.completed"
)

// Event payloads
type BookingCreatedEvent struct {
	BookingID int64     `json:"booking_id"`
	RoomID    int64     `json:"room_id"`
	RoomType  string    `json:"room_type"`
	GuestName string    `json:"guest_name"`
	Email     string    `json:"email"`
	CheckIn   string    `json:"check_in"`
	CheckOut  string    `json:"check_out"`
	CreatedAt time.Time `json:"created_at"`
}

type BookingConfirmedEvent struct {
	BookingID   int64     `json:"booking_id"`
	RoomID      int64     `json:"room_id"`
	RoomType    string    `json:"room_type"`
	GuestName   string    `json:"guest_name"`
	Email       string    `json:"email"`
	CheckIn     string    `json:"check_in"`
	CheckOut    string    `json:"check_out"`
	PaymentRef  string    `json:"payment_ref"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

type BookingCanceledEvent struct {
	BookingID  int64     `json:"booking_id"`
	RoomID     int64     `json:"room_id"`
	GuestName  string    `json:"guest_name"`
	Email      string    `json:"email"`
	Reason     string    `json:"reason"`
	CanceledAt time.Time `json:"canceled_at"`
}

type BookingExpiredEvent struct {
	BookingID int64     `json:"booking_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

type PaymentLinkCreatedEvent struct {
	BookingID   int64  `json:"booking_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type PaymentCompletedEvent struct {
	BookingID   int64     `json:"booking_id"`
	PaymentRef  string    `json:"payment_ref"`
	CompletedAt time.Time `json:"completed_at"`
}
