package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/legendspp/hotel-bookings/internal/domain"
	"github.com/legendspp/hotel-bookings/pkg/config"
)

type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
	successURL    string
}

func NewStripeGateway(cfg config.PaymentConfig, successURL string) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeGateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		currency:      cfg.Currency,
		successURL:    successURL,
	}
}

func (g *StripeGateway) CreateLink(ctx context.Context, b *domain.Booking, room *domain.Room) (*Link, error) {
	regular, weekend := domain.CountNights(b.CheckIn, b.CheckOut)

	var lineItems []*stripe.CheckoutSessionLineItemParams
	if regular > 0 {
		lineItems = append(lineItems, g.lineItem(room, "nightly rate", room.NightlyRateCents, regular))
	}
	if weekend > 0 {
		lineItems = append(lineItems, g.lineItem(room, "weekend rate", room.WeekendRateCents, weekend))
	}
	if len(lineItems) == 0 {
		return nil, fmt.Errorf("%w: no nights selected", domain.ErrInvalidInput)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(g.successURL),
		CustomerEmail: stripe.String(b.Email),
		LineItems:     lineItems,
	}
	params.Context = ctx
	params.AddMetadata("booking_id", strconv.FormatInt(b.ID, 10))
	params.SetIdempotencyKey(uuid.NewString())

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &Link{
		URL:         sess.URL,
		SessionID:   sess.ID,
		AmountCents: room.QuoteCents(b.CheckIn, b.CheckOut),
		Currency:    g.currency,
	}, nil
}

func (g *StripeGateway) lineItem(room *domain.Room, label string, unitCents int64, quantity int) *stripe.CheckoutSessionLineItemParams {
	name := fmt.Sprintf("%s room %s, %s", room.RoomType, room.Number, label)
	return &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(int64(quantity)),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(g.currency),
			UnitAmount: stripe.Int64(unitCents),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
	}
}

func (g *StripeGateway) VerifySession(ctx context.Context, sessionID string) (*Event, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}

	bookingID, err := strconv.ParseInt(sess.Metadata["booking_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("checkout session %s has no booking_id metadata", sess.ID)
	}

	return &Event{
		BookingID: bookingID,
		Ref:       sess.ID,
		Completed: sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	bookingID, err := strconv.ParseInt(sess.Metadata["booking_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("checkout session %s has no booking_id metadata", sess.ID)
	}

	return &Event{
		BookingID: bookingID,
		Ref:       sess.ID,
		Completed: sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}, nil
}
