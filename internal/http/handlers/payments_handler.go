package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/legendspp/hotel-bookings/internal/http/response"
	"github.com/legendspp/hotel-bookings/pkg/logger"
)

// PaymentWebhook handles POST /v1/payments/webhook: the provider's
// server-to-server confirmation. Finalization is idempotent, so replayed
// deliveries are safe.
func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		response.BadRequest(w, "Failed to read payload")
		return
	}

	event, err := h.gateway.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		logger.WarnContext(r.Context(), "Rejected payment webhook", "error", err)
		response.BadRequest(w, "Invalid webhook")
		return
	}
	if event == nil || !event.Completed {
		// Event types we don't act on still get a 200 so the provider
		// stops retrying.
		w.WriteHeader(http.StatusOK)
		return
	}

	if _, err := h.bookingService.Finalize(r.Context(), event.BookingID, event.Ref); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type confirmRequest struct {
	BookingID  int64  `json:"booking_id"`
	PaymentRef string `json:"payment_ref"`
}

// ConfirmPayment handles POST /v1/payments/confirm: the client-reported
// confirmation after the checkout redirect. The session is looked up at the
// provider before finalizing, so the caller only names it; the payment state
// and the booking it belongs to come from the provider's record.
func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if req.BookingID == 0 || req.PaymentRef == "" {
		response.BadRequest(w, "booking_id and payment_ref are required")
		return
	}

	event, err := h.gateway.VerifySession(r.Context(), req.PaymentRef)
	if err != nil {
		logger.WarnContext(r.Context(), "Failed to verify payment session",
			"error", err, "booking_id", req.BookingID)
		response.BadRequest(w, "Unable to verify payment")
		return
	}
	if event.BookingID != req.BookingID {
		response.BadRequest(w, "payment_ref does not belong to this booking")
		return
	}
	if !event.Completed {
		response.Conflict(w, "payment not completed")
		return
	}

	booking, err := h.bookingService.Finalize(r.Context(), event.BookingID, event.Ref)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}
