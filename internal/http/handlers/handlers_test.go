package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/legendspp/hotel-bookings/internal/domain"
	"github.com/legendspp/hotel-bookings/internal/payments"
	"github.com/legendspp/hotel-bookings/internal/service"
	"github.com/legendspp/hotel-bookings/pkg/auth"
	"github.com/legendspp/hotel-bookings/pkg/config"
)

type mockBookingService struct {
	roomsFn    func(ctx context.Context) ([]domain.Room, error)
	searchFn   func(ctx context.Context, roomType string, checkIn, checkOut time.Time) (*domain.Availability, error)
	createFn   func(ctx context.Context, req *domain.BookingRequest) (*service.CreateResult, error)
	getFn      func(ctx context.Context, id int64) (*domain.Booking, error)
	listFn     func(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error)
	finalizeFn func(ctx context.Context, bookingID int64, paymentRef string) (*domain.Booking, error)
	cancelFn   func(ctx context.Context, id int64, reason string) (*domain.Booking, error)
}

func (m *mockBookingService) Rooms(ctx context.Context) ([]domain.Room, error) {
	return m.roomsFn(ctx)
}

func (m *mockBookingService) Search(ctx context.Context, roomType string, checkIn, checkOut time.Time) (*domain.Availability, error) {
	return m.searchFn(ctx, roomType, checkIn, checkOut)
}

func (m *mockBookingService) Create(ctx context.Context, req *domain.BookingRequest) (*service.CreateResult, error) {
	return m.createFn(ctx, req)
}

func (m *mockBookingService) Get(ctx context.Context, id int64) (*domain.Booking, error) {
	return m.getFn(ctx, id)
}

func (m *mockBookingService) List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	return m.listFn(ctx, limit, offset, status)
}

func (m *mockBookingService) Finalize(ctx context.Context, bookingID int64, paymentRef string) (*domain.Booking, error) {
	return m.finalizeFn(ctx, bookingID, paymentRef)
}

func (m *mockBookingService) Cancel(ctx context.Context, id int64, reason string) (*domain.Booking, error) {
	return m.cancelFn(ctx, id, reason)
}

type mockGateway struct {
	createLinkFn    func(ctx context.Context, b *domain.Booking, room *domain.Room) (*payments.Link, error)
	parseWebhookFn  func(payload []byte, signature string) (*payments.Event, error)
	verifySessionFn func(ctx context.Context, sessionID string) (*payments.Event, error)
}

func (m *mockGateway) CreateLink(ctx context.Context, b *domain.Booking, room *domain.Room) (*payments.Link, error) {
	return m.createLinkFn(ctx, b, room)
}

func (m *mockGateway) ParseWebhook(payload []byte, signature string) (*payments.Event, error) {
	return m.parseWebhookFn(payload, signature)
}

func (m *mockGateway) VerifySession(ctx context.Context, sessionID string) (*payments.Event, error) {
	return m.verifySessionFn(ctx, sessionID)
}

const testJWTSecret = "test-secret-key-for-handlers"

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:     testJWTSecret,
			StaffTokenTTL: time.Hour,
			AdminEmail:    "desk@example.com",
		},
	}
}

func newTestServer(t *testing.T, svc service.BookingService, gw payments.Gateway) *httptest.Server {
	t.Helper()

	h := New(svc, gw, testConfig())

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Get("/rooms", h.ListRooms)
		r.Get("/availability", h.GetAvailability)
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.CreateBooking)
			r.Get("/{id}", h.GetBooking)
		})
		r.Route("/payments", func(r chi.Router) {
			r.Post("/webhook", h.PaymentWebhook)
			r.Post("/confirm", h.ConfirmPayment)
		})
		r.Post("/auth/login", h.Login)
		r.Route("/admin/bookings", func(r chi.Router) {
			r.Use(h.RequireStaff)
			r.Get("/", h.ListBookings)
			r.Patch("/{id}", h.UpdateBooking)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}, headers map[string]string) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func get(t *testing.T, url string, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func sampleBooking(id int64, status domain.BookingStatus) *domain.Booking {
	checkIn, _ := domain.ParseDate("2025-06-01")
	checkOut, _ := domain.ParseDate("2025-06-03")
	return &domain.Booking{
		ID:        id,
		RoomID:    1,
		RoomType:  "king",
		Status:    status,
		GuestName: "Jane Guest",
		Email:     "jane@example.com",
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Adults:    2,
	}
}

func TestListRooms(t *testing.T) {
	svc := &mockBookingService{
		roomsFn: func(ctx context.Context) ([]domain.Room, error) {
			return []domain.Room{
				{ID: 1, Number: "K101", RoomType: "king"},
				{ID: 3, Number: "Q201", RoomType: "queen"},
			}, nil
		},
	}
	srv := newTestServer(t, svc, &mockGateway{})

	resp := get(t, srv.URL+"/v1/rooms", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var rooms []domain.Room
	decodeBody(t, resp, &rooms)
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
}

func TestGetAvailability(t *testing.T) {
	svc := &mockBookingService{
		searchFn: func(ctx context.Context, roomType string, checkIn, checkOut time.Time) (*domain.Availability, error) {
			if roomType != "king" {
				t.Errorf("unexpected room type %q", roomType)
			}
			return &domain.Availability{RoomType: roomType, Total: 2, Available: 1}, nil
		},
	}
	srv := newTestServer(t, svc, &mockGateway{})

	resp := get(t, srv.URL+"/v1/availability?room_type=king&check_in=2025-06-01&check_out=2025-06-03", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var avail domain.Availability
	decodeBody(t, resp, &avail)
	if avail.Available != 1 {
		t.Fatalf("expected 1 available, got %d", avail.Available)
	}
}

func TestGetAvailability_MissingParams(t *testing.T) {
	srv := newTestServer(t, &mockBookingService{}, &mockGateway{})

	resp := get(t, srv.URL+"/v1/availability?room_type=king", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetAvailability_BadDate(t *testing.T) {
	srv := newTestServer(t, &mockBookingService{}, &mockGateway{})

	resp := get(t, srv.URL+"/v1/availability?room_type=king&check_in=junk&check_out=2025-06-03", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateBooking(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, req *domain.BookingRequest) (*service.CreateResult, error) {
			return &service.CreateResult{
				Booking:     sampleBooking(7, domain.BookingPending),
				PaymentURL:  "https://checkout.example.com/s/abc",
				AmountCents: 40000,
				Currency:    "usd",
			}, nil
		},
	}
	srv := newTestServer(t, svc, &mockGateway{})

	resp := postJSON(t, srv.URL+"/v1/bookings", map[string]interface{}{
		"room_type":  "king",
		"guest_name": "Jane Guest",
		"email":      "jane@example.com",
		"check_in":   "2025-06-01",
		"check_out":  "2025-06-03",
		"adults":     2,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var result service.CreateResult
	decodeBody(t, resp, &result)
	if result.PaymentURL == "" {
		t.Fatal("expected a payment URL")
	}
	if result.Booking == nil || result.Booking.Status != domain.BookingPending {
		t.Fatalf("expected a pending booking, got %+v", result.Booking)
	}
}

func TestCreateBooking_Conflict(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, req *domain.BookingRequest) (*service.CreateResult, error) {
			return nil, domain.ErrRoomUnavailable
		},
	}
	srv := newTestServer(t, svc, &mockGateway{})

	resp := postJSON(t, srv.URL+"/v1/bookings", map[string]interface{}{
		"room_type":  "king",
		"guest_name": "Jane Guest",
		"email":      "jane@example.com",
		"check_in":   "2025-06-01",
		"check_out":  "2025-06-03",
		"adults":     2,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCreateBooking_InvalidInput(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, req *domain.BookingRequest) (*service.CreateResult, error) {
			return nil, fmt.Errorf("%w: guest_name is required", domain.ErrInvalidInput)
		},
	}
	srv := newTestServer(t, svc, &mockGateway{})

	resp := postJSON(t, srv.URL+"/v1/bookings", map[string]interface{}{
		"room_type": "king",
		"check_in":  "2025-06-01",
		"check_out": "2025-06-03",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateBooking_UnknownField(t *testing.T) {
	srv := newTestServer(t, &mockBookingService{}, &mockGateway{})

	resp := postJSON(t, srv.URL+"/v1/bookings", map[string]interface{}{
		"room_type": "king",
		"surprise":  true,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetBooking_NotFound(t *testing.T) {
	svc := &mockBookingService{
		getFn: func(ctx context.Context, id int64) (*domain.Booking, error) {
			return nil, nil
		},
	}
	srv := newTestServer(t, svc, &mockGateway{})

	resp := get(t, srv.URL+"/v1/bookings/42", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPaymentWebhook_Completed(t *testing.T) {
	finalized := 0
	svc := &mockBookingService{
		finalizeFn: func(ctx context.Context, bookingID int64, paymentRef string) (*domain.Booking, error) {
			finalized++
			if bookingID != 7 || paymentRef != "cs_123" {
				t.Errorf("unexpected finalize args: %d %q", bookingID, paymentRef)
			}
			return sampleBooking(7, domain.BookingConfirmed), nil
		},
	}
	gw := &mockGateway{
		parseWebhookFn: func(payload []byte, signature string) (*payments.Event, error) {
			return &payments.Event{BookingID: 7, Ref: "cs_123", Completed: true}, nil
		},
	}
	srv := newTestServer(t, svc, gw)

	resp := postJSON(t, srv.URL+"/v1/payments/webhook", map[string]string{"type": "checkout.session.completed"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if finalized != 1 {
		t.Fatalf("expected one finalize call, got %d", finalized)
	}
}

func TestPaymentWebhook_IgnoredEvent(t *testing.T) {
	gw := &mockGateway{
		parseWebhookFn: func(payload []byte, signature string) (*payments.Event, error) {
			return nil, nil
		},
	}
	srv := newTestServer(t, &mockBookingService{}, gw)

	resp := postJSON(t, srv.URL+"/v1/payments/webhook", map[string]string{"type": "invoice.paid"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for ignored event, got %d", resp.StatusCode)
	}
}

func TestPaymentWebhook_BadSignature(t *testing.T) {
	gw := &mockGateway{
		parseWebhookFn: func(payload []byte, signature string) (*payments.Event, error) {
			return nil, fmt.Errorf("signature verification failed")
		},
	}
	srv := newTestServer(t, &mockBookingService{}, gw)

	resp := postJSON(t, srv.URL+"/v1/payments/webhook", map[string]string{}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestConfirmPayment(t *testing.T) {
	svc := &mockBookingService{
		finalizeFn: func(ctx context.Context, bookingID int64, paymentRef string) (*domain.Booking, error) {
			return sampleBooking(bookingID, domain.BookingConfirmed), nil
		},
	}
	gw := &mockGateway{
		verifySessionFn: func(ctx context.Context, sessionID string) (*payments.Event, error) {
			if sessionID != "cs_123" {
				t.Errorf("unexpected session id %q", sessionID)
			}
			return &payments.Event{BookingID: 7, Ref: "cs_123", Completed: true}, nil
		},
	}
	srv := newTestServer(t, svc, gw)

	resp := postJSON(t, srv.URL+"/v1/payments/confirm", map[string]interface{}{
		"booking_id":  7,
		"payment_ref": "cs_123",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var booking domain.Booking
	decodeBody(t, resp, &booking)
	if booking.Status != domain.BookingConfirmed {
		t.Fatalf("expected confirmed booking, got %s", booking.Status)
	}
}

func TestConfirmPayment_UnpaidSession(t *testing.T) {
	finalized := 0
	svc := &mockBookingService{
		finalizeFn: func(ctx context.Context, bookingID int64, paymentRef string) (*domain.Booking, error) {
			finalized++
			return sampleBooking(bookingID, domain.BookingConfirmed), nil
		},
	}
	gw := &mockGateway{
		verifySessionFn: func(ctx context.Context, sessionID string) (*payments.Event, error) {
			return &payments.Event{BookingID: 7, Ref: "cs_123", Completed: false}, nil
		},
	}
	srv := newTestServer(t, svc, gw)

	resp := postJSON(t, srv.URL+"/v1/payments/confirm", map[string]interface{}{
		"booking_id":  7,
		"payment_ref": "cs_123",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for an unpaid session, got %d", resp.StatusCode)
	}
	if finalized != 0 {
		t.Fatalf("an unpaid session must not finalize, got %d calls", finalized)
	}
}

func TestConfirmPayment_ForeignSession(t *testing.T) {
	gw := &mockGateway{
		verifySessionFn: func(ctx context.Context, sessionID string) (*payments.Event, error) {
			return &payments.Event{BookingID: 99, Ref: "cs_123", Completed: true}, nil
		},
	}
	srv := newTestServer(t, &mockBookingService{}, gw)

	resp := postJSON(t, srv.URL+"/v1/payments/confirm", map[string]interface{}{
		"booking_id":  7,
		"payment_ref": "cs_123",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a session bound to another booking, got %d", resp.StatusCode)
	}
}

func TestConfirmPayment_UnknownSession(t *testing.T) {
	gw := &mockGateway{
		verifySessionFn: func(ctx context.Context, sessionID string) (*payments.Event, error) {
			return nil, fmt.Errorf("no such session")
		},
	}
	srv := newTestServer(t, &mockBookingService{}, gw)

	resp := postJSON(t, srv.URL+"/v1/payments/confirm", map[string]interface{}{
		"booking_id":  7,
		"payment_ref": "cs_bogus",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown session, got %d", resp.StatusCode)
	}
}

func TestConfirmPayment_MissingFields(t *testing.T) {
	srv := newTestServer(t, &mockBookingService{}, &mockGateway{})

	resp := postJSON(t, srv.URL+"/v1/payments/confirm", map[string]interface{}{
		"booking_id": 7,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestConfirmPayment_CanceledBooking(t *testing.T) {
	svc := &mockBookingService{
		finalizeFn: func(ctx context.Context, bookingID int64, paymentRef string) (*domain.Booking, error) {
			return nil, domain.ErrBookingCanceled
		},
	}
	gw := &mockGateway{
		verifySessionFn: func(ctx context.Context, sessionID string) (*payments.Event, error) {
			return &payments.Event{BookingID: 7, Ref: "cs_123", Completed: true}, nil
		},
	}
	srv := newTestServer(t, svc, gw)

	resp := postJSON(t, srv.URL+"/v1/payments/confirm", map[string]interface{}{
		"booking_id":  7,
		"payment_ref": "cs_123",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func staffHeaders(t *testing.T) map[string]string {
	t.Helper()
	token, err := auth.NewStaffToken("desk@example.com", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestListBookings_RequiresAuth(t *testing.T) {
	srv := newTestServer(t, &mockBookingService{}, &mockGateway{})

	resp := get(t, srv.URL+"/v1/admin/bookings", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp = get(t, srv.URL+"/v1/admin/bookings", map[string]string{"Authorization": "Bearer garbage"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}
}

func TestListBookings(t *testing.T) {
	svc := &mockBookingService{
		listFn: func(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
			if limit != 20 || offset != 0 {
				t.Errorf("unexpected pagination: limit=%d offset=%d", limit, offset)
			}
			if status == nil || *status != domain.BookingPending {
				t.Errorf("expected pending status filter, got %v", status)
			}
			return []domain.Booking{*sampleBooking(1, domain.BookingPending)}, nil
		},
	}
	srv := newTestServer(t, svc, &mockGateway{})

	resp := get(t, srv.URL+"/v1/admin/bookings?status=pending", staffHeaders(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var bookings []domain.Booking
	decodeBody(t, resp, &bookings)
	if len(bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(bookings))
	}
}

func TestListBookings_InvalidStatus(t *testing.T) {
	srv := newTestServer(t, &mockBookingService{}, &mockGateway{})

	resp := get(t, srv.URL+"/v1/admin/bookings?status=archived", staffHeaders(t))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUpdateBooking_Cancel(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, id int64, reason string) (*domain.Booking, error) {
			if id != 7 || reason != "staff_canceled" {
				t.Errorf("unexpected cancel args: %d %q", id, reason)
			}
			return sampleBooking(7, domain.BookingCanceled), nil
		},
	}
	srv := newTestServer(t, svc, &mockGateway{})

	data, _ := json.Marshal(map[string]string{"status": "canceled"})
	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/v1/admin/bookings/7", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range staffHeaders(t) {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var booking domain.Booking
	decodeBody(t, resp, &booking)
	if booking.Status != domain.BookingCanceled {
		t.Fatalf("expected canceled booking, got %s", booking.Status)
	}
}

func TestUpdateBooking_UnsupportedStatus(t *testing.T) {
	srv := newTestServer(t, &mockBookingService{}, &mockGateway{})

	data, _ := json.Marshal(map[string]string{"status": "confirmed"})
	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/v1/admin/bookings/7", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for k, v := range staffHeaders(t) {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLogin_UnknownAccount(t *testing.T) {
	srv := newTestServer(t, &mockBookingService{}, &mockGateway{})

	resp := postJSON(t, srv.URL+"/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "pass",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
