package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCanceled  BookingStatus = "canceled"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingCanceled:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

// Blocks reports whether a booking in this status holds its room for its
// date range. Pending bookings block so that a guest mid-payment cannot lose
// the room; canceled bookings never block.
func (s BookingStatus) Blocks() bool {
	return s == BookingPending || s == BookingConfirmed
}

// DateLayout is the wire format for calendar dates. Check-in and check-out
// are naive local dates with no time component; comparing them as instants
// in another zone shifts nights across the weekend boundary and misprices
// the stay.
const DateLayout = "2006-01-02"

// Booking holds a room for the half-open range [CheckIn, CheckOut).
type Booking struct {
	ID              int64         `json:"id"`
	RoomID          int64         `json:"room_id"`
	RoomType        string        `json:"room_type"`
	Status          BookingStatus `json:"status"`
	GuestName       string        `json:"guest_name"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone"`
	CheckIn         time.Time     `json:"check_in"`
	CheckOut        time.Time     `json:"check_out"`
	Adults          int           `json:"adults"`
	Children        int           `json:"children"`
	SpecialRequests string        `json:"special_requests"`
	PaymentRef      *string       `json:"payment_ref,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Overlaps is the half-open interval test: a checkout on day D and a
// check-in on day D do not conflict.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}

// ParseDate parses a calendar date in DateLayout, UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// FormatDate renders a calendar date in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IsWeekendNight reports whether the night starting on the given date is
// charged at the weekend rate (Saturday and Sunday nights).
func IsWeekendNight(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// CountNights splits the nights of [checkIn, checkOut) into regular and
// weekend counts.
func CountNights(checkIn, checkOut time.Time) (regular, weekend int) {
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		if IsWeekendNight(d) {
			weekend++
		} else {
			regular++
		}
	}
	return regular, weekend
}

// Nights returns the total number of nights in [checkIn, checkOut).
func Nights(checkIn, checkOut time.Time) int {
	regular, weekend := CountNights(checkIn, checkOut)
	return regular + weekend
}

// BookingRequest is the validated input for creating a booking. RoomID is
// optional; when absent the availability engine picks the lowest-id free
// room of RoomType.
type BookingRequest struct {
	RoomID          *int64 `json:"room_id,omitempty"`
	RoomType        string `json:"room_type"`
	GuestName       string `json:"guest_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Adults          int    `json:"adults"`
	Children        int    `json:"children"`
	SpecialRequests string `json:"special_requests"`

	checkIn  time.Time
	checkOut time.Time
}

// Business rules
const (
	MaxStayNights = 30
	MaxAdults     = 6
	MaxChildren   = 6
)

// Normalize trims and lowercases contact fields in place.
func (r *BookingRequest) Normalize() {
	r.RoomType = strings.ToLower(strings.TrimSpace(r.RoomType))
	r.GuestName = strings.TrimSpace(r.GuestName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = normalizePhone(r.Phone)
	r.SpecialRequests = strings.TrimSpace(r.SpecialRequests)
}

// Validate checks the request and caches the parsed dates. It returns
// errors wrapping ErrInvalidInput.
func (r *BookingRequest) Validate() error {
	r.Normalize()

	if r.GuestName == "" {
		return fmt.Errorf("%w: guest_name is required", ErrInvalidInput)
	}
	if !isValidEmail(r.Email) {
		return fmt.Errorf("%w: provide a valid email", ErrInvalidInput)
	}
	if r.RoomID == nil && r.RoomType == "" {
		return fmt.Errorf("%w: room_id or room_type is required", ErrInvalidInput)
	}

	in, err := ParseDate(r.CheckIn)
	if err != nil {
		return fmt.Errorf("%w: check_in must be a date in %s format", ErrInvalidInput, DateLayout)
	}
	out, err := ParseDate(r.CheckOut)
	if err != nil {
		return fmt.Errorf("%w: check_out must be a date in %s format", ErrInvalidInput, DateLayout)
	}
	if !in.Before(out) {
		return fmt.Errorf("%w: check_in must be before check_out", ErrInvalidInput)
	}
	if Nights(in, out) > MaxStayNights {
		return fmt.Errorf("%w: stay cannot exceed %d nights", ErrInvalidInput, MaxStayNights)
	}

	if r.Adults < 1 || r.Adults > MaxAdults {
		return fmt.Errorf("%w: adults must be between 1 and %d", ErrInvalidInput, MaxAdults)
	}
	if r.Children < 0 || r.Children > MaxChildren {
		return fmt.Errorf("%w: children must be between 0 and %d", ErrInvalidInput, MaxChildren)
	}

	r.checkIn = in
	r.checkOut = out
	return nil
}

// Dates returns the parsed check-in and check-out. Validate must have been
// called first.
func (r *BookingRequest) Dates() (checkIn, checkOut time.Time) {
	return r.checkIn, r.checkOut
}

func normalizePhone(phone string) string {
	cleaned := strings.TrimSpace(phone)
	if cleaned == "" {
		return ""
	}

	var result strings.Builder
	for i, c := range cleaned {
		if i == 0 && c == '+' {
			result.WriteRune(c)
		} else if unicode.IsDigit(c) {
			result.WriteRune(c)
		}
	}
	return result.String()
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	local, domain := parts[0], parts[1]
	return len(local) > 0 && len(domain) > 2 && strings.Contains(domain, ".")
}
