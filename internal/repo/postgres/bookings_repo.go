package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legendspp/hotel-bookings/internal/domain"
)

type BookingRepository interface {
	// Insert claims roomID for the request's date range. The bookings table
	// carries an exclusion constraint over (room_id, daterange) for blocking
	// statuses, so the overlap check and the insert are a single atomic
	// step; a lost race surfaces as domain.ErrRoomUnavailable.
	Insert(ctx context.Context, roomID int64, req *domain.BookingRequest) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error)
	// BookedRoomIDs returns the distinct ids among roomIDs that have a
	// blocking booking overlapping [checkIn, checkOut).
	BookedRoomIDs(ctx context.Context, roomIDs []int64, checkIn, checkOut time.Time) ([]int64, error)
	// Finalize transitions a pending booking to confirmed, recording the
	// payment reference. It is idempotent: repeating it with the same
	// reference returns the booking with transitioned=false.
	Finalize(ctx context.Context, id int64, paymentRef string) (b *domain.Booking, transitioned bool, err error)
	Cancel(ctx context.Context, id int64) (*domain.Booking, error)
	// ExpireStalePending cancels pending bookings created before the cutoff
	// and returns their ids.
	ExpireStalePending(ctx context.Context, cutoff time.Time) ([]int64, error)
	// DeletePastCheckout removes bookings whose check-out date is on or
	// before the given date.
	DeletePastCheckout(ctx context.Context, today time.Time) (int64, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, room_id, room_type, status,
guest_name, email, phone,
check_in_date, check_out_date,
adults, children, special_requests,
payment_ref, created_at, updated_at`

// exclusionViolation is the Postgres error code raised when an insert
// collides with the bookings_no_overlap constraint.
const exclusionViolation = "23P01"

func (r *bookingRepository) Insert(ctx context.Context, roomID int64, req *domain.BookingRequest) (*domain.Booking, error) {
	const q = `INSERT INTO bookings (
		room_id, room_type, status,
		guest_name, email, phone,
		check_in_date, check_out_date,
		adults, children, special_requests
	) VALUES ($1,$2,'pending',$3,$4,$5,$6,$7,$8,$9,$10)
	RETURNING ` + bookingCols

	checkIn, checkOut := req.Dates()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q,
		roomID, req.RoomType,
		req.GuestName, req.Email, req.Phone,
		checkIn, checkOut,
		req.Adults, req.Children, req.SpecialRequests,
	).Scan(
		&b.ID, &b.RoomID, &b.RoomType, &b.Status,
		&b.GuestName, &b.Email, &b.Phone,
		&b.CheckIn, &b.CheckOut,
		&b.Adults, &b.Children, &b.SpecialRequests,
		&b.PaymentRef, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
			return nil, domain.ErrRoomUnavailable
		}
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&b.ID, &b.RoomID, &b.RoomType, &b.Status,
		&b.GuestName, &b.Email, &b.Phone,
		&b.CheckIn, &b.CheckOut,
		&b.Adults, &b.Children, &b.SpecialRequests,
		&b.PaymentRef, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &b, err
}

func (r *bookingRepository) List(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + bookingCols + ` FROM bookings`
	args := []any{}
	if status != nil {
		q += ` WHERE status=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, *status, limit, offset)
	} else {
		q += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID, &b.RoomID, &b.RoomType, &b.Status,
			&b.GuestName, &b.Email, &b.Phone,
			&b.CheckIn, &b.CheckOut,
			&b.Adults, &b.Children, &b.SpecialRequests,
			&b.PaymentRef, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) BookedRoomIDs(ctx context.Context, roomIDs []int64, checkIn, checkOut time.Time) ([]int64, error) {
	const q = `
		SELECT DISTINCT room_id FROM bookings
		WHERE room_id = ANY($1)
		  AND status IN ('pending','confirmed')
		  AND check_in_date < $3
		  AND check_out_date > $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, roomIDs, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *bookingRepository) Finalize(ctx context.Context, id int64, paymentRef string) (*domain.Booking, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	var b domain.Booking
	err = tx.QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id=$1 FOR UPDATE`, id).Scan(
		&b.ID, &b.RoomID, &b.RoomType, &b.Status,
		&b.GuestName, &b.Email, &b.Phone,
		&b.CheckIn, &b.CheckOut,
		&b.Adults, &b.Children, &b.SpecialRequests,
		&b.PaymentRef, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, false, domain.ErrNotFound
	}
	if err != nil {
		return nil, false, err
	}

	switch b.Status {
	case domain.BookingConfirmed:
		// Already finalized; repeat confirmations are a no-op.
		return &b, false, nil
	case domain.BookingCanceled:
		return nil, false, domain.ErrBookingCanceled
	}

	// Defensive re-check: the exclusion constraint makes a conflicting
	// blocking booking impossible, but confirmation is the last gate before
	// the guest is charged a room, so verify anyway.
	var conflict bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE room_id=$1 AND id != $2
			  AND status IN ('pending','confirmed')
			  AND check_in_date < $4
			  AND check_out_date > $3
		)`, b.RoomID, b.ID, b.CheckIn, b.CheckOut).Scan(&conflict)
	if err != nil {
		return nil, false, err
	}
	if conflict {
		return nil, false, domain.ErrRoomUnavailable
	}

	err = tx.QueryRow(ctx, `
		UPDATE bookings SET status='confirmed', payment_ref=$2, updated_at=now()
		WHERE id=$1
		RETURNING `+bookingCols, id, paymentRef).Scan(
		&b.ID, &b.RoomID, &b.RoomType, &b.Status,
		&b.GuestName, &b.Email, &b.Phone,
		&b.CheckIn, &b.CheckOut,
		&b.Adults, &b.Children, &b.SpecialRequests,
		&b.PaymentRef, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return &b, true, nil
}

func (r *bookingRepository) Cancel(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `
		UPDATE bookings SET status='canceled', updated_at=now()
		WHERE id=$1 AND status != 'canceled'
		RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&b.ID, &b.RoomID, &b.RoomType, &b.Status,
		&b.GuestName, &b.Email, &b.Phone,
		&b.CheckIn, &b.CheckOut,
		&b.Adults, &b.Children, &b.SpecialRequests,
		&b.PaymentRef, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &b, err
}

func (r *bookingRepository) ExpireStalePending(ctx context.Context, cutoff time.Time) ([]int64, error) {
	const q = `
		UPDATE bookings SET status='canceled', updated_at=now()
		WHERE status='pending' AND created_at < $1
		RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *bookingRepository) DeletePastCheckout(ctx context.Context, today time.Time) (int64, error) {
	const q = `DELETE FROM bookings WHERE check_out_date <= $1::date`

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	result, err := r.pool.Exec(ctx, q, today)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
