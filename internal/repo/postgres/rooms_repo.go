package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legendspp/hotel-bookings/internal/domain"
)

type RoomRepository interface {
	List(ctx context.Context) ([]domain.Room, error)
	ListByType(ctx context.Context, roomType string) ([]domain.Room, error)
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	RefreshStatuses(ctx context.Context, asOf time.Time) error
}

type roomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) RoomRepository {
	return &roomRepository{pool: pool}
}

const roomCols = `id, number, room_type, status, max_occupancy,
nightly_rate_cents, weekend_rate_cents, created_at`

func (r *roomRepository) List(ctx context.Context) ([]domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRooms(rows)
}

func (r *roomRepository) ListByType(ctx context.Context, roomType string) ([]domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE room_type ILIKE $1 ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, roomType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRooms(rows)
}

func (r *roomRepository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	const q = `SELECT ` + roomCols + ` FROM rooms WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var room domain.Room
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&room.ID, &room.Number, &room.RoomType, &room.Status, &room.MaxOccupancy,
		&room.NightlyRateCents, &room.WeekendRateCents, &room.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &room, err
}

// RefreshStatuses recomputes the coarse status cache from the bookings that
// block the given date. The cache is advisory only; availability decisions
// never read it.
func (r *roomRepository) RefreshStatuses(ctx context.Context, asOf time.Time) error {
	const q = `
		UPDATE rooms SET status = CASE WHEN EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.room_id = rooms.id
			  AND b.status IN ('pending','confirmed')
			  AND b.check_in_date <= $1::date
			  AND b.check_out_date > $1::date
		) THEN 'booked' ELSE 'available' END`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, asOf)
	return err
}

func scanRooms(rows pgx.Rows) ([]domain.Room, error) {
	var rooms []domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(
			&room.ID, &room.Number, &room.RoomType, &room.Status, &room.MaxOccupancy,
			&room.NightlyRateCents, &room.WeekendRateCents, &room.CreatedAt,
		); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}
