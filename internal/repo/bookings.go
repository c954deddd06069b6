package repo

import (
	"context"
	"fmt"
	"time"
)

// InsertBooking stores a new slot reservation.
func (r *Repository) InsertBooking(ctx context.Context, b Booking) (*Booking, error) {
	const q = `
INSERT INTO bookings (booking_ref, phone, booking_date, time_slot, court, duration_minutes, player_count, amount, status, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, created_at, updated_at;
`
	row := r.pool.QueryRow(ctx, q,
		b.BookingRef, b.Phone, b.Date, b.TimeSlot, b.Court, b.DurationMin, b.PlayerCount, b.Amount, b.Status, b.ExpiresAt,
	)
	if err := row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return &b, nil
}

// GetBookingByRef retrieves a booking by reference.
func (r *Repository) GetBookingByRef(ctx context.Context, ref string) (*Booking, error) {
	const q = `
SELECT id, booking_ref, phone, booking_date, time_slot, court, duration_minutes, player_count, amount, status, payment_id, expires_at, created_at, updated_at
FROM bookings
WHERE booking_ref = $1
LIMIT 1;
`
	row := r.pool.QueryRow(ctx, q, ref)
	var b Booking
	if err := row.Scan(&b.ID, &b.BookingRef, &b.Phone, &b.Date, &b.TimeSlot, &b.Court, &b.DurationMin, &b.PlayerCount, &b.Amount, &b.Status, &b.PaymentID, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by ref: %w", err)
	}
	return &b, nil
}

// CountPlayers sums player_count over active bookings for one slot. Both
// confirmed and pending reservations consume capacity.
func (r *Repository) CountPlayers(ctx context.Context, date time.Time, timeSlot string, court int) (int, error) {
	const q = `
SELECT COALESCE(SUM(player_count), 0)
FROM bookings
WHERE booking_date = $1 AND time_slot = $2 AND court = $3 AND status IN ($4, $5);
`
	var total int
	if err := r.pool.QueryRow(ctx, q, date, timeSlot, court, BookingStatusConfirmed, BookingStatusPendingPayment).Scan(&total); err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return total, nil
}

// MarkBookingConfirmed transitions a pending booking to confirmed with the
// provider payment id. Returns false when the booking was not pending.
func (r *Repository) MarkBookingConfirmed(ctx context.Context, bookingRef, paymentID string) (bool, error) {
	const q = `
UPDATE bookings
SET status = $2, payment_id = $3, updated_at = NOW()
WHERE booking_ref = $1 AND status = $4;
`
	ct, err := r.pool.Exec(ctx, q, bookingRef, BookingStatusConfirmed, paymentID, BookingStatusPendingPayment)
	if err != nil {
		return false, fmt.Errorf("mark booking confirmed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ExpirePendingBookings flips unpaid bookings past their expiry to expired,
// releasing their slot capacity, and returns the affected rows.
func (r *Repository) ExpirePendingBookings(ctx context.Context, now time.Time) ([]Booking, error) {
	const q = `
UPDATE bookings
SET status = $2, updated_at = NOW()
WHERE status = $1 AND expires_at IS NOT NULL AND expires_at < $3
RETURNING id, booking_ref, phone, booking_date, time_slot, court, duration_minutes, player_count, amount, status, payment_id, expires_at, created_at, updated_at;
`
	rows, err := r.pool.Query(ctx, q, BookingStatusPendingPayment, BookingStatusExpired, now)
	if err != nil {
		return nil, fmt.Errorf("expire pending bookings: %w", err)
	}
	defer rows.Close()

	var expired []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.BookingRef, &b.Phone, &b.Date, &b.TimeSlot, &b.Court, &b.DurationMin, &b.PlayerCount, &b.Amount, &b.Status, &b.PaymentID, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan expired booking: %w", err)
		}
		expired = append(expired, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired bookings: %w", err)
	}
	return expired, nil
}
