package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/masonempey/KyanHub-sub001/internal/allocation"
	"github.com/masonempey/KyanHub-sub001/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for bookings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const bookingColumns = `id, code, property_id, guest_name, platform, check_in, check_out,
total_amount::text, cleaning_fee::text, total_nights, nightly_rate::text, cleaning_fee_month,
created_at, updated_at`

// Create persists a booking together with its per-month breakdown rows in one
// transaction. Re-ingesting an existing code returns ErrDuplicateCode without
// touching the stored booking.
func (r *Repository) Create(ctx context.Context, b *Booking) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO bookings (code, property_id, guest_name, platform, check_in, check_out,
				total_amount, cleaning_fee, total_nights, nightly_rate, cleaning_fee_month,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			b.Code, b.PropertyID, b.GuestName, b.Platform, b.CheckIn, b.CheckOut,
			b.TotalAmount.String(), b.CleaningFee.String(), b.TotalNights,
			b.NightlyRate.String(), string(b.CleaningFeeMonth),
		).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateCode
			}
			return err
		}
		return insertBreakdown(ctx, tx, b.ID, b.NightsByMonth, b.RevenueByMonth)
	})
}

// Update rewrites a booking and replaces its breakdown rows atomically.
func (r *Repository) Update(ctx context.Context, b *Booking) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE bookings SET guest_name = $2, platform = $3, check_in = $4, check_out = $5,
				total_amount = $6, cleaning_fee = $7, total_nights = $8, nightly_rate = $9,
				cleaning_fee_month = $10, updated_at = NOW()
			WHERE id = $1`,
			b.ID, b.GuestName, b.Platform, b.CheckIn, b.CheckOut,
			b.TotalAmount.String(), b.CleaningFee.String(), b.TotalNights,
			b.NightlyRate.String(), string(b.CleaningFeeMonth))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM booking_months WHERE booking_id = $1`, b.ID); err != nil {
			return err
		}
		return insertBreakdown(ctx, tx, b.ID, b.NightsByMonth, b.RevenueByMonth)
	})
}

// Delete removes a booking and cascades to its breakdown rows.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM booking_months WHERE booking_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetByID fetches a booking with its breakdown maps.
func (r *Repository) GetByID(ctx context.Context, id int64) (Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetByCode fetches a booking by its immutable code.
func (r *Repository) GetByCode(ctx context.Context, code string) (Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE code = $1`, code)
}

// ListForMonth returns every booking of the property with allocated nights or
// revenue in the given month.
func (r *Repository) ListForMonth(ctx context.Context, propertyID int64, key allocation.MonthKey) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE property_id = $1
		  AND id IN (SELECT booking_id FROM booking_months WHERE month_key = $2)
		ORDER BY check_in, id`, propertyID, string(key))
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

// ListForRange returns the property's bookings whose stay overlaps [from, to).
func (r *Repository) ListForRange(ctx context.Context, propertyID int64, from, to time.Time) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE property_id = $1 AND check_in < $3 AND check_out > $2
		ORDER BY check_in, id`, propertyID, from, to)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (Booking, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}
	if err := r.loadBreakdown(ctx, &b); err != nil {
		return Booking{}, err
	}
	return b, nil
}

func (r *Repository) collect(ctx context.Context, rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()
	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range bookings {
		if err := r.loadBreakdown(ctx, &bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

func (r *Repository) loadBreakdown(ctx context.Context, b *Booking) error {
	rows, err := r.pool.Query(ctx,
		`SELECT month_key, nights, revenue::text FROM booking_months WHERE booking_id = $1 ORDER BY month_key`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	b.NightsByMonth = make(map[allocation.MonthKey]int)
	b.RevenueByMonth = make(map[allocation.MonthKey]decimal.Decimal)
	for rows.Next() {
		var key string
		var nights int
		var revenue string
		if err := rows.Scan(&key, &nights, &revenue); err != nil {
			return err
		}
		amount, err := decimal.NewFromString(revenue)
		if err != nil {
			return err
		}
		b.NightsByMonth[allocation.MonthKey(key)] = nights
		b.RevenueByMonth[allocation.MonthKey(key)] = amount
	}
	return rows.Err()
}

func insertBreakdown(ctx context.Context, tx pgx.Tx, bookingID int64, nights map[allocation.MonthKey]int, revenue map[allocation.MonthKey]decimal.Decimal) error {
	for key, n := range nights {
		_, err := tx.Exec(ctx, `
			INSERT INTO booking_months (booking_id, month_key, nights, revenue)
			VALUES ($1, $2, $3, $4)`,
			bookingID, string(key), n, revenue[key].String())
		if err != nil {
			return err
		}
	}
	return nil
}

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	var totalAmount, cleaningFee, nightlyRate, feeMonth string
	err := row.Scan(&b.ID, &b.Code, &b.PropertyID, &b.GuestName, &b.Platform,
		&b.CheckIn, &b.CheckOut, &totalAmount, &cleaningFee, &b.TotalNights,
		&nightlyRate, &feeMonth, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Booking{}, err
	}
	if b.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return Booking{}, err
	}
	if b.CleaningFee, err = decimal.NewFromString(cleaningFee); err != nil {
		return Booking{}, err
	}
	if b.NightlyRate, err = decimal.NewFromString(nightlyRate); err != nil {
		return Booking{}, err
	}
	b.CleaningFeeMonth = allocation.MonthKey(feeMonth)
	return b, nil
}
