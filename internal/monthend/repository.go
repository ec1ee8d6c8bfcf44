package monthend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/masonempey/KyanHub-sub001/internal/platform/db"
)

// ErrNoRecord indicates no status row exists yet for the property/month.
var ErrNoRecord = errors.New("monthend: no status record")

// Repository provides PostgreSQL backed persistence for month-end state.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `property_id, year, month_number, status,
inventory_invoice_generated, inventory_invoice_generated_at,
revenue_updated, revenue_updated_at,
owner_email_sent, owner_email_sent_at,
revenue_amount::text, cleaning_fees_amount::text, expenses_amount::text, net_amount::text,
bookings_count, owner_profit::text, owner_percentage::text,
created_at, updated_at`

// TxStore exposes the operations available inside a transaction.
type TxStore interface {
	LoadForUpdate(ctx context.Context, propertyID int64, year, month int) (Record, error)
	UpdateStatus(ctx context.Context, propertyID int64, year, month int, status Status) error
	SetFlag(ctx context.Context, propertyID int64, year, month int, flag Flag, value bool, at time.Time) error
	SaveSnapshot(ctx context.Context, propertyID int64, year, month int, snap Snapshot) error
	InsertAudit(ctx context.Context, entry AuditEntry) error
}

type txRepo struct {
	r  *Repository
	tx pgx.Tx
}

// InTx wraps fn in a repeatable-read transaction exposed through TxStore.
func (r *Repository) InTx(ctx context.Context, fn func(TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txRepo{r: r, tx: tx})
	})
}

func (t *txRepo) LoadForUpdate(ctx context.Context, propertyID int64, year, month int) (Record, error) {
	return t.r.LoadForUpdate(ctx, t.tx, propertyID, year, month)
}

func (t *txRepo) UpdateStatus(ctx context.Context, propertyID int64, year, month int, status Status) error {
	return t.r.UpdateStatus(ctx, t.tx, propertyID, year, month, status)
}

func (t *txRepo) SetFlag(ctx context.Context, propertyID int64, year, month int, flag Flag, value bool, at time.Time) error {
	return t.r.SetFlag(ctx, t.tx, propertyID, year, month, flag, value, at)
}

func (t *txRepo) SaveSnapshot(ctx context.Context, propertyID int64, year, month int, snap Snapshot) error {
	return t.r.SaveSnapshot(ctx, t.tx, propertyID, year, month, snap)
}

func (t *txRepo) InsertAudit(ctx context.Context, entry AuditEntry) error {
	return t.r.InsertAudit(ctx, t.tx, entry)
}

// Get fetches the status row for a property/month.
func (r *Repository) Get(ctx context.Context, propertyID int64, year, month int) (Record, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM month_end_status WHERE property_id = $1 AND year = $2 AND month_number = $3`,
		propertyID, year, month)
	return scanRecord(row)
}

// LoadForUpdate locks the status row, creating it as draft if this is the
// first write for the property/month.
func (r *Repository) LoadForUpdate(ctx context.Context, tx pgx.Tx, propertyID int64, year, month int) (Record, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO month_end_status (property_id, year, month_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'draft', NOW(), NOW())
		ON CONFLICT (property_id, year, month_number) DO NOTHING`,
		propertyID, year, month)
	if err != nil {
		return Record{}, err
	}
	row := tx.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM month_end_status
		 WHERE property_id = $1 AND year = $2 AND month_number = $3 FOR UPDATE`,
		propertyID, year, month)
	return scanRecord(row)
}

// UpdateStatus sets the status of a locked row.
func (r *Repository) UpdateStatus(ctx context.Context, tx pgx.Tx, propertyID int64, year, month int, status Status) error {
	_, err := tx.Exec(ctx, `
		UPDATE month_end_status SET status = $4, updated_at = NOW()
		WHERE property_id = $1 AND year = $2 AND month_number = $3`,
		propertyID, year, month, string(status))
	return err
}

// SetFlag marks one workflow step flag with its timestamp.
func (r *Repository) SetFlag(ctx context.Context, tx pgx.Tx, propertyID int64, year, month int, flag Flag, value bool, at time.Time) error {
	var column, tsColumn string
	switch flag {
	case FlagInventoryInvoice:
		column, tsColumn = "inventory_invoice_generated", "inventory_invoice_generated_at"
	case FlagRevenueUpdated:
		column, tsColumn = "revenue_updated", "revenue_updated_at"
	case FlagOwnerEmail:
		column, tsColumn = "owner_email_sent", "owner_email_sent_at"
	default:
		return fmt.Errorf("monthend: unknown flag %q", flag)
	}
	query := fmt.Sprintf(`
		UPDATE month_end_status SET %s = $4, %s = $5, updated_at = NOW()
		WHERE property_id = $1 AND year = $2 AND month_number = $3`, column, tsColumn)
	var ts *time.Time
	if value {
		ts = &at
	}
	_, err := tx.Exec(ctx, query, propertyID, year, month, value, ts)
	return err
}

// SaveSnapshot persists the aggregate amounts computed by a ledger sync run.
func (r *Repository) SaveSnapshot(ctx context.Context, tx pgx.Tx, propertyID int64, year, month int, snap Snapshot) error {
	_, err := tx.Exec(ctx, `
		UPDATE month_end_status SET
			revenue_amount = $4, cleaning_fees_amount = $5, expenses_amount = $6,
			net_amount = $7, bookings_count = $8, owner_profit = $9, owner_percentage = $10,
			updated_at = NOW()
		WHERE property_id = $1 AND year = $2 AND month_number = $3`,
		propertyID, year, month,
		snap.RevenueAmount.String(), snap.CleaningFeesAmount.String(), snap.ExpensesAmount.String(),
		snap.NetAmount.String(), snap.BookingsCount, snap.OwnerProfit.String(), snap.OwnerPercentage.String())
	return err
}

// InsertAudit appends one immutable transition record.
func (r *Repository) InsertAudit(ctx context.Context, tx pgx.Tx, entry AuditEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO month_end_audit (property_id, year, month_number, previous_status, new_status, changed_by, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.PropertyID, entry.Year, entry.MonthNumber,
		string(entry.PreviousStatus), string(entry.NewStatus), entry.ChangedBy, entry.Timestamp)
	return err
}

// ListAudit returns the transition trail for a property/month, oldest first.
func (r *Repository) ListAudit(ctx context.Context, propertyID int64, year, month int) ([]AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, property_id, year, month_number, previous_status, new_status, changed_by, occurred_at
		FROM month_end_audit
		WHERE property_id = $1 AND year = $2 AND month_number = $3
		ORDER BY occurred_at, id`,
		propertyID, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var prev, next string
		if err := rows.Scan(&e.ID, &e.PropertyID, &e.Year, &e.MonthNumber, &prev, &next, &e.ChangedBy, &e.Timestamp); err != nil {
			return nil, err
		}
		e.PreviousStatus = Status(prev)
		e.NewStatus = Status(next)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var status string
	var revenue, cleaning, expenses, net, profit, pct string
	err := row.Scan(&rec.PropertyID, &rec.Year, &rec.MonthNumber, &status,
		&rec.InventoryInvoiceGenerated, &rec.InventoryInvoiceGeneratedAt,
		&rec.RevenueUpdated, &rec.RevenueUpdatedAt,
		&rec.OwnerEmailSent, &rec.OwnerEmailSentAt,
		&revenue, &cleaning, &expenses, &net,
		&rec.BookingsCount, &profit, &pct,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNoRecord
		}
		return Record{}, err
	}
	rec.Status = Status(status)
	for _, pair := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&rec.RevenueAmount, revenue},
		{&rec.CleaningFeesAmount, cleaning},
		{&rec.ExpensesAmount, expenses},
		{&rec.NetAmount, net},
		{&rec.OwnerProfit, profit},
		{&rec.OwnerPercentage, pct},
	} {
		value, err := decimal.NewFromString(pair.src)
		if err != nil {
			return Record{}, err
		}
		*pair.dst = value
	}
	return rec, nil
}
