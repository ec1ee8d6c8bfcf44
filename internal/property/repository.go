package property

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository provides PostgreSQL backed persistence for properties.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const propertyColumns = `id, name, external_id, ledger_document_id, ledger_sheet, owner_percentage::text, active`

// Get fetches a property by id.
func (r *Repository) Get(ctx context.Context, id int64) (Property, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	return scanProperty(row)
}

// GetByExternalID fetches a property by its reservation-platform identifier.
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (Property, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE external_id = $1`, externalID)
	return scanProperty(row)
}

// List returns active properties ordered by name.
func (r *Repository) List(ctx context.Context) ([]Property, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+propertyColumns+` FROM properties WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var properties []Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

func scanProperty(row pgx.Row) (Property, error) {
	var p Property
	var ownerPct string
	err := row.Scan(&p.ID, &p.Name, &p.ExternalID, &p.LedgerDocumentID, &p.LedgerSheet, &ownerPct, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		return Property{}, err
	}
	p.OwnerPercentage, err = decimal.NewFromString(ownerPct)
	if err != nil {
		return Property{}, err
	}
	return p, nil
}
