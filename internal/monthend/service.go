package monthend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
)

// Store is the persistence contract the service depends on.
type Store interface {
	Get(ctx context.Context, propertyID int64, year, month int) (Record, error)
	ListAudit(ctx context.Context, propertyID int64, year, month int) ([]AuditEntry, error)
	InTx(ctx context.Context, fn func(TxStore) error) error
}

// Service guards the month-end state machine and its audit trail.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a Service instance.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func validateMonth(propertyID int64, year, month int) error {
	if propertyID == 0 {
		return fmt.Errorf("monthend: property id required: %w", httpx.ErrValidation)
	}
	if year < 2000 || year > 2200 {
		return fmt.Errorf("monthend: year %d out of range: %w", year, httpx.ErrValidation)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("monthend: month %d out of range: %w", month, httpx.ErrValidation)
	}
	return nil
}

// GetStatus returns the status record, synthesising a draft record when no
// row has been written yet.
func (s *Service) GetStatus(ctx context.Context, propertyID int64, year, month int) (Record, error) {
	if err := validateMonth(propertyID, year, month); err != nil {
		return Record{}, err
	}
	rec, err := s.store.Get(ctx, propertyID, year, month)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return Record{
				PropertyID:  propertyID,
				Year:        year,
				MonthNumber: month,
				Status:      StatusDraft,
			}, nil
		}
		return Record{}, err
	}
	return rec, nil
}

// SetStatus transitions the property/month to the target status, creating the
// row as draft on first write and appending exactly one audit entry.
func (s *Service) SetStatus(ctx context.Context, propertyID int64, year, month int, target Status, changedBy string) (Record, error) {
	if err := validateMonth(propertyID, year, month); err != nil {
		return Record{}, err
	}
	if !target.Valid() {
		return Record{}, fmt.Errorf("monthend: unknown status %q: %w", target, httpx.ErrValidation)
	}
	var rec Record
	err := s.store.InTx(ctx, func(tx TxStore) error {
		current, err := tx.LoadForUpdate(ctx, propertyID, year, month)
		if err != nil {
			return err
		}
		if current.Status == target {
			rec = current
			return nil
		}
		if err := ValidateTransition(current.Status, target); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, propertyID, year, month, target); err != nil {
			return err
		}
		if err := tx.InsertAudit(ctx, AuditEntry{
			PropertyID:     propertyID,
			Year:           year,
			MonthNumber:    month,
			PreviousStatus: current.Status,
			NewStatus:      target,
			ChangedBy:      changedBy,
			Timestamp:      s.now(),
		}); err != nil {
			return err
		}
		current.Status = target
		rec = current
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// BatchSetStatus applies the same transition to several properties. Each
// property is processed independently: a failure is reported in its item and
// never blocks or rolls back the others.
func (s *Service) BatchSetStatus(ctx context.Context, propertyIDs []int64, year, month int, target Status, changedBy string) []BatchItemResult {
	results := make([]BatchItemResult, 0, len(propertyIDs))
	for _, propertyID := range propertyIDs {
		rec, err := s.SetStatus(ctx, propertyID, year, month, target, changedBy)
		item := BatchItemResult{PropertyID: propertyID}
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Status = rec.Status
		}
		results = append(results, item)
	}
	return results
}

// SetFlag marks one workflow step flag. The revenue-updated flag may only be
// set while the month is ready or complete.
func (s *Service) SetFlag(ctx context.Context, propertyID int64, year, month int, flag Flag, value bool) (Record, error) {
	if err := validateMonth(propertyID, year, month); err != nil {
		return Record{}, err
	}
	if !flag.Valid() {
		return Record{}, fmt.Errorf("monthend: unknown flag %q: %w", flag, httpx.ErrValidation)
	}
	err := s.store.InTx(ctx, func(tx TxStore) error {
		current, err := tx.LoadForUpdate(ctx, propertyID, year, month)
		if err != nil {
			return err
		}
		if flag == FlagRevenueUpdated && value && !revenueAllowed(current.Status) {
			return &RevenueLockedError{Current: current.Status}
		}
		if err := tx.SetFlag(ctx, propertyID, year, month, flag, value, s.now()); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return s.store.Get(ctx, propertyID, year, month)
}

// ApplySyncResult persists a successful sync run: snapshot amounts, the
// revenue-updated flag, and a ready→complete advance when applicable, all in
// one transaction. Rejected unless the month is ready or complete.
func (s *Service) ApplySyncResult(ctx context.Context, propertyID int64, year, month int, snap Snapshot, changedBy string) (Record, error) {
	if err := validateMonth(propertyID, year, month); err != nil {
		return Record{}, err
	}
	err := s.store.InTx(ctx, func(tx TxStore) error {
		current, err := tx.LoadForUpdate(ctx, propertyID, year, month)
		if err != nil {
			return err
		}
		if !revenueAllowed(current.Status) {
			return &RevenueLockedError{Current: current.Status}
		}
		if err := tx.SaveSnapshot(ctx, propertyID, year, month, snap); err != nil {
			return err
		}
		if err := tx.SetFlag(ctx, propertyID, year, month, FlagRevenueUpdated, true, s.now()); err != nil {
			return err
		}
		if current.Status == StatusReady {
			if err := tx.UpdateStatus(ctx, propertyID, year, month, StatusComplete); err != nil {
				return err
			}
			if err := tx.InsertAudit(ctx, AuditEntry{
				PropertyID:     propertyID,
				Year:           year,
				MonthNumber:    month,
				PreviousStatus: StatusReady,
				NewStatus:      StatusComplete,
				ChangedBy:      changedBy,
				Timestamp:      s.now(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return s.store.Get(ctx, propertyID, year, month)
}

// RequireRevenueUnlocked verifies that ledger writes are currently permitted.
func (s *Service) RequireRevenueUnlocked(ctx context.Context, propertyID int64, year, month int) error {
	rec, err := s.GetStatus(ctx, propertyID, year, month)
	if err != nil {
		return err
	}
	if !revenueAllowed(rec.Status) {
		return &RevenueLockedError{Current: rec.Status}
	}
	return nil
}

// Audit returns the transition trail for a property/month.
func (s *Service) Audit(ctx context.Context, propertyID int64, year, month int) ([]AuditEntry, error) {
	if err := validateMonth(propertyID, year, month); err != nil {
		return nil, err
	}
	return s.store.ListAudit(ctx, propertyID, year, month)
}

func revenueAllowed(status Status) bool {
	return status == StatusReady || status == StatusComplete
}
