package ledgerhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masonempey/KyanHub-sub001/internal/ledger"
	"github.com/masonempey/KyanHub-sub001/internal/monthend"
	"github.com/masonempey/KyanHub-sub001/internal/platform/httpx"
)

type stubSyncer struct {
	runFn func(ctx context.Context, propertyID int64, year, month int, changedBy string) (ledger.Result, error)
}

func (s *stubSyncer) Run(ctx context.Context, propertyID int64, year, month int, changedBy string) (ledger.Result, error) {
	return s.runFn(ctx, propertyID, year, month, changedBy)
}

func newTestRouter(s syncRunner) http.Handler {
	r := chi.NewRouter()
	h := NewHandler(nil, s)
	h.MountRoutes(r)
	return r
}

func TestRunSyncReturnsResult(t *testing.T) {
	syncer := &stubSyncer{
		runFn: func(_ context.Context, propertyID int64, year, month int, changedBy string) (ledger.Result, error) {
			assert.Equal(t, int64(7), propertyID)
			assert.Equal(t, 2025, year)
			assert.Equal(t, 3, month)
			assert.Equal(t, "ops@kyanhub.io", changedBy)
			return ledger.Result{
				PropertyID:   7,
				Year:         2025,
				MonthNumber:  3,
				Revenue:      "800.00",
				CleaningFees: "150.00",
				Expenses:     "120.00",
				Net:          "530.00",
				Bookings:     2,
				RowsAppended: 2,
				Status:       monthend.StatusComplete,
			}, nil
		},
	}
	router := newTestRouter(syncer)

	body, _ := json.Marshal(map[string]string{"changedBy": "ops@kyanhub.io"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/properties/7/months/2025/3/sync", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var result ledger.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "530.00", result.Net)
	assert.Equal(t, monthend.StatusComplete, result.Status)
}

func TestRunSyncRequiresChangedBy(t *testing.T) {
	router := newTestRouter(&stubSyncer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/properties/7/months/2025/3/sync", bytes.NewReader([]byte(`{}`))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunSyncBadMonth(t *testing.T) {
	router := newTestRouter(&stubSyncer{})

	body, _ := json.Marshal(map[string]string{"changedBy": "ops@kyanhub.io"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/properties/7/months/2025/0/sync", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunSyncLockedMonthConflicts(t *testing.T) {
	syncer := &stubSyncer{
		runFn: func(_ context.Context, _ int64, _, _ int, _ string) (ledger.Result, error) {
			return ledger.Result{}, fmt.Errorf("revenue already locked: %w", httpx.ErrPrecondition)
		},
	}
	router := newTestRouter(syncer)

	body, _ := json.Marshal(map[string]string{"changedBy": "ops@kyanhub.io"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/properties/7/months/2025/3/sync", bytes.NewReader(body)))

	assert.Equal(t, http.StatusConflict, rec.Code)
}
