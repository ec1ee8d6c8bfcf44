package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	bookinghttp "github.com/masonempey/KyanHub-sub001/internal/booking/http"
	ledgerhttp "github.com/masonempey/KyanHub-sub001/internal/ledger/http"
	monthendhttp "github.com/masonempey/KyanHub-sub001/internal/monthend/http"
	reconcilehttp "github.com/masonempey/KyanHub-sub001/internal/reconcile/http"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	BookingHandler   *bookinghttp.Handler
	MonthEndHandler  *monthendhttp.Handler
	LedgerHandler    *ledgerhttp.Handler
	ReconcileHandler *reconcilehttp.Handler
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)
	r.Use(BearerAuth(params.Config.APIToken, params.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.BookingHandler != nil {
			params.BookingHandler.MountRoutes(r)
		}
		if params.MonthEndHandler != nil {
			params.MonthEndHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.ReconcileHandler != nil {
			params.ReconcileHandler.MountRoutes(r)
		}
	})

	return r
}
