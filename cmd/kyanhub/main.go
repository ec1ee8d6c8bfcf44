package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/masonempey/KyanHub-sub001/internal/app"
	"github.com/masonempey/KyanHub-sub001/internal/booking"
	bookinghttp "github.com/masonempey/KyanHub-sub001/internal/booking/http"
	"github.com/masonempey/KyanHub-sub001/internal/expenses"
	"github.com/masonempey/KyanHub-sub001/internal/ledger"
	ledgerhttp "github.com/masonempey/KyanHub-sub001/internal/ledger/http"
	"github.com/masonempey/KyanHub-sub001/internal/monthend"
	monthendhttp "github.com/masonempey/KyanHub-sub001/internal/monthend/http"
	"github.com/masonempey/KyanHub-sub001/internal/platform/cache"
	"github.com/masonempey/KyanHub-sub001/internal/platform/db"
	"github.com/masonempey/KyanHub-sub001/internal/property"
	reconcilehttp "github.com/masonempey/KyanHub-sub001/internal/reconcile/http"
	"github.com/masonempey/KyanHub-sub001/internal/reservation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	feedClient := reservation.NewClient(cfg.FeedBaseURL, cfg.FeedAPIKey)
	ledgerClient := ledger.NewHTTPClient(cfg.LedgerBaseURL, cfg.LedgerAPIKey)

	var expensesClient ledger.ExpensesSource
	if cfg.ExpensesBaseURL != "" {
		expensesClient = expenses.NewClient(cfg.ExpensesBaseURL, cfg.ExpensesAPIKey)
	}

	propertyRepo := property.NewRepository(pool)
	bookingRepo := booking.NewRepository(pool)
	monthEndRepo := monthend.NewRepository(pool)

	bookingService := booking.NewService(bookingRepo, propertyRepo, feedClient, logger)
	monthEndService := monthend.NewService(monthEndRepo)

	syncer := ledger.NewSyncer(
		logger,
		ledgerClient,
		bookingRepo,
		propertyRepo,
		expensesClient,
		monthEndService,
		ledger.NewLease(redisClient, cfg.SyncLeaseTTL),
		ledger.NewRegistry(),
	)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		BookingHandler:   bookinghttp.NewHandler(logger, bookingService),
		MonthEndHandler:  monthendhttp.NewHandler(logger, monthEndService),
		LedgerHandler:    ledgerhttp.NewHandler(logger, syncer),
		ReconcileHandler: reconcilehttp.NewHandler(logger, bookingRepo, feedClient, propertyRepo),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
