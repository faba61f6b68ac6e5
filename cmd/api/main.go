package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veltapay/wallet-backend/internal/config"
	"github.com/veltapay/wallet-backend/internal/domain"
	"github.com/veltapay/wallet-backend/internal/handler"
	"github.com/veltapay/wallet-backend/internal/ledger"
	"github.com/veltapay/wallet-backend/internal/logging"
	"github.com/veltapay/wallet-backend/internal/middleware"
	"github.com/veltapay/wallet-backend/internal/processor"
	"github.com/veltapay/wallet-backend/internal/reconciliation"
	"github.com/veltapay/wallet-backend/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("wallet-api", cfg.LogLevel, cfg.AppEnv)

	currency := domain.Currency(cfg.LedgerCurrency)
	if !currency.IsValid() {
		slog.Error("invalid ledger currency", "currency", cfg.LedgerCurrency)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db := repository.NewDB(pool)
	wallets := repository.NewWalletRepository(pool)
	entries := repository.NewEntryRepository(pool)
	users := repository.NewUserRepository(pool)
	reports := repository.NewReconciliationRepository(pool)
	idempotency := repository.NewIdempotencyRepository(pool)

	ledgerSvc := ledger.NewService(wallets, entries, users, db, currency)
	processorClient := processor.NewClient(cfg.ProcessorURL, cfg.ProcessorAPIKey, currency, cfg.ProcessorMaxRetries)
	job := reconciliation.NewJob(ledgerSvc, users, processorClient, reports, cfg.ReconcileToleranceMinor)
	scheduler := reconciliation.NewScheduler(job, time.Duration(cfg.ReconcileIntervalS)*time.Second, logger)

	go scheduler.Start(ctx)
	go idempotencyJanitor(ctx, idempotency)

	jwtExpiry := time.Duration(cfg.JWTExpiryMinutes) * time.Minute
	healthHandler := handler.NewHealthHandler(pool)
	authHandler := handler.NewAuthHandler(users, cfg.JWTSecret, jwtExpiry)
	walletHandler := handler.NewWalletHandler(ledgerSvc, currency)
	transferHandler := handler.NewTransferHandler(ledgerSvc)
	reconHandler := handler.NewReconciliationHandler(job, reports)

	authed := middleware.Auth(cfg.JWTSecret)
	idem := middleware.Idempotency(idempotency)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	mux.Handle("GET /api/v1/wallets/{id}/balance", authed(http.HandlerFunc(walletHandler.GetBalance)))
	mux.Handle("GET /api/v1/wallets/{id}/transactions", authed(http.HandlerFunc(walletHandler.ListTransactions)))
	mux.Handle("POST /api/v1/wallets/{id}/credit", authed(idem(http.HandlerFunc(walletHandler.Credit))))
	mux.Handle("POST /api/v1/wallets/{id}/debit", authed(idem(http.HandlerFunc(walletHandler.Debit))))
	mux.Handle("POST /api/v1/transfers", authed(idem(http.HandlerFunc(transferHandler.Create))))

	mux.Handle("POST /api/v1/reconciliation/run", authed(http.HandlerFunc(reconHandler.Run)))
	mux.Handle("GET /api/v1/reconciliation/reports", authed(http.HandlerFunc(reconHandler.ListReports)))

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// idempotencyJanitor purges expired cache rows hourly so the table does not
// grow without bound.
func idempotencyJanitor(ctx context.Context, repo *repository.IdempotencyRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.CleanExpired(ctx)
			if err != nil {
				slog.Error("idempotency cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("idempotency cache cleaned", "removed", n)
			}
		}
	}
}
