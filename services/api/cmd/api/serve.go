package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/khoa21023/salebot-telegram/services/api/internal/app"
	"github.com/khoa21023/salebot-telegram/services/api/internal/clock"
	"github.com/khoa21023/salebot-telegram/services/api/internal/config"
	"github.com/khoa21023/salebot-telegram/services/api/internal/logging"
	"github.com/khoa21023/salebot-telegram/services/api/internal/notify"
	"github.com/khoa21023/salebot-telegram/services/api/internal/payment"
	"github.com/khoa21023/salebot-telegram/services/api/internal/rowstore"
	"github.com/khoa21023/salebot-telegram/services/api/internal/storage/postgres"
	"github.com/khoa21023/salebot-telegram/services/api/internal/telemetry"
	transporthttp "github.com/khoa21023/salebot-telegram/services/api/internal/transport/http"
	"github.com/khoa21023/salebot-telegram/services/api/migrations"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
	telegramRetries = 2
	expiryTimeout   = 30 * time.Second
	settleTimeout   = time.Minute
)

func serveCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional env file to load")
	return cmd
}

func serve(cfg config.Config) error {
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(startupCtx, cfg.OTLPEndpoint, cfg.ServiceName, version)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	store, healthCheck, closeStore, err := openStore(startupCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var notifier interface {
		app.BuyerNotifier
		app.OperatorNotifier
	}
	if cfg.TelegramToken != "" {
		notifier = notify.NewTelegram(cfg.TelegramAPIURL, cfg.TelegramToken, cfg.OperatorChatIDs,
			notify.WithTelegramLogger(logger),
			notify.WithRetries(telegramRetries),
		)
	} else {
		logger.Warn().Msg("TELEGRAM_BOT_TOKEN not set, notifications go to the log")
		notifier = notify.NewLog(logger)
	}

	verifier := payment.NewVerifier(cfg.PaymentKey)
	if !verifier.Enabled() {
		logger.Warn().Msg("PAYMENT_CHECKSUM_KEY not set, payment callbacks are not authenticated")
	}
	if cfg.AdminToken == "" {
		logger.Warn().Msg("ADMIN_TOKEN not set, admin endpoints are disabled")
	}

	clk := clock.NewSystem()
	registry := app.NewOrderRegistry(clk, clock.NewSystemScheduler())
	ledger := app.NewStockLedger(store, app.NewGate(), app.WithLedgerLogger(logger))
	catalog := app.NewCatalog(store, app.WithCatalogLogger(logger))
	audit := app.NewAuditLog(store)
	app.NewExpiryScheduler(registry, ledger, notifier,
		app.WithExpiryLogger(logger),
		app.WithExpiryTimeout(expiryTimeout),
	)
	settlement := app.NewSettlementCoordinator(registry, ledger, audit, clk,
		app.WithSettlementLogger(logger),
		app.WithNotifiers(notifier, notifier),
		app.WithLowStockThreshold(cfg.LowStockThreshold),
		app.WithSettleTimeout(settleTimeout),
	)
	reconciler := app.NewReconciler(registry, ledger,
		app.WithReconcilerLogger(logger),
		app.WithReconcilerOperators(notifier),
	)
	holds := app.NewHoldService(catalog, ledger, registry,
		app.WithHoldTTL(cfg.ReservationTTL),
		app.WithHoldLogger(logger),
		app.WithHoldOperators(notifier),
	)
	admin := app.NewAdminService(catalog, ledger, audit, reconciler, settlement)

	// Reservations do not survive a restart, so every hold found now is an
	// orphan of the previous process.
	if cfg.SweepOnStart {
		if _, err := reconciler.Sweep(startupCtx); err != nil {
			logger.Error().Err(err).Msg("startup sweep failed")
		}
	}

	handler := transporthttp.NewRouter(transporthttp.Services{
		Holds:       holds,
		Payments:    settlement,
		Verifier:    verifier,
		Admin:       admin,
		HealthCheck: healthCheck,
	}, transporthttp.RouterConfig{
		AdminToken:  cfg.AdminToken,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reconciler.Run(stopCtx, cfg.SweepInterval)

	logger.Info().
		Str("port", cfg.Port).
		Str("store", cfg.StoreDriver).
		Dur("reservation_ttl", cfg.ReservationTTL).
		Msg("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-stopCtx.Done():
		logger.Info().Msg("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	if n := registry.Len(); n > 0 {
		logger.Warn().Int("pending", n).Msg("stopping with pending reservations; their holds are swept on next start")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// openStore returns the configured row store, its readiness probe and a
// close func.
func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (rowstore.Store, func(context.Context) error, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn().Msg("using the in-memory store, data is lost on exit")
		return rowstore.NewMemory(), nil, func() {}, nil
	}

	pool, err := connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	applied, err := migrations.Apply(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("apply migrations: %w", err)
	}
	for _, name := range applied {
		logger.Info().Str("migration", name).Msg("migration applied")
	}
	return postgres.NewRowRepository(pool), pool.Ping, pool.Close, nil
}

func connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}
