package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/ticketfair/escrow-service/internal/api/http"
	"github.com/ticketfair/escrow-service/internal/api/http/handlers"
	"github.com/ticketfair/escrow-service/internal/auth"
	"github.com/ticketfair/escrow-service/internal/config"
	"github.com/ticketfair/escrow-service/internal/events"
	"github.com/ticketfair/escrow-service/internal/observability"
	"github.com/ticketfair/escrow-service/internal/persistence"
	"github.com/ticketfair/escrow-service/internal/provider"
	"github.com/ticketfair/escrow-service/internal/repository"
	"github.com/ticketfair/escrow-service/internal/service"
	"github.com/ticketfair/escrow-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	repos := repository.NewRepositories(pool)
	txRunner := repository.NewTxRunner(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	idempotency := service.NewIdempotencyStore(redis.Client, cfg.Settlement.IdempotencyTTL())

	var paymentProvider provider.PaymentProvider
	if cfg.Provider.Mode == "http" {
		paymentProvider = provider.NewHTTPClient(cfg.Provider)
	} else {
		paymentProvider = provider.NewSandbox(logger)
	}

	authService := service.NewAuthService(cfg.Auth, repos.Accounts)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.Accounts)

	ticketService := service.NewTicketService(service.TicketDependencies{
		Repos:      repos,
		TxRunner:   txRunner,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	orderService := service.NewOrderService(service.OrderDependencies{
		TxRunner:    txRunner,
		Idempotency: idempotency,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	settlementService := service.NewSettlementService(service.SettlementDependencies{
		TxRunner:    txRunner,
		Provider:    paymentProvider,
		Currency:    cfg.Provider.Currency,
		Idempotency: idempotency,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	refundService := service.NewRefundService(service.RefundDependencies{
		TxRunner:    txRunner,
		Provider:    paymentProvider,
		Currency:    cfg.Provider.Currency,
		Idempotency: idempotency,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	notificationService.RegisterHandlers()

	settlementWorker := worker.NewSettlementWorker(
		settlementService,
		repos.Escrows,
		dispatcher,
		logger,
		cfg.Settlement.SweepInterval(),
		cfg.Settlement.SweepBatchSize,
	)
	settlementWorker.Start(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Accounts:       handlers.NewAccountsHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Orders:         handlers.NewOrdersHandler(orderService, settlementService, refundService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
