package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/incident-bridge/internal/api/http"
	"github.com/spec-kit/incident-bridge/internal/api/http/handlers"
	"github.com/spec-kit/incident-bridge/internal/auth"
	"github.com/spec-kit/incident-bridge/internal/config"
	"github.com/spec-kit/incident-bridge/internal/events"
	"github.com/spec-kit/incident-bridge/internal/guard"
	"github.com/spec-kit/incident-bridge/internal/observability"
	"github.com/spec-kit/incident-bridge/internal/remote"
	"github.com/spec-kit/incident-bridge/internal/service"
	"github.com/spec-kit/incident-bridge/internal/worker"
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

	metrics := observability.NewMetrics()

	var lock guard.KeyLock
	if cfg.Lock.Backend == "redis" {
		lock = guard.NewRedisKeyLock(cfg.Redis, cfg.Lock.TTL(), logger)
	} else {
		lock = guard.NewMemoryKeyLock()
	}

	ticketClient := remote.NewConnectWiseClient(cfg.ConnectWise, logger)
	incidentClient := remote.NewPagerDutyClient(cfg.PagerDuty, logger)

	dispatcher := events.NewInMemoryDispatcher()
	auditService := service.NewAuditService(dispatcher, logger, metrics)
	worker.StartAuditWorker(auditService)

	syncService := service.NewSyncService(cfg, service.SyncDependencies{
		Tickets:    ticketClient,
		Incidents:  incidentClient,
		Secrets:    auth.NewSecretResolver(cfg.PagerDuty.Services),
		Lock:       lock,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, lock)
	webhooksHandler := handlers.NewWebhooksHandler(syncService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   healthHandler,
		Webhooks: webhooksHandler,
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
