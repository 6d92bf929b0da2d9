package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	notificationapp "github.com/arenafit/backoffice/internal/notification/app"
	"github.com/arenafit/backoffice/internal/notification/provider"
	notificationpg "github.com/arenafit/backoffice/internal/notification/repository/postgres"
	"github.com/arenafit/backoffice/internal/platform/config"
	"github.com/arenafit/backoffice/internal/platform/database"
	"github.com/arenafit/backoffice/internal/platform/logger"
	"github.com/arenafit/backoffice/internal/platform/messagebroker"
)

const serviceName = "notification_worker"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Notification worker starting...",
		"batch_size", cfg.WorkerBatchSize,
		"interval", cfg.WorkerInterval.String(),
		"dry_run", cfg.WorkerDryRun)

	dbPool, err := database.NewDBPool(context.Background(), cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL database")

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Warn("Failed to connect to NATS, outcome events disabled", "error", err)
		natsClient = nil
	} else {
		defer natsClient.Close()
		appLogger.Info("Connected to NATS")
	}

	outboxRepo := notificationpg.NewPgOutboxRepository(dbPool)
	adapter := provider.New(provider.Config{
		Provider:      cfg.WhatsAppProvider,
		Token:         cfg.WhatsAppToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		APIBaseURL:    cfg.WhatsAppAPIBaseURL,
	}, appLogger, nil)

	var events notificationapp.EventPublisher
	if natsClient != nil {
		events = natsClient
	}
	dispatcher := notificationapp.NewDispatchService(outboxRepo, adapter, events, appLogger)

	worker := notificationapp.NewDrainWorker(outboxRepo, dispatcher, appLogger, notificationapp.DrainWorkerConfig{
		BatchSize: cfg.WorkerBatchSize,
		Interval:  cfg.WorkerInterval,
		DryRun:    cfg.WorkerDryRun,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quitChan := make(chan os.Signal, 1)
		signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
		receivedSignal := <-quitChan
		appLogger.Info("Shutdown signal received", "signal", receivedSignal.String())
		cancel()
	}()

	worker.Run(ctx)
	appLogger.Info("Notification worker shut down successfully")
}
