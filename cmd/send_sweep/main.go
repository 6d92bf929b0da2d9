package main

import (
	"context"
	"log/slog"
	"os"

	billingpg "github.com/arenafit/backoffice/internal/billing/repository/postgres"
	notificationapp "github.com/arenafit/backoffice/internal/notification/app"
	"github.com/arenafit/backoffice/internal/notification/provider"
	notificationpg "github.com/arenafit/backoffice/internal/notification/repository/postgres"
	"github.com/arenafit/backoffice/internal/platform/config"
	"github.com/arenafit/backoffice/internal/platform/database"
	"github.com/arenafit/backoffice/internal/platform/logger"
)

const serviceName = "send_sweep"

// send_sweep is a single-pass operational job: it resolves the candidate
// invoice set for one unit and month, applies the retry policy, and exits.
func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)

	ctx := context.Background()
	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	outboxRepo := notificationpg.NewPgOutboxRepository(dbPool)
	billingRepo := billingpg.NewPgBillingRepository(dbPool)

	adapter := provider.New(provider.Config{
		Provider:      cfg.WhatsAppProvider,
		Token:         cfg.WhatsAppToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		APIBaseURL:    cfg.WhatsAppAPIBaseURL,
	}, appLogger, nil)

	// The sweep is short-lived; outcome events are skipped rather than
	// holding a broker connection for a one-shot run.
	dispatcher := notificationapp.NewDispatchService(outboxRepo, adapter, nil, appLogger)
	sweep := notificationapp.NewSweepService(billingRepo, outboxRepo, dispatcher, appLogger)

	summary, err := sweep.Run(ctx, notificationapp.SweepConfig{
		UnitName:          cfg.SweepUnitName,
		ClassName:         cfg.SweepClassName,
		OnlyOpen:          cfg.SweepOnlyOpen,
		SendAll:           cfg.SweepSendAll,
		DryRunSend:        cfg.SweepDryRunSend,
		OnlyPendingOutbox: cfg.SweepOnlyPendingOutbox,
		Limit:             cfg.SweepLimit,
		RetryFailed:       cfg.SweepRetryFailed,
		MaxAttempts:       cfg.SweepMaxAttempts,
		MoveToDLQOnMax:    cfg.SweepMoveToDLQOnMax,
	})
	if err != nil {
		appLogger.Error("Sweep failed", "error", err)
		os.Exit(1)
	}

	appLogger.Info("Sweep summary",
		"total_candidates", summary.TotalCandidates,
		"sent", summary.Sent,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"dry_run", summary.DryRun)
}
