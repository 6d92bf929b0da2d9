package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihttp "github.com/arenafit/backoffice/internal/api/transport/http"
	identityapp "github.com/arenafit/backoffice/internal/identity/app"
	identitypg "github.com/arenafit/backoffice/internal/identity/repository/postgres"
	notificationapp "github.com/arenafit/backoffice/internal/notification/app"
	"github.com/arenafit/backoffice/internal/notification/provider"
	notificationpg "github.com/arenafit/backoffice/internal/notification/repository/postgres"
	"github.com/arenafit/backoffice/internal/platform/config"
	"github.com/arenafit/backoffice/internal/platform/database"
	"github.com/arenafit/backoffice/internal/platform/logger"
	"github.com/arenafit/backoffice/internal/platform/messagebroker"
)

const serviceName = "api_service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("API service starting...", "port", cfg.APIPort)

	dbPool, err := database.NewDBPool(context.Background(), cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL database")

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		// Outcome events are best-effort; the API stays up without NATS.
		appLogger.Warn("Failed to connect to NATS, outcome events disabled", "error", err)
		natsClient = nil
	} else {
		defer natsClient.Close()
		appLogger.Info("Connected to NATS")
	}

	outboxRepo := notificationpg.NewPgOutboxRepository(dbPool)
	userRepo := identitypg.NewPgUserRepository(dbPool)

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

	authService := identityapp.NewAuthService(userRepo, identityapp.AuthConfig{
		JWTSecret:   cfg.JWTSecret,
		TokenExpiry: time.Duration(cfg.JWTExpiryHours) * time.Hour,
	}, appLogger)

	notificationHandler := apihttp.NewNotificationHandler(dispatcher, outboxRepo, appLogger)
	authHandler := apihttp.NewAuthHandler(authService, appLogger)
	router := apihttp.NewRouter(notificationHandler, authHandler, authService, appLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.APIPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quitChan
	appLogger.Info("Shutdown signal received", "signal", receivedSignal.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", "error", err)
	}
	appLogger.Info("API service shut down successfully")
}
