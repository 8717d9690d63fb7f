package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"minisaas.app/cloud/handlers"
	"minisaas.app/cloud/internal/config"
	"minisaas.app/cloud/internal/identity"
	"minisaas.app/cloud/internal/logger"
	"minisaas.app/cloud/internal/notify"
	"minisaas.app/cloud/internal/payments"
	"minisaas.app/cloud/internal/ratelimit"
	"minisaas.app/cloud/storage"
)

var version = "dev"

func main() {
	if versionBytes, err := os.ReadFile("VERSION"); err == nil {
		version = strings.TrimSpace(string(versionBytes))
	}

	godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		logger.Error("Invalid configuration", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Release:          version,
			TracesSampleRate: 1.0,
		}); err != nil {
			logger.Error("Sentry initialization failed", map[string]interface{}{
				"error": err.Error(),
			})
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to open database", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	defer store.Close()

	sink := notify.NewSink(notify.Config{
		URL:    cfg.NotifyWebhookURL,
		Secret: cfg.NotifyWebhookSecret,
	})

	server := handlers.NewHTTPServer(handlers.Config{
		Storage:      store,
		Identity:     identity.NewClient(cfg.IdentityURL, cfg.IdentityAPIKey, cfg.IdentityJWTSecret),
		Payments:     payments.NewClient(cfg.StripeSecret, cfg.StripeWebhookSecret),
		Notifier:     sink,
		NotifySecret: cfg.NotifyWebhookSecret,
		Version:      version,
		AuthLimiter:  ratelimit.New(10, time.Minute),
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API starting", map[string]interface{}{
			"version": version,
			"port":    cfg.Port,
		})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", map[string]interface{}{
				"error": err.Error(),
			})
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Drain queued notifications before exit.
	sink.Close()

	delivered, failed, dropped := sink.Stats()
	logger.Info("Notification sink drained", map[string]interface{}{
		"delivered": delivered,
		"failed":    failed,
		"dropped":   dropped,
	})
}
