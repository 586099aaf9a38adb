package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"redirect_service/internal/auth"
	"redirect_service/internal/checkout"
	"redirect_service/internal/config"
	"redirect_service/internal/http_server/handlers/settings"
	"redirect_service/internal/http_server/router"
	sl "redirect_service/internal/lib/logger/sl"
	"redirect_service/internal/payments/stripe"
	"redirect_service/internal/rabbitmq"
	"redirect_service/internal/storage/postgres"
	"redirect_service/internal/tiers"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting redirect service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	stripeClient := stripe.New(cfg.Stripe.APIBase, cfg.Stripe.SecretKey, cfg.Stripe.Timeout)
	if !stripeClient.Configured() {
		log.Warn("stripe secret key is not set, tiers will be unpriced and checkout disabled")
	}

	tierCache := tiers.NewCache()
	refresher := tiers.NewRefresher(
		log,
		tierCache,
		storage,
		stripeClient,
		cfg.Tiers.RefreshInterval,
		cfg.Tiers.LookupConcurrency,
	)

	var events checkout.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Error("failed to connect rabbitmq", sl.Err(err))
			os.Exit(1)
		}
		defer msgBroker.Close()

		events = msgBroker
	} else {
		log.Info("rabbitmq url is not set, checkout events will not be published")
	}

	saga := checkout.New(log, storage, stripeClient, events, cfg.FrontendHost)

	handler := router.New(log, router.Deps{
		Gate:     auth.NewGate(log, storage),
		Accounts: auth.New(log, storage, storage),
		Storage:  storage,
		Tiers:    tierCache,
		Checkout: saga,
		Settings: settings.Settings{StripePublishableKey: cfg.Stripe.PublishableKey},
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigs {
			if sig == syscall.SIGHUP {
				log.Info("SIGHUP received, refreshing subscription tiers")
				refresher.Trigger()
				continue
			}

			log.Info("Shutdown signal received")
			cancel()
			return
		}
	}()

	go refresher.Run(ctx)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("redirect service stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default: // envProd
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
