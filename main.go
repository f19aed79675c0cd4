package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"freshharvest/internal/app"
	"freshharvest/internal/config"
	"freshharvest/internal/logging"
	"freshharvest/internal/services"
	"freshharvest/pkg/rabbitmq"

	"github.com/rs/zerolog"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	// --- Storage ---
	repos, closeDB, err := app.OpenRepositories(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer func() {
		if err := closeDB(); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}()

	// --- RabbitMQ (optional) ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize RabbitMQ client")
		}
		defer mqClient.Close()
		publisher = mqClient

		consumerLogger := logger.With().Str("component", "order-events").Logger()
		if err := mqClient.ConsumeOrderEvents(rabbitmq.LogOrderEvents(consumerLogger)); err != nil {
			logger.Error().Err(err).Msg("failed to start RabbitMQ consumer")
		}
	} else {
		logger.Info().Msg("RABBITMQ_URL not set, order events disabled")
	}

	// --- Application ---
	application := app.New(cfg, repos, publisher, logger)
	if err := application.SeedAdmin(context.Background(), cfg); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed admin account")
	}

	// --- Start HTTP Server ---
	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.AppPort).Msg("starting server")
		serverErr <- application.Fiber.Listen(cfg.AppPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down server")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("server stopped unexpectedly")
		}
	}

	if err := application.Fiber.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}
	logger.Info().Msg("server gracefully stopped")
}
