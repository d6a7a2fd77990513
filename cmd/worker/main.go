package main

import (
	"chalet/config"
	"chalet/di"
	"chalet/shared/logger"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	if !cfg.Kafka.Enable {
		log.Fatal().Msg("kafka is disabled, nothing to consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := di.InitializeWorker()

	runErr := worker.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if err := worker.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close kafka client")
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("payment moderation consumer stopped")
		os.Exit(1)
	}

	log.Info().Msg("worker stopped")
}
