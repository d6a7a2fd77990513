package main

import (
	"chalet/config"
	"chalet/di"
	"chalet/helper"
	"chalet/shared/logger"

	"github.com/rs/zerolog/log"
)

//go:generate go run github.com/swaggo/swag/cmd/swag init -g cmd/app/main.go -d ../../ -o ../../docs --parseInternal

// @title Chalet API
// @version 1.0
// @description Property rental bookings, payments and guest check-in.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	if cfg.DB.Postgres.AutoMigrate {
		if err := helper.Up(cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	http := di.InitializeService()
	http.Serve()
}
