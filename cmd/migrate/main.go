package main

import (
	"chalet/config"
	"chalet/helper"
	"chalet/shared/logger"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

const (
	argLength = 2
)

func main() {
	logger.InitLogger()

	if len(os.Args) < argLength {
		log.Fatal().Msg("Migration direction (up/down/drop/step-up/force/version) is required")
	}

	cfg := config.Get()

	var err error

	switch os.Args[1] {
	case "up":
		err = helper.Up(cfg)
	case "down":
		err = helper.Down(cfg)
	case "drop":
		err = helper.Drop(cfg)
	case "step-up":
		err = helper.StepUp(cfg)
	case "version":
		err = helper.Version(cfg)
	case "force":
		if len(os.Args) <= argLength {
			log.Fatal().Msg("force needs the version to mark as clean")
		}

		version, convErr := strconv.Atoi(os.Args[2])
		if convErr != nil {
			log.Fatal().Err(convErr).Msg("version must be a number")
		}

		err = helper.Force(cfg, version)
	default:
		log.Fatal().Msg("Invalid direction. Use 'up', 'down', 'drop', 'step-up', 'force <version>' or 'version'")
	}

	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
