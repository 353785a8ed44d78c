package main

import (
	"context"
	"os"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/app"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

func main() {
	if config.HelpRequested() {
		config.PrintHelp()
		return
	}

	ctx := context.Background()
	log := logger.InitLogger("dispatch", "INFO")

	cfg, err := config.NewConfig()
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		config.PrintHelp()
		os.Exit(1)
	}

	log = logger.InitLogger(cfg.Mode.String(), cfg.Log.Level)

	// Creating application
	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	// Running the application
	if err = application.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		os.Exit(1)
	}
}
