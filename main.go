package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"haca/internal/app"
	"haca/internal/config"
	"haca/internal/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := utils.InitLogging(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logging: %v", err)
	}
	defer utils.SyncLogging()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		utils.Logger("APP").Errorf("Service stopped: %v", err)
		utils.SyncLogging()
		os.Exit(1)
	}
	utils.Logger("APP").Infof("Shutdown complete")
}
