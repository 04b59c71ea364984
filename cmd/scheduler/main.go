package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"bizorder-system/config"
	"bizorder-system/internal/database"
	"bizorder-system/internal/scheduler"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := scheduler.NewWorker(db, cfg.Schedule.PollInterval)

	log.Println("Price schedule worker started")
	worker.Run(ctx)
}
