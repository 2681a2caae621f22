package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"warikanbot/internal/api"
	"warikanbot/internal/commands"
	"warikanbot/internal/config"
	"warikanbot/internal/db"
	"warikanbot/internal/line"
	"warikanbot/internal/logger"
	"warikanbot/internal/pending"
)

func main() {
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Platform client and command wiring
	lineClient := line.NewClient(cfg.ChannelAccessToken)
	handler := commands.NewHandler(database, pending.NewStore(), lineClient, log)

	// Start API server
	apiServer := api.New(cfg, database, handler, lineClient, log)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Errorf("API server error: %v", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
}
