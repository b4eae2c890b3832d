package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"careercoach/internal/cli"
	"careercoach/internal/config"
	"careercoach/internal/errors"

	"github.com/joho/godotenv"
)

func main() {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A .env file is optional; real environment variables win
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Starting careercoach application",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"ai_provider", cfg.AI.Provider)

	// Execute command with cancellable context
	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Application execution failed")
		os.Exit(1)
	}
}
