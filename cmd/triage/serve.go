package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RomanNihal/HackTheAI-FInal/internal/handler"
	"github.com/RomanNihal/HackTheAI-FInal/internal/notifier"
	"github.com/RomanNihal/HackTheAI-FInal/internal/repository"
	"github.com/RomanNihal/HackTheAI-FInal/internal/server"
	"github.com/RomanNihal/HackTheAI-FInal/internal/service"
	"github.com/RomanNihal/HackTheAI-FInal/internal/storage"
	"github.com/RomanNihal/HackTheAI-FInal/internal/triage_client"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Apply pending migrations, then serve the HTTP API until SIGINT or SIGTERM.`,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting Smart Triage Backend",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("triage_url", cfg.Triage.URL))

	db, err := repository.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Refuse to serve on a schema that did not migrate cleanly.
	if err := repository.MigrateDB(db, logger); err != nil {
		return err
	}

	var images storage.ImageStore
	if cfg.Storage.Enabled {
		store, err := storage.NewMinioStore(cfg.Storage, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize image storage: %w", err)
		}
		images = store
	}

	var ticketNotifier service.TicketNotifier
	bot, err := notifier.NewTelegramNotifier(cfg.Notifier, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram notifier, continuing without it", zap.Error(err))
	} else if bot != nil {
		ticketNotifier = bot
	}

	triageClient := triage_client.NewClient(cfg.Triage.URL, cfg.Triage.Timeout(), logger)
	var triagePinger handler.Pinger
	if cfg.Triage.HealthCheck {
		triagePinger = handler.PingerFunc(triageClient.Ping)
	}

	userRepo := repository.NewUserRepository(db, logger)
	ticketRepo := repository.NewTicketRepository(db, logger)

	srv := server.NewServer(cfg, server.Dependencies{
		DB:      db,
		Triage:  triagePinger,
		Users:   service.NewUserService(userRepo, logger),
		Tickets: service.NewTicketService(userRepo, ticketRepo, triageClient, images, ticketNotifier, logger),
	}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
