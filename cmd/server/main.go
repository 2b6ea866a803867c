package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/MegaGrindStone/gemini-web-ui/internal/handlers"
	"github.com/MegaGrindStone/gemini-web-ui/internal/router"
	"github.com/MegaGrindStone/gemini-web-ui/internal/services"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is expected outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Getenv, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run loads the configuration and serves the chat application until ctx is done. Configuration errors
// are returned before any listener is opened.
func run(ctx context.Context, getenv func(string) string, logOut io.Writer) error {
	cfg, err := loadConfig(getenv)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel}))

	gemini, err := services.NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.SystemPrompt, cfg.Generation, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := gemini.Close(); err != nil {
			logger.Error("Failed to close gemini client", slog.String("err", err.Error()))
		}
	}()

	m, err := handlers.NewMain(gemini, cfg.page(), logger)
	if err != nil {
		return fmt.Errorf("error creating handlers: %w", err)
	}

	creds := cfg.credentials()
	h, err := router.New(m, creds, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Server starting",
			slog.String("addr", srv.Addr),
			slog.String("model", gemini.Model()),
			slog.Bool("auth", creds != nil))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Start shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Open streams get until the deadline to finish before connections are cut
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String("err", err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String("err", err.Error()))
			}
		}
	}

	return nil
}
