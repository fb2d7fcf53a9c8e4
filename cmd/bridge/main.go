package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/af-inet/PZDiscordEventPublisher/internal/bridge"
	"github.com/af-inet/PZDiscordEventPublisher/internal/discord"
	"github.com/af-inet/PZDiscordEventPublisher/internal/platform/config"
	"github.com/af-inet/PZDiscordEventPublisher/internal/platform/logging"
	"github.com/af-inet/PZDiscordEventPublisher/internal/rcon"
	"github.com/af-inet/PZDiscordEventPublisher/internal/server"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDiscord(ctx context.Context, cfg *config.Config) *discord.Client {
	publisher, err := discord.Connect(ctx, cfg.DiscordToken, cfg.DiscordChannelID)
	if err != nil {
		slog.Error("Failed to connect to Discord", "error", err)
		os.Exit(1)
	}
	return publisher
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Bridge starting",
		"env", cfg.AppEnv,
		"mode", string(cfg.BridgeMode),
		"rcon_address", cfg.RCONAddress(),
		"poll_interval", cfg.PollInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Channel resolution must succeed before any polling begins.
	publisher := setupDiscord(ctx, cfg)

	dialer := rcon.NewDialer(cfg.ConnectTimeout)
	controller := bridge.NewController(cfg, dialer, publisher, clock)
	scheduler := bridge.NewScheduler(controller, clock, cfg.PollInterval)

	// Readiness tolerates a couple of missed intervals plus one cooldown.
	staleAfter := 3*cfg.PollInterval + cfg.FailureCooldown
	srv := server.NewServer(cfg.Port, controller, clock, staleAfter)
	go func() {
		slog.Info("Observability server starting", "port", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Observability server error", "error", err)
		}
	}()

	// Blocks until the termination signal cancels ctx. The current
	// cycle is never interrupted; the scheduler just stops re-arming.
	scheduler.Run(ctx)

	slog.Info("Shutdown signal received, cleaning up...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Observability server shutdown error", "error", err)
	}

	if err := publisher.Close(); err != nil {
		slog.Error("Failed to close Discord session", "error", err)
	}

	slog.Info("Bridge stopped")
}
