package main

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/api/controller"
	"ctchen222/minimax-tic-tac-toe/internal/api/service"
	"ctchen222/minimax-tic-tac-toe/internal/config"
	"ctchen222/minimax-tic-tac-toe/internal/hub"
	"ctchen222/minimax-tic-tac-toe/internal/logger"
	"ctchen222/minimax-tic-tac-toe/internal/repository"
	"ctchen222/minimax-tic-tac-toe/internal/server"
	"ctchen222/minimax-tic-tac-toe/internal/telemetry"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	serviceName    = "minimax-tic-tac-toe"
	serviceVersion = "0.1.0"
	idleTimeout    = 30 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry before the logger so the log bridge has a provider.
	shutdown, err := telemetry.InitOtel(ctx, telemetry.Config{
		Endpoint:       cfg.OTLPEndpoint,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
	})
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	logger.Init(cfg.LogLevel)

	gameRepo, closeRepo, err := repository.New(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open session store", "store.backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeRepo(); err != nil {
			slog.Error("failed to close session store", "error", err)
		}
	}()

	tokens, err := service.NewTokenIssuer(cfg.TokenSecret, cfg.SessionTTL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create token issuer", "error", err)
		os.Exit(1)
	}
	if cfg.TokenSecret == "" {
		slog.WarnContext(ctx, "TOKEN_SECRET not set, tokens will not survive a restart")
	}

	h := hub.NewHub(gameRepo, nil, hub.Options{
		ThinkDelay:  cfg.BotThinkDelay,
		IdleTimeout: idleTimeout,
	})
	// The hub outlives ctx so in-flight requests can still reach their rooms
	// while the HTTP server drains.
	hubCtx, stopHub := context.WithCancel(context.WithoutCancel(ctx))
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		h.Run(hubCtx)
	}()

	gameController := controller.NewGameController(service.NewGameService(h, tokens))
	srv := server.NewServer(h, tokens, gameController, cfg.StaticDir)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "http server started", "http.addr", cfg.HTTPAddr, "store.backend", cfg.StoreBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		slog.Error("http server failed", "error", err)
		stop()
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	stopHub()
	<-hubDone

	slog.Info("Server exiting")
}
