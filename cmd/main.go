/*
Package main is the entry point for the Plaza relay.

It loads configuration, initializes the global logger, opens the database pool (applying
migrations), wires the relay hub to the HTTP router, and serves until an interrupt (SIGINT,
SIGTERM) arrives. Shutdown stops accepting requests, closes every live WebSocket session and
then releases the pool.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"plaza/internal/app/db"
	"plaza/internal/app/relay"
	"plaza/internal/app/resident"
	"plaza/internal/configs"
	"plaza/internal/handler"
	"plaza/internal/pkg/auth/jwt"
	"plaza/internal/pkg/logx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Dur("store_timeout", cfg.StoreTimeout).
		Int("send_queue_size", cfg.SendQueueSize).
		Bool("welcome_message", cfg.WelcomeMessage != "").
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer pool.Close()

	queries := db.New(pool)
	decoder := jwt.NewDecoder(cfg.JWTSecret)

	hub := relay.NewHub(decoder, resident.NewVerifier(queries), queries, relay.HubConfig{
		WelcomeMessage: cfg.WelcomeMessage,
		SendQueueSize:  cfg.SendQueueSize,
		StoreTimeout:   cfg.StoreTimeout,
	})

	router := handler.Router(&handler.AppDeps{
		Hub:     hub,
		Config:  cfg,
		Decoder: decoder,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logx.Info(fmt.Sprintf("Plaza relay starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logx.Info("Received shutdown signal. Starting graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Upgraded connections are hijacked, so the hub closes them itself.
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}

		if err := hub.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("hub shutdown: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logx.Error(err, "Server stopped with error")
		return
	}

	logx.Info("Server gracefully stopped.")
}
