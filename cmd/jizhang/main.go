package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"jizhang/internal/config"
	"jizhang/internal/events"
	apphttp "jizhang/internal/http"
	applog "jizhang/internal/log"
	"jizhang/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	hub := events.NewHub()

	// The broker is optional: without it the app still works, only
	// cross-instance refresh is lost.
	var publisher apphttp.ExpensePublisher
	var amqpClient *events.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, running without change notifications", "error", err)
		} else {
			publisher = amqpClient
			defer amqpClient.Close()
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, repo, hub, apphttp.Options{
		SecureCookie:    cfg.SecureCookie,
		SessionDuration: cfg.SessionDuration,
		Publisher:       publisher,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 0 // the event stream stays open indefinitely
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Bridge broker deliveries into the in-process hub so open event
	// streams see changes made by other instances.
	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeExpenseChanges(ctx, func(*events.ExpenseChangedMessage) error {
				hub.Broadcast()
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	// Periodic session sweep
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := repo.CleanExpiredSessions(ctx)
				if err != nil {
					logger.Error("Session sweep failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("Expired sessions removed", "count", n)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
