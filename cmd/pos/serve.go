package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fjod/go_cart/bakery-pos/internal/cart"
	h "github.com/fjod/go_cart/bakery-pos/internal/http"
	"github.com/fjod/go_cart/bakery-pos/internal/publisher"
	"github.com/fjod/go_cart/bakery-pos/internal/service"
	"github.com/fjod/go_cart/bakery-pos/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the till HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts.configDir, opts.env)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	logger := a.logger

	store, closeStore, err := openSessionStore(ctx, a)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := service.NewSessions(store, a.catalog, logger, cart.WithMaxQuantity(cfg.Catalog.MaxQuantity))
	checkout := service.NewCheckoutService(a.ledger, service.WithLogger(logger))

	var wg sync.WaitGroup
	pollCtx, cancelPoll := context.WithCancel(context.Background())
	defer func() {
		cancelPoll()
		wg.Wait()
	}()
	if cfg.OutboxEnabled() {
		poller := publisher.NewOutboxPoller(a.ledger, logger, cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(pollCtx)
			if err := poller.Close(); err != nil {
				logger.Error("failed to close kafka writer", zap.Error(err))
			}
		}()
		logger.Info("outbox publisher started", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	srv := &http.Server{
		Addr: cfg.App.HTTPAddr,
		Handler: h.NewRouter(h.RouterConfig{
			Catalog:        a.catalog,
			Sessions:       sessions,
			Checkout:       checkout,
			Logger:         logger,
			RequestTimeout: cfg.HTTP.RequestTimeout,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("till starting", zap.String("addr", cfg.App.HTTPAddr), zap.String("ledger", cfg.Ledger.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	// Graceful shutdown
	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}

func openSessionStore(ctx context.Context, a *app) (session.Store, func(), error) {
	cfg := a.cfg
	switch cfg.Session.Store {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return session.NewRedisStore(client, cfg.Session.TTL), func() { client.Close() }, nil
	default:
		store := session.NewMemoryStore(cfg.Session.TTL)
		return store, func() { store.Close() }, nil
	}
}
