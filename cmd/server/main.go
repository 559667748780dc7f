// Package main runs the substrate reference service.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/latticeworks/substrate/internal/app/httpapi"
	"github.com/latticeworks/substrate/internal/config"
	"github.com/latticeworks/substrate/internal/httputil"
	"github.com/latticeworks/substrate/internal/logging"
	"github.com/latticeworks/substrate/internal/middleware"
	"github.com/latticeworks/substrate/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		println("failed to load config:", err.Error())
		os.Exit(1)
	}

	logger := logging.New("substrate", cfg.Log.Level, cfg.Log.Format)

	storeClient, err := store.NewClient(store.Config{
		URL:        cfg.Store.URL,
		ServiceKey: cfg.Store.ServiceKey,
		Timeout:    cfg.Store.Timeout,
	})
	if err != nil {
		logger.WithError(err).Error("failed to create store client")
		os.Exit(1)
	}

	notifier := httputil.NewServiceClient(httputil.ServiceClientConfig{
		BaseURL:    cfg.Notifier.BaseURL,
		ServiceID:  cfg.Notifier.ServiceID,
		SigningKey: []byte(cfg.Notifier.SigningKey),
		Timeout:    cfg.Notifier.Timeout,
	})

	router := httpapi.NewRouter(httpapi.Config{
		Store:          storeClient,
		Notifier:       notifier,
		Policy:         cfg.Retry.Policy(),
		Logger:         logger,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server failed")
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("shutdown failed")
	}
}
