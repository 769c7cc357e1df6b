package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront/config"
	"storefront/internal/app"
	"storefront/internal/broadcast"
	"storefront/internal/clients"
	"storefront/internal/handlers"
	"storefront/internal/proxy"
	"storefront/internal/storage"
)

type signalChannel interface {
	broadcast.Channel
	Close() error
}

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig(logger)
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	if logLevel < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Info("Starting storefront...")
	logger.Infof("Remote API: %s", cfg.APIURL)

	var signals signalChannel
	if cfg.RabbitMQURL != "" {
		rc, err := broadcast.DialRabbit(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Fatalf("FATAL: Failed to connect to RabbitMQ: %v", err)
		}
		signals = rc
		logger.Info("Cross-tab signals relayed through RabbitMQ")
	} else {
		signals = broadcast.NewHub(logger)
		logger.Info("Cross-tab signals kept in-process")
	}

	uploads, err := proxy.NewReverseProxy(cfg.APIURL, "", logger)
	if err != nil {
		logger.Fatalf("FATAL: Failed to create uploads proxy: %v", err)
	}

	registry := app.NewRegistry(app.Deps{
		AuthClient: clients.NewAuthHTTPClient(cfg.APIURL, cfg.RequestTimeout, logger),
		Channel:    signals,
		Profiles:   storage.NewProfiles(),
		Log:        logger,
	}, cfg.TabIdleTTL)

	router := handlers.NewRouter(handlers.RouterDeps{
		Registry: registry,
		Menu:     clients.NewMenuGraphQLClient(cfg.APIURL, cfg.RequestTimeout, logger),
		Uploads:  uploads,
		Cookies: storage.CookieOptions{
			Path:     "/",
			Domain:   cfg.CookieDomain,
			Secure:   cfg.CookieSecure,
			HTTPOnly: true,
		},
		Timeout: cfg.RequestTimeout,
		Log:     logger,
	})

	// No WriteTimeout: /api/events holds its response open.
	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go registry.RunJanitor(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Storefront listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.Errorf("Failed to start storefront: %v", err)
		_ = signals.Close()
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Closing the channel first ends open event streams.
	if err := signals.Close(); err != nil {
		logger.Warnf("Signal channel close error: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Graceful shutdown error: %v", err)
	}
}
