package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"resource-availability-backend/config"
	"resource-availability-backend/internal/api"
	"resource-availability-backend/internal/datasource"
	"resource-availability-backend/internal/db"
	"resource-availability-backend/internal/feed"
	"resource-availability-backend/internal/metrics"
	"resource-availability-backend/internal/notification"
	"resource-availability-backend/internal/parse"
	"resource-availability-backend/internal/source"
	"resource-availability-backend/internal/store"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "availabilityd",
		Short:         "Resource availability backend",
		Long:          "Serves resource availability rows and keeps them in sync with the upstream resource manager.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("CONFIG_PATH")
			}
			if configPath == "" {
				configPath = "./config/config.yaml" // Default path for local development
			}
			return run(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file (default $CONFIG_PATH or ./config/config.yaml)")
	return cmd
}

func run(configPath string) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).Errorf("failed to load configuration from %s", configPath)
		return err
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("invalid log_level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("configuration loaded successfully from %s", configPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gormDB, err := db.Init(&cfg.Database, logger.WithField("component", "db"))
	if err != nil {
		logger.WithError(err).Error("failed to initialize database")
		return err
	}
	appStore := store.NewGormStore(gormDB, logger.WithField("component", "store"))
	logger.Info("data store initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Push notifications are optional: without VAPID keys nothing is dispatched.
	var webpushOptions *webpush.Options
	var dispatcher feed.Dispatcher
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, logger.WithField("component", "notification"))
		pool.Start(ctx)
		dispatcher = pool
	} else {
		logger.Warn("VAPID keys are not configured; push notifications are disabled")
	}

	client := source.NewClient(cfg.Source, logger.WithField("component", "source"))
	hub := feed.NewHub()
	responseCache := cache.New(cfg.Server.CacheTTL, 2*cfg.Server.CacheTTL)

	if cfg.Feed.PollEnabled {
		poller := feed.NewPoller(cfg.Feed.PollInterval, client, appStore, hub, dispatcher, m, logger.WithField("component", "poller"))
		poller.OnCatalogChange(responseCache.Flush)
		go poller.Run(ctx)
	}

	loc, err := parse.LoadLocation(cfg.Source.Timezone)
	if err != nil {
		logger.WithError(err).Warn("falling back to UTC for webhook timestamps")
		loc = time.UTC
	}

	sessions := datasource.NewRegistry(cfg.Sessions.IdleTimeout, m, logger.WithField("component", "sessions"))
	defer sessions.Close()

	deps := datasource.Deps{
		Pager:   client,
		Pools:   client,
		Hub:     hub,
		Metrics: m,
		Logger:  logger.WithField("component", "datasource"),
	}
	handler := api.NewHandler(appStore, webpushOptions, sessions, deps, responseCache,
		api.Options{
			WebhookToken: cfg.Feed.WebhookToken,
			Location:     loc,
			UpdateBuffer: cfg.Sessions.UpdateBuffer,
		},
		logger.WithField("component", "api"))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, cfg.Server, reg),
		// Cancelling ctx ends open update streams so Shutdown can complete.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("Shutdown signal received, stopping services...")
	case err := <-serverErr:
		logger.WithError(err).Error("HTTP server failed")
		return err
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server Shutdown")
		return err
	}

	logger.Info("Server gracefully stopped")
	return nil
}
