package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finitefield.org/storefront/internal/catalog"
	"finitefield.org/storefront/internal/config"
	"finitefield.org/storefront/internal/events"
	"finitefield.org/storefront/internal/observability"
	"finitefield.org/storefront/internal/order"
)

var (
	templatesDir = "templates"
	publicDir    = "public"
	// devMode is set in main() from STOREFRONT_DEV; templates are reparsed per request.
	devMode   bool
	tmplCache *template.Template
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var envFile string
	flag.StringVar(&envFile, "env-file", ".env", "optional .env file with STOREFRONT_* overrides")
	flag.Parse()

	cfg, err := config.Load(config.WithEnvFile(envFile))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	templatesDir = cfg.Paths.Templates
	publicDir = cfg.Paths.Public
	devMode = cfg.DevMode

	if !devMode {
		// Parse templates once in production
		tc, err := parseTemplates()
		if err != nil {
			return fmt.Errorf("parse templates: %w", err)
		}
		tmplCache = tc
	}

	cat, err := catalog.Load(cfg.Paths.Catalog)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	var notifier order.Notifier = order.NopNotifier{}
	if cfg.Events.AMQPURL != "" {
		pub, err := events.Dial(cfg.Events.AMQPURL, cfg.Events.Exchange, cfg.Events.RoutingKey)
		if err != nil {
			return fmt.Errorf("connect order notifications: %w", err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("close order notifications", zap.Error(err))
			}
		}()
		notifier = pub
		logger.Info("order notifications enabled",
			zap.String("exchange", cfg.Events.Exchange),
			zap.String("routing_key", cfg.Events.RoutingKey),
		)
	}

	a := newApp(cfg, cat, logger, notifier)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening",
			zap.String("addr", srv.Addr),
			zap.Bool("dev_mode", devMode),
			zap.Int("products", len(cat.Products)),
			zap.Bool("orders_enabled", a.orders != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
