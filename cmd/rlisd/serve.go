package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"rlis-backend/internal/api"
	"rlis-backend/internal/extract"
	"rlis-backend/internal/logger"
	"rlis-backend/internal/notification"
	"rlis-backend/internal/report"
	"rlis-backend/internal/sheet"
)

func newServe() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	deps := api.Deps{
		Registry:  a.registry,
		Store:     a.store,
		Builder:   report.NewBuilder(cfg.Inventory.Inspector, cfg.Report.DateLayout),
		Renderer:  &report.Renderer{Dir: cfg.Report.TemplateDir},
		Sheet:     sheet.Options{Marker: cfg.Import.HeaderMarker, Window: cfg.Import.ScanRows},
		MaxUpload: int64(cfg.Server.MaxUploadMB) << 20,
	}

	if cfg.Extraction.Endpoint != "" {
		deps.Extractor = extract.NewClient(extract.Config{
			Endpoint: cfg.Extraction.Endpoint,
			APIKey:   cfg.Extraction.APIKey,
			Model:    cfg.Extraction.Model,
			Timeout:  cfg.Extraction.Timeout,
		})
	} else {
		logger.Warnf(ctx, "extraction endpoint not configured, photo extraction disabled")
	}

	if cfg.Push.Enabled() {
		deps.WebPush = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.Push.Workers, a.db, deps.WebPush)
		pool.Start(ctx)
		defer pool.Watch(a.registry)()
	} else {
		logger.Warnf(ctx, "VAPID keys not configured, completion notifications disabled")
	}

	router := api.NewRouter(deps, api.Options{
		RateLimit:   rate.Limit(cfg.Server.RateLimitPerSec),
		Burst:       cfg.Server.RateLimitBurst,
		LimiterIdle: time.Duration(cfg.Server.LimiterIdleMinutes) * time.Minute,
		CacheTTL:    time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof(ctx, "HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Infof(context.Background(), "shutdown signal received, stopping services")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	logger.Infof(context.Background(), "server gracefully stopped")
	return nil
}
