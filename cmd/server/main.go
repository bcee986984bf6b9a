package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"screener/internal/evaluation"
	"screener/internal/evaluation/handler"
	evalmetrics "screener/internal/evaluation/metrics"
	"screener/internal/filestore"
	"screener/internal/platform/config"
	"screener/internal/platform/httpserver"
	"screener/internal/platform/logger"
	httpmetrics "screener/internal/platform/metrics"
	"screener/pkg/platform/audit/publishers/compliance"
	"screener/pkg/platform/audit/publishers/security"
	"screener/pkg/platform/middleware/metadata"
	"screener/pkg/platform/middleware/requestid"
	"screener/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "screener: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := openRecordStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer records.close()

	fpCache, closeCache, err := openFingerprintCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	auditDeps, err := openAudit(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer auditDeps.close()

	publisher := compliance.New(auditDeps.store,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics()),
	)
	defer publisher.Close()

	signals := security.New(auditDeps.store,
		security.WithLogger(log),
		security.WithMetrics(security.NewMetrics()),
	)

	files, err := filestore.New(cfg.Upload.Dir)
	if err != nil {
		return err
	}

	svc, err := evaluation.New(records.store,
		evaluation.WithLogger(log),
		evaluation.WithMetrics(evalmetrics.New()),
		evaluation.WithAuditPublisher(publisher),
		evaluation.WithSecurityPublisher(signals),
		evaluation.WithFingerprintCache(fpCache),
	)
	if err != nil {
		return fmt.Errorf("create evaluation service: %w", err)
	}

	handlerOpts := []handler.Option{
		handler.WithMaxUploadBytes(cfg.Upload.MaxBytes),
		handler.WithReadinessCheck("record_store", records.ping),
	}
	if auditDeps.ping != nil {
		handlerOpts = append(handlerOpts, handler.WithReadinessCheck("audit_outbox", auditDeps.ping))
	}
	h := handler.New(svc, files, log, handlerOpts...)

	router := chi.NewRouter()
	router.Use(
		requestid.Middleware,
		metadata.ClientMetadata,
		requesttime.Middleware,
		httpmetrics.New().Middleware,
	)
	h.Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting screener",
			"addr", cfg.Addr,
			"store_backend", cfg.Storage.Backend,
			"upload_dir", files.Dir(),
			"shared_cache", cfg.Redis.URL != "",
			"outbox_relay", auditDeps.relay != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return signals.Run(gctx)
	})
	if auditDeps.relay != nil {
		g.Go(func() error {
			return auditDeps.relay.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", slog.Any("error", err))
		return err
	}
	log.Info("server stopped")
	return nil
}
