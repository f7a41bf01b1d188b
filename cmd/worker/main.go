package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/usagereg/usagereg/internal/app"
	"github.com/usagereg/usagereg/internal/observability"
	"github.com/usagereg/usagereg/internal/synchronizer"
	"github.com/usagereg/usagereg/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))
	metrics := observability.NewMetrics()

	rt, err := app.Bootstrap(ctx, cfg, logger, app.RuntimeOptions{Recorder: metrics, RequireStore: true})
	if err != nil {
		logger.Error("bootstrap", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("runtime close", slog.Any("error", err))
		}
	}()

	// Imports against sample data would be lost.
	state, err := rt.Sync.Start(ctx)
	if err == nil && state != synchronizer.StateConnected {
		err = rt.Sync.DegradedReason()
	}
	if err != nil {
		logger.Error("synchronizer not connected", slog.String("state", string(state)), slog.Any("error", err))
		os.Exit(1)
	}

	location, err := cfg.Location()
	if err != nil {
		logger.Error("display timezone", slog.Any("error", err))
		os.Exit(1)
	}

	importJob := jobs.NewImportJob(rt.Sync, logger, metrics.Jobs())
	exportJob := jobs.NewExportJob(rt.Sync, cfg.ExportDir, logger, metrics.Jobs())

	var cron []jobs.CronRegistration
	if cfg.ExportCron != "" {
		nightly, err := jobs.NewExportTask("nightly")
		if err != nil {
			logger.Error("build export task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.ExportCron,
			Task:    nightly,
			Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskImportUsers, Handler: importJob.Handle},
			{Type: jobs.TaskImportProducts, Handler: importJob.Handle},
			{Type: jobs.TaskExportRegistrations, Handler: exportJob.Handle},
		},
		Cron:     cron,
		Location: location,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// The worker exposes only its metrics.
	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.WorkerMetricsAddr != "" {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
