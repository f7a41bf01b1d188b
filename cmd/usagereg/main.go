package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/usagereg/usagereg/cmd/usagereg/cli"
	"github.com/usagereg/usagereg/internal/api"
	"github.com/usagereg/usagereg/internal/app"
	"github.com/usagereg/usagereg/internal/auth"
	"github.com/usagereg/usagereg/internal/observability"
	"github.com/usagereg/usagereg/internal/platform/db"
	"github.com/usagereg/usagereg/internal/synchronizer"
	"github.com/usagereg/usagereg/jobs"
	"github.com/usagereg/usagereg/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 {
		os.Exit(runCommand(ctx, cfg, logger, os.Args[1], os.Args[2:]))
	}
	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("usagereg", slog.Any("error", err))
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, name string, args []string) int {
	switch name {
	case "jobs":
		jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer func() {
			if err := jobsCLI.Close(); err != nil {
				logger.Warn("jobs cli close", slog.Any("error", err))
			}
		}()
		return cli.RunJobs(ctx, jobsCLI.Runner(), args, os.Stdout, os.Stderr)
	case "migrate":
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGConnectTimeout)
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			return 1
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			return 1
		}
		logger.Info("schema up to date")
		return 0
	}
	fmt.Fprintf(os.Stderr, "unknown command %q (want jobs or migrate)\n", name)
	return 2
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	rt, err := app.Bootstrap(ctx, cfg, logger, app.RuntimeOptions{Recorder: metrics})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("runtime close", slog.Any("error", err))
		}
	}()

	state, err := rt.Sync.Start(ctx)
	if err != nil {
		return fmt.Errorf("start synchronizer: %w", err)
	}
	if state == synchronizer.StateDegraded {
		logger.Warn("serving sample data", slog.Any("reason", rt.Sync.DegradedReason()))
	} else {
		logger.Info("synchronizer started", slog.String("state", string(state)))
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	apiOpts := api.Options{
		Logger:      logger,
		Sync:        rt.Sync,
		EmailDomain: cfg.EmailDomain,
	}
	if cfg.ImportAsync {
		queue := jobs.NewClient(redisOpts)
		defer func() {
			if err := queue.Close(); err != nil {
				logger.Warn("queue close", slog.Any("error", err))
			}
		}()
		apiOpts.Imports = queue
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Sync:          rt.Sync,
		AuthHandler:   auth.NewHandler(logger, rt.Auth),
		APIHandler:    api.NewHandler(apiOpts),
		ReportHandler: report.NewHandler(report.NewClient(cfg.GotenbergURL), rt.Sync, logger),
		JobHandler:    jobs.NewHandler(inspector, logger),
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}
