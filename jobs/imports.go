package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/usagereg/usagereg/internal/bulk"
	"github.com/usagereg/usagereg/internal/catalog"
	jobmetrics "github.com/usagereg/usagereg/internal/jobs"
	"github.com/usagereg/usagereg/internal/shared"
)

// Importer runs parsed import batches. The synchronizer satisfies it.
type Importer interface {
	ImportUsers(ctx context.Context, rows []bulk.UserRow) (bulk.Report, error)
	ImportProducts(ctx context.Context, rows []bulk.ProductRow) (bulk.Report, error)
}

// ImportJob processes queued import files.
type ImportJob struct {
	Importer Importer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewImportJob initialises the import handler.
func NewImportJob(importer Importer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ImportJob {
	return &ImportJob{Importer: importer, Logger: logger, Metrics: metrics}
}

// Handle executes one import task. Files that cannot be parsed are not retried.
func (j *ImportJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Importer == nil {
		return errors.New("import: handler not configured")
	}
	var payload ImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("import: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(t.Type())
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := time.Now()
	logger := j.logger().With(slog.String("task", t.Type()), slog.String("file", payload.Filename))
	logger.Info("starting import")

	entity, report, err := j.run(ctx, t.Type(), payload)
	if err != nil {
		logger.Error("import failed", slog.Any("error", err))
		if shared.IsKind(err, shared.KindFileParse) || shared.IsKind(err, shared.KindValidation) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	j.Metrics.AddImportRows(string(entity), "created", report.Created)
	j.Metrics.AddImportRows(string(entity), "skipped", report.Skipped)
	j.Metrics.AddImportRows(string(entity), "failed", report.ErrorCount)
	for _, rowErr := range report.Errors {
		logger.Warn("import row rejected", slog.Int("row", rowErr.Row), slog.String("reason", rowErr.Reason))
	}
	logger.Info("completed import",
		slog.Int("created", report.Created),
		slog.Int("skipped", report.Skipped),
		slog.Int("errors", report.ErrorCount),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *ImportJob) run(ctx context.Context, taskType string, payload ImportPayload) (catalog.Entity, bulk.Report, error) {
	switch taskType {
	case TaskImportUsers:
		rows, err := bulk.ParseUsers(payload.Filename, bytes.NewReader(payload.Data))
		if err != nil {
			return catalog.EntityUsers, bulk.Report{}, err
		}
		report, err := j.Importer.ImportUsers(ctx, rows)
		return catalog.EntityUsers, report, err
	case TaskImportProducts:
		rows, err := bulk.ParseProducts(bytes.NewReader(payload.Data))
		if err != nil {
			return catalog.EntityProducts, bulk.Report{}, err
		}
		report, err := j.Importer.ImportProducts(ctx, rows)
		return catalog.EntityProducts, report, err
	}
	return "", bulk.Report{}, fmt.Errorf("import: unknown task %q: %w", taskType, asynq.SkipRetry)
}

func (j *ImportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
