package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/usagereg/usagereg/internal/bulk"
	"github.com/usagereg/usagereg/internal/catalog"
	jobmetrics "github.com/usagereg/usagereg/internal/jobs"
)

// RegistrationSource lists the usage history to export.
type RegistrationSource interface {
	Registrations() []catalog.Registration
}

// ExportJob writes the registrations workbook into a directory.
type ExportJob struct {
	Source  RegistrationSource
	Dir     string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewExportJob initialises the export handler.
func NewExportJob(source RegistrationSource, dir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExportJob {
	return &ExportJob{
		Source:  source,
		Dir:     dir,
		Logger:  logger,
		Metrics: metrics,
		clock:   time.Now,
	}
}

// Handle writes registraties-<date>.xlsx. An existing file for the same day
// is replaced.
func (j *ExportJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Source == nil || j.Dir == "" {
		return errors.New("export: handler not configured")
	}
	tracker := j.Metrics.Track(TaskExportRegistrations)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	path, count, err := j.Export(ctx)
	if err != nil {
		j.logger().Error("export failed", slog.Any("error", err))
		return err
	}
	j.logger().Info("exported registrations", slog.String("path", path), slog.Int("rows", count))
	return nil
}

// Export writes the workbook and returns its path and row count.
func (j *ExportJob) Export(ctx context.Context) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	regs := j.Source.Registrations()
	data, err := bulk.ExportRegistrations(regs)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("export: create dir: %w", err)
	}
	now := time.Now
	if j.clock != nil {
		now = j.clock
	}
	path := filepath.Join(j.Dir, "registraties-"+now().Format(catalog.DateLayout)+".xlsx")
	tmp, err := os.CreateTemp(j.Dir, ".registraties-*.xlsx")
	if err != nil {
		return "", 0, fmt.Errorf("export: temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", 0, fmt.Errorf("export: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("export: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, fmt.Errorf("export: rename: %w", err)
	}
	return path, len(regs), nil
}

func (j *ExportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
