package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/usagereg/usagereg/internal/bulk"
	"github.com/usagereg/usagereg/internal/catalog"
	jobmetrics "github.com/usagereg/usagereg/internal/jobs"
	"github.com/usagereg/usagereg/internal/shared"
	_ "github.com/usagereg/usagereg/internal/testing/guard"
)

type fakeImporter struct {
	users    []bulk.UserRow
	products []bulk.ProductRow
	err      error
}

func (f *fakeImporter) ImportUsers(_ context.Context, rows []bulk.UserRow) (bulk.Report, error) {
	f.users = rows
	return bulk.Report{Created: len(rows)}, f.err
}

func (f *fakeImporter) ImportProducts(_ context.Context, rows []bulk.ProductRow) (bulk.Report, error) {
	f.products = rows
	report := bulk.Report{}
	for _, row := range rows {
		if row.Name == "" {
			report.Fail(row.Row, "Verplicht veld ontbreekt")
			continue
		}
		report.Created++
	}
	return report, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestImportTaskTypes(t *testing.T) {
	task, err := NewImportTask(catalog.EntityProducts, "p.csv", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, TaskImportProducts, task.Type())

	_, err = NewImportTask(catalog.EntityLocations, "l.csv", nil)
	assert.Error(t, err)
}

func TestImportJobRunsProductsAndCountsRows(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	importer := &fakeImporter{}
	job := NewImportJob(importer, discard(), metrics)

	task, err := NewImportTask(catalog.EntityProducts, "p.csv", []byte("Productnaam,Categorie\nA,X\n,Y\nB,\n"))
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, importer.products, 3)
	assert.Equal(t, "A", importer.products[0].Name)

	assert.Equal(t, map[string]float64{"created": 2, "failed": 1}, importRows(t, registry, "products"))
}

func importRows(t *testing.T, registry *prometheus.Registry, entity string) map[string]float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	out := make(map[string]float64)
	for _, family := range families {
		if family.GetName() != "usagereg_import_rows_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := make(map[string]string)
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["entity"] == entity {
				out[labels["outcome"]] = m.GetCounter().GetValue()
			}
		}
	}
	return out
}

func TestImportJobSkipsRetryOnUnreadableFile(t *testing.T) {
	job := NewImportJob(&fakeImporter{}, discard(), nil)
	task, err := NewImportTask(catalog.EntityProducts, "p.csv", []byte("Naam\nA\n"))
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestImportJobRetriesStoreFailures(t *testing.T) {
	importer := &fakeImporter{err: shared.E(shared.KindConnectivity, "import", "users", shared.ErrNotConfigured)}
	job := NewImportJob(importer, discard(), nil)
	task, err := NewImportTask(catalog.EntityUsers, "u.csv", []byte("Naam,Email,Wachtwoord\nJan,jan@x.be,geheim1\n"))
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	require.Len(t, importer.users, 1)
}

type regSource []catalog.Registration

func (s regSource) Registrations() []catalog.Registration { return s }

func TestExportJobWritesDailyWorkbook(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	job := NewExportJob(regSource(catalog.DefaultSeed().Registrations), dir, discard(), nil)
	job.clock = func() time.Time { return time.Date(2025, 6, 16, 2, 0, 0, 0, time.UTC) }

	task, err := NewExportTask("nightly")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	path := filepath.Join(dir, "registraties-2025-06-16.xlsx")
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()
	rows, err := f.GetRows("Registraties")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Gebruiker", rows[0][2])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestExportJobNeedsDirectory(t *testing.T) {
	job := NewExportJob(regSource(nil), "", discard(), nil)
	task, err := NewExportTask("")
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
}

type fakeInspector struct {
	tasks map[string]*asynq.TaskInfo
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return &asynq.QueueInfo{Queue: queue, Pending: len(f.tasks)}, nil
}

func (f fakeInspector) GetTaskInfo(_, id string) (*asynq.TaskInfo, error) {
	if info, ok := f.tasks[id]; ok {
		return info, nil
	}
	return nil, asynq.ErrTaskNotFound
}

func TestHandlerReportsQueuesAndImportState(t *testing.T) {
	inspector := fakeInspector{tasks: map[string]*asynq.TaskInfo{
		"job-1": {ID: "job-1", Type: TaskImportUsers, State: asynq.TaskStateRetry, Retried: 1, LastErr: "offline"},
	}}
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(inspector, discard()).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var queues []queueView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &queues))
	require.Len(t, queues, 2)
	assert.Equal(t, QueueImports, queues[0].Queue)
	assert.Equal(t, 1, queues[0].Pending)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/imports/job-1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var view taskView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, "retry", view.State)
	assert.Equal(t, "offline", view.Error)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/imports/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"pending":0`)
}
