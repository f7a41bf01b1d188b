package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/usagereg/usagereg/internal/testing/guard"
	"github.com/usagereg/usagereg/jobs"
)

type stubRunner struct {
	triggered string
	stats     []QueueStats
	err       error
}

func (s *stubRunner) Trigger(ctx context.Context, name string) (TaskRef, error) {
	if s.err != nil {
		return TaskRef{}, s.err
	}
	s.triggered = name
	return TaskRef{ID: "t-1", Queue: jobs.QueueDefault, Type: name}, nil
}

func (s *stubRunner) InspectQueue(ctx context.Context) ([]QueueStats, error) {
	return s.stats, s.err
}

func (s *stubRunner) ListScheduled(ctx context.Context, size int) ([]TaskRef, error) {
	return nil, s.err
}

func TestRunJobsTrigger(t *testing.T) {
	runner := &stubRunner{}
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	code := RunJobs(context.Background(), runner, []string{"trigger", jobs.TaskExportRegistrations}, stdout, stderr)
	require.Equal(t, 0, code)
	require.Equal(t, jobs.TaskExportRegistrations, runner.triggered)
	require.Contains(t, stdout.String(), "enqueued export:registrations as t-1 on default")
	require.Empty(t, stderr.String())
}

func TestRunJobsStatsTable(t *testing.T) {
	runner := &stubRunner{stats: []QueueStats{
		{Queue: jobs.QueueImports, Pending: 2, Retry: 1},
		{Queue: jobs.QueueDefault},
	}}
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	code := RunJobs(context.Background(), runner, []string{"stats"}, stdout, stderr)
	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), "QUEUE")
	require.Contains(t, stdout.String(), "imports")
	require.Contains(t, stdout.String(), "default")
}

func TestRunJobsReportsErrors(t *testing.T) {
	runner := &stubRunner{err: errors.New("redis down")}
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	require.Equal(t, 1, RunJobs(context.Background(), runner, []string{"scheduled"}, stdout, stderr))
	require.Contains(t, stderr.String(), "redis down")
}

func TestRunJobsUsage(t *testing.T) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	require.Equal(t, 2, RunJobs(context.Background(), &stubRunner{}, nil, stdout, stderr))
	require.Equal(t, 2, RunJobs(context.Background(), &stubRunner{}, []string{"trigger"}, stdout, stderr))
	require.Equal(t, 2, RunJobs(context.Background(), &stubRunner{}, []string{"purge"}, stdout, stderr))
	require.Contains(t, stderr.String(), "usage:")
}

func TestTriggerRejectsUnknownAndImportJobs(t *testing.T) {
	c, err := NewJobsCLI("127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Trigger(context.Background(), "analytics:warmup")
	require.ErrorContains(t, err, "unsupported job")

	_, err = c.Trigger(context.Background(), jobs.TaskImportUsers)
	require.ErrorContains(t, err, "needs a file")
}

func TestNilJobsCLI(t *testing.T) {
	var c *JobsCLI
	_, err := c.Trigger(context.Background(), jobs.TaskExportRegistrations)
	require.Error(t, err)
	_, err = c.InspectQueue(context.Background())
	require.Error(t, err)
	_, err = c.ListScheduled(context.Background(), 0)
	require.Error(t, err)

	_, err = NewJobsCLI("")
	require.Error(t, err)
}
