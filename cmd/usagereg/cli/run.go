// Package cli implements the operator subcommands of the usagereg binary.
package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
)

// JobsRunner is the part of JobsCLI the jobs subcommand drives.
type JobsRunner interface {
	Trigger(ctx context.Context, name string) (TaskRef, error)
	InspectQueue(ctx context.Context) ([]QueueStats, error)
	ListScheduled(ctx context.Context, size int) ([]TaskRef, error)
}

// TaskRef identifies a queued task in command output.
type TaskRef struct {
	ID    string
	Queue string
	Type  string
}

// Runner adapts JobsCLI to JobsRunner.
func (c *JobsCLI) Runner() JobsRunner { return jobsRunner{c} }

type jobsRunner struct{ c *JobsCLI }

func (r jobsRunner) Trigger(ctx context.Context, name string) (TaskRef, error) {
	info, err := r.c.Trigger(ctx, name)
	if err != nil {
		return TaskRef{}, err
	}
	return TaskRef{ID: info.ID, Queue: info.Queue, Type: info.Type}, nil
}

func (r jobsRunner) InspectQueue(ctx context.Context) ([]QueueStats, error) {
	return r.c.InspectQueue(ctx)
}

func (r jobsRunner) ListScheduled(ctx context.Context, size int) ([]TaskRef, error) {
	infos, err := r.c.ListScheduled(ctx, size)
	if err != nil {
		return nil, err
	}
	refs := make([]TaskRef, 0, len(infos))
	for _, info := range infos {
		refs = append(refs, TaskRef{ID: info.ID, Queue: info.Queue, Type: info.Type})
	}
	return refs, nil
}

const jobsUsage = "usage: usagereg jobs trigger <task> | stats | scheduled"

// RunJobs executes `usagereg jobs ...` and returns the process exit code.
func RunJobs(ctx context.Context, runner JobsRunner, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, jobsUsage)
		return 2
	}
	switch args[0] {
	case "trigger":
		if len(args) != 2 {
			fmt.Fprintln(stderr, jobsUsage)
			return 2
		}
		ref, err := runner.Trigger(ctx, args[1])
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "enqueued %s as %s on %s\n", ref.Type, ref.ID, ref.Queue)
		return 0
	case "stats":
		stats, err := runner.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
		for _, s := range stats {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
		}
		_ = tw.Flush()
		return 0
	case "scheduled":
		refs, err := runner.ListScheduled(ctx, 20)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		if len(refs) == 0 {
			fmt.Fprintln(stdout, "no scheduled tasks")
			return 0
		}
		for _, ref := range refs {
			fmt.Fprintf(stdout, "%s\t%s\t%s\n", ref.ID, ref.Queue, ref.Type)
		}
		return 0
	}
	fmt.Fprintln(stderr, jobsUsage)
	return 2
}
