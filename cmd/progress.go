package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"statsync/internal/api"
	"statsync/internal/model"
	"statsync/internal/progress"
)

// errJobFailed makes the process exit non-zero when a followed job fails.
var errJobFailed = errors.New("job failed")

// followJob prints progress lines for job until it finishes or the user
// interrupts. It returns the last known snapshot.
func followJob(client *api.Client, job model.SyncJob) (model.SyncJob, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var last string
	t := progress.NewTracker(client, job, progress.Callbacks{
		OnUpdate: func(j model.SyncJob) {
			if line := progressLine(j); line != last {
				fmt.Println(line)
				last = line
			}
		},
	})
	t.Start(ctx)

	select {
	case <-t.Done():
	case <-ctx.Done():
		t.Stop()
		<-t.Done()
		fmt.Println("detached; the job keeps running on the server")
	}

	final := t.Job()
	if final.IsTerminal() {
		printResult(final)
	}
	if final.Status == model.JobStatusFailed {
		return final, errJobFailed
	}
	return final, nil
}

func progressLine(j model.SyncJob) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-9s %3d%%", j.DisplayType(), j.Status, j.ProgressPercentage)
	if j.TotalItems != nil {
		fmt.Fprintf(&b, " (%d/%d)", j.ProcessedItems, *j.TotalItems)
	}
	if j.CurrentStep != "" {
		fmt.Fprintf(&b, " %s", j.CurrentStep)
	}
	return b.String()
}

func printResult(j model.SyncJob) {
	switch j.Status {
	case model.JobStatusCompleted:
		fmt.Printf("✓ %s job %d completed: %d created, %d updated",
			j.DisplayType(), j.ID, j.RecordsCreated, j.RecordsUpdated)
	case model.JobStatusFailed:
		msg := j.ErrorMessage
		if msg == "" {
			msg = "unknown error"
		}
		fmt.Printf("✗ %s job %d failed: %s", j.DisplayType(), j.ID, msg)
	default:
		fmt.Printf("- %s job %d %s", j.DisplayType(), j.ID, strings.ToLower(string(j.Status)))
	}
	if j.DurationSeconds != nil {
		fmt.Printf(" in %ds", *j.DurationSeconds)
	}
	fmt.Println()
}

func seasonLabel(season *int) string {
	if season == nil {
		return "-"
	}
	return fmt.Sprint(*season)
}
