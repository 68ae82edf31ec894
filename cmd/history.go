package cmd

import (
	"fmt"
	"net/http"

	"statsync/internal/model"
	"statsync/internal/repository"

	"github.com/spf13/cobra"
)

var (
	historyN      int
	historyLocal  bool
	historyFailed bool
	historyJob    int64
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recently finished jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyJob > 0 {
			return printJournalRecord(historyJob)
		}

		path := fmt.Sprintf("/history?n=%d", historyN)
		if historyLocal || historyFailed {
			path += "&local=true"
			if historyFailed {
				path += "&failed=true"
			}
			return printJournal(path)
		}

		var jobs []model.SyncJob
		if err := callDaemon(http.MethodGet, path, nil, &jobs); err != nil {
			return err
		}

		if len(jobs) == 0 {
			fmt.Println("no history yet")
			return nil
		}

		for _, j := range jobs {
			fmt.Printf("%s %-6d %-14s %-7s %s\n",
				statusMark(j.Status), j.ID, j.DisplayType(), seasonLabel(j.Season), summary(j))
		}

		return nil
	},
}

func printJournal(path string) error {
	var records []model.JobRecord
	if err := callDaemon(http.MethodGet, path, nil, &records); err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("journal is empty")
		return nil
	}

	for _, r := range records {
		printRecord(r)
	}

	var stats repository.Stats
	if err := callDaemon(http.MethodGet, "/history/stats", nil, &stats); err != nil {
		return err
	}
	fmt.Printf("\n%d jobs journaled: %d completed, %d failed, %d cancelled\n",
		stats.Total, stats.Completed, stats.Failed, stats.Cancelled)

	return nil
}

func printJournalRecord(id int64) error {
	var r model.JobRecord
	if err := callDaemon(http.MethodGet, fmt.Sprintf("/history/%d", id), nil, &r); err != nil {
		return err
	}

	printRecord(r)
	if r.ErrorMessage != "" {
		fmt.Println("  error:", r.ErrorMessage)
	}
	return nil
}

func printRecord(r model.JobRecord) {
	fmt.Printf("%s [%s] %-6d %-14s %-7s +%d ~%d\n",
		statusMark(r.Status),
		r.ObservedAt.Format("2006-01-02 15:04:05"),
		r.JobID, r.JobType.Display(), seasonLabel(r.Season),
		r.RecordsCreated, r.RecordsUpdated)
}

func statusMark(s model.JobStatus) string {
	switch s {
	case model.JobStatusCompleted:
		return "✓"
	case model.JobStatusFailed:
		return "✗"
	default:
		return "-"
	}
}

func summary(j model.SyncJob) string {
	if j.Status == model.JobStatusFailed && j.ErrorMessage != "" {
		return j.ErrorMessage
	}
	s := fmt.Sprintf("+%d ~%d", j.RecordsCreated, j.RecordsUpdated)
	if j.CompletedAt != nil {
		s += " at " + j.CompletedAt.Format("2006-01-02 15:04:05")
	}
	return s
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 10, "number of jobs to show")
	historyCmd.Flags().BoolVar(&historyLocal, "local", false, "read the local journal instead of the in-memory history")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only failed jobs from the local journal")
	historyCmd.Flags().Int64Var(&historyJob, "job", 0, "show one job from the local journal")
	rootCmd.AddCommand(historyCmd)
}
