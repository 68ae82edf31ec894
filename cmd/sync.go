package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"statsync/internal/daemon"
	"statsync/internal/model"

	"github.com/spf13/cobra"
)

var (
	syncSeason int
	syncFollow bool
)

var syncCmd = &cobra.Command{
	Use:   "sync <type>",
	Short: "Trigger a sync job through the daemon",
	Long: "Trigger a sync job through the daemon.\n\nTypes: " +
		strings.ToLower(strings.Join(jobTypeNames(), ", ")),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobType, err := model.ParseJobType(args[0])
		if err != nil {
			return err
		}

		req := daemon.TriggerRequest{Type: string(jobType)}
		if cmd.Flags().Changed("season") {
			req.Season = &syncSeason
		}

		var job model.SyncJob
		if err := callDaemon(http.MethodPost, "/jobs", req, &job); err != nil {
			return fmt.Errorf("failed to start %s sync: %w", jobType.Display(), err)
		}

		fmt.Printf("started %s job %d (season %s)\n", job.DisplayType(), job.ID, seasonLabel(job.Season))

		if !syncFollow {
			return nil
		}

		client, err := backendClient()
		if err != nil {
			return err
		}
		_, err = followJob(client, job)
		return err
	},
}

func jobTypeNames() []string {
	names := make([]string, len(model.JobTypes))
	for i, t := range model.JobTypes {
		names[i] = t.Segment()
	}
	return names
}

func init() {
	syncCmd.Flags().IntVar(&syncSeason, "season", 0, "season to sync")
	syncCmd.Flags().BoolVarP(&syncFollow, "follow", "f", false, "follow progress until the job finishes")
	rootCmd.AddCommand(syncCmd)
}
