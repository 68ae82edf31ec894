package cmd

import (
	"fmt"
	"net/http"
	"strconv"

	"statsync/internal/model"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a pending or running job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid job id %q", args[0])
		}

		var job model.SyncJob
		if err := callDaemon(http.MethodPost, fmt.Sprintf("/jobs/%d/cancel", id), nil, &job); err != nil {
			return fmt.Errorf("failed to cancel job %d: %w", id, err)
		}

		fmt.Printf("cancelled %s job %d\n", job.DisplayType(), job.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}
