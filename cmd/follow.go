package cmd

import (
	"context"
	"fmt"
	"strconv"

	"statsync/internal/api"

	"github.com/spf13/cobra"
)

var followCmd = &cobra.Command{
	Use:   "follow <job-id>",
	Short: "Follow a job's progress straight from the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid job id %q", args[0])
		}

		client, err := backendClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		job, err := client.GetJob(ctx, id)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to load job %d: %s", id, api.Reason(err, err.Error()))
		}

		_, err = followJob(client, job)
		return err
	},
}

func init() {
	rootCmd.AddCommand(followCmd)
}
