package cmd

import (
	"fmt"
	"net/http"

	"statsync/internal/daemon"
	"statsync/internal/model"

	"github.com/spf13/cobra"
)

var statusRefresh bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var snap daemon.Snapshot

		method, path := http.MethodGet, "/status"
		if statusRefresh {
			method, path = http.MethodPost, "/jobs/refresh"
		}
		if err := callDaemon(method, path, nil, &snap); err != nil {
			return err
		}

		if len(snap.Active) == 0 {
			fmt.Println("no active jobs")
		} else {
			fmt.Printf("%-6s %-14s %-9s %-7s %-5s %s\n",
				"JOB", "TYPE", "STATUS", "SEASON", "PCT", "STEP")
			for _, j := range snap.Active {
				fmt.Printf("%-6d %-14s %-9s %-7s %3d%%  %s\n",
					j.ID, j.DisplayType(), j.Status, seasonLabel(j.Season), j.ProgressPercentage, j.CurrentStep)
			}
		}

		if critical := snap.Freshness.Categories().AtLeast(model.FreshnessCritical); len(critical) > 0 {
			fmt.Println()
			fmt.Printf("%d categories need a sync, see 'statsync freshness'\n", len(critical))
		}

		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusRefresh, "refresh", false, "re-fetch active jobs the daemon lost track of")
	rootCmd.AddCommand(statusCmd)
}
