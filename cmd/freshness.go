package cmd

import (
	"fmt"
	"net/http"

	"statsync/internal/daemon"

	"github.com/spf13/cobra"
)

var freshnessRefresh bool

var freshnessCmd = &cobra.Command{
	Use:   "freshness",
	Short: "Show how stale each data category is",
	RunE: func(cmd *cobra.Command, args []string) error {
		var list []daemon.CategoryFreshness

		method, path := http.MethodGet, "/freshness"
		if freshnessRefresh {
			method, path = http.MethodPost, "/freshness/refresh"
		}
		if err := callDaemon(method, path, nil, &list); err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Println("no freshness data yet")
			return nil
		}

		fmt.Printf("%-14s %-9s %-8s %-20s %s\n", "CATEGORY", "LEVEL", "SYNCING", "LAST SYNC", "")
		for _, f := range list {
			last := "never"
			if f.LastSyncedAt != nil {
				last = f.LastSyncedAt.Format("2006-01-02 15:04:05")
			}
			syncing := ""
			if f.Syncing {
				syncing = "yes"
			}
			fmt.Printf("%-14s %-9s %-8s %-20s %s\n", f.DisplayType(), f.Level, syncing, last, f.Description)
		}

		return nil
	},
}

func init() {
	freshnessCmd.Flags().BoolVar(&freshnessRefresh, "refresh", false, "fetch fresh data from the backend first")
	rootCmd.AddCommand(freshnessCmd)
}
