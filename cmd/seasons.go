package cmd

import (
	"fmt"
	"net/http"
	"strconv"

	"statsync/internal/model"

	"github.com/spf13/cobra"
)

var seasonsCmd = &cobra.Command{
	Use:   "seasons",
	Short: "Manage synced seasons",
}

var seasonsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List synced seasons",
	RunE: func(cmd *cobra.Command, args []string) error {
		var seasons []model.SeasonData
		if err := callDaemon(http.MethodGet, "/seasons", nil, &seasons); err != nil {
			return err
		}

		if len(seasons) == 0 {
			fmt.Println("no seasons synced")
			return nil
		}

		fmt.Printf("%-8s %-8s %-8s %-9s %-8s %s\n", "SEASON", "GAMES", "BATTING", "PITCHING", "ROSTERS", "STANDINGS")
		for _, s := range seasons {
			label := strconv.Itoa(s.Season)
			if s.IsCurrent {
				label += "*"
			}
			fmt.Printf("%-8s %-8d %-8d %-9d %-8d %d\n",
				label, s.GamesCount, s.BattingStatsCount, s.PitchingStatsCount, s.RosterEntriesCount, s.StandingsCount)
		}

		return nil
	},
}

var seasonsAvailableCmd = &cobra.Command{
	Use:   "available",
	Short: "List seasons the backend can sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		var seasons []int
		if err := callDaemon(http.MethodGet, "/seasons/available", nil, &seasons); err != nil {
			return err
		}

		for _, s := range seasons {
			fmt.Println(s)
		}
		return nil
	},
}

var seasonsDeleteCmd = &cobra.Command{
	Use:   "delete <season>",
	Short: "Delete a season's synced data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		season, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid season %q", args[0])
		}

		if err := callDaemon(http.MethodDelete, fmt.Sprintf("/seasons/%d", season), nil, nil); err != nil {
			return fmt.Errorf("failed to delete season %d: %w", season, err)
		}

		fmt.Printf("season %d deleted\n", season)
		return nil
	},
}

func init() {
	seasonsCmd.AddCommand(seasonsListCmd, seasonsAvailableCmd, seasonsDeleteCmd)
	rootCmd.AddCommand(seasonsCmd)
}
