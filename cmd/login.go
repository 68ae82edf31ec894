package cmd

import (
	"fmt"
	"os"

	"statsync/internal/auth"

	"github.com/spf13/cobra"
)

var (
	loginToken   string
	loginSession string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store backend credentials in the OS keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, value := auth.KindToken, loginToken
		if cmd.Flags().Changed("session") {
			kind, value = auth.KindSession, loginSession
		}

		if value == "" {
			v, err := auth.Prompt(kind, os.Stdin, os.Stdout)
			if err != nil {
				return err
			}
			value = v
		}

		if err := auth.Save(kind, value); err != nil {
			return err
		}

		fmt.Printf("%s saved; restart the daemon to use it\n", kind)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored backend credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.Clear(); err != nil {
			return err
		}

		fmt.Println("credentials removed")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "bearer API token")
	loginCmd.Flags().StringVar(&loginSession, "session", "", "session cookie value")
	loginCmd.MarkFlagsMutuallyExclusive("token", "session")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
