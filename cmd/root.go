package cmd

import (
	"fmt"
	"os"

	"statsync/internal/api"
	"statsync/internal/auth"
	"statsync/internal/config"
	"statsync/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg   *config.Config
	debug bool
)

var rootCmd = &cobra.Command{
	Use:           "statsync",
	Short:         "Trigger and follow stats backend sync jobs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		logger.Init(debug)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		if !debug {
			logger.SetLevel(cfg.LogLevel)
		}

		if err := auth.Fill(cfg); err != nil {
			logger.Log.Warn("Keyring unavailable, using configured credentials only", zap.Error(err))
		}

		return nil
	},
}

func Execute() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func daemonURL(path string) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", cfg.DaemonPort, path)
}

func backendClient() (*api.Client, error) {
	return api.NewClient(api.Options{
		BaseURL:           cfg.APIURL,
		Timeout:           cfg.RequestTimeout,
		RetryCount:        cfg.RetryCount,
		Token:             cfg.APIToken,
		SessionCookieName: cfg.SessionCookieName,
		SessionCookie:     cfg.SessionCookie,
	})
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
}
