package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"statsync/internal/config"
	"statsync/internal/daemon"
	"statsync/internal/db"
	"statsync/internal/logger"
	"statsync/internal/metrics"
	"statsync/internal/repository"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	Aliases: []string{"watch"},
	Short:   "Run the daemon that tracks sync jobs",
	RunE:    runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	if err := db.Init(dbPath); err != nil {
		return err
	}
	journal := repository.NewJobRepository(db.DB)

	client, err := backendClient()
	if err != nil {
		return err
	}

	metrics.MustRegister()

	manager := daemon.NewJobManager(client, cfg.HistoryLimit, journal)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	if err := manager.Rehydrate(ctx); err != nil {
		logger.Log.Warn("Backend unreachable at start-up, starting with empty state", zap.Error(err))
	}
	cancel()

	sched, err := daemon.NewScheduler(manager, cfg.FreshnessSchedule, cfg.AutoSync)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	config.Watch(func(c *config.Config) {
		manager.SetHistoryLimit(c.HistoryLimit)
		sched.SetAutoSync(c.AutoSync)
		if !debug {
			logger.SetLevel(c.LogLevel)
		}
		logger.Log.Info("Config reloaded",
			zap.Int("history_limit", c.HistoryLimit),
			zap.Bool("auto_sync", c.AutoSync))
	})

	srv := daemon.NewServer(manager, journal, cfg.DaemonPort)
	srv.Start()

	logger.Log.Info("statsync daemon started",
		zap.String("api", cfg.APIURL),
		zap.Int("port", cfg.DaemonPort),
		zap.Int("active", len(manager.Store().Active())))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Log.Info("Shutting down",
			zap.String("signal", sig.String()))
	case <-srv.StopCh():
		logger.Log.Info("Stop requested via API")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
