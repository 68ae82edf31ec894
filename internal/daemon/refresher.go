package daemon

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"statsync/internal/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const refreshTimeout = time.Minute

// Scheduler refreshes freshness on a cron schedule and, when auto sync is
// on, triggers the categories that went critical.
type Scheduler struct {
	cron     *cron.Cron
	manager  *JobManager
	autoSync atomic.Bool
}

func NewScheduler(manager *JobManager, schedule string, autoSync bool) (*Scheduler, error) {
	log := cronLogger{logger.Log.Sugar()}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	s := &Scheduler{
		manager: manager,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
	}
	s.autoSync.Store(autoSync)

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid freshness schedule %q: %w", schedule, err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) SetAutoSync(on bool) {
	s.autoSync.Store(on)
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := s.manager.Refresh(ctx); err != nil {
		logger.Log.Warn("Scheduled refresh failed", zap.Error(err))
		return
	}

	if !s.autoSync.Load() {
		return
	}

	for _, job := range s.manager.AutoSync(ctx) {
		logger.Log.Info("Auto sync started",
			zap.Int64("job", job.ID),
			zap.String("type", string(job.JobType)))
	}
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
