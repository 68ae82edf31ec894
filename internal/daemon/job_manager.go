package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"statsync/internal/logger"
	"statsync/internal/metrics"
	"statsync/internal/model"
	"statsync/internal/progress"
	"statsync/internal/store"

	"go.uber.org/zap"
)

// Backend is the part of the stats backend the daemon drives.
type Backend interface {
	progress.Client
	Trigger(ctx context.Context, jobType model.JobType, season *int) (model.SyncJob, error)
	Cancel(ctx context.Context, id int64) (model.SyncJob, error)
	ActiveJobs(ctx context.Context) ([]model.SyncJob, error)
	RecentJobs(ctx context.Context, limit int) ([]model.SyncJob, error)
	Freshness(ctx context.Context) (model.FreshnessList, error)
	SyncedSeasons(ctx context.Context) ([]model.SeasonData, error)
	AvailableSeasons(ctx context.Context) ([]int, error)
	DeleteSeason(ctx context.Context, season int) error
}

// Journal records finished jobs.
type Journal interface {
	Save(job model.SyncJob) error
}

// JobManager owns the job store and one progress tracker per active job.
type JobManager struct {
	ctx     context.Context
	cancel  context.CancelFunc
	client  Backend
	store   *store.Store
	journal Journal

	// serialises the conflict check with the store insert, and the active
	// check with the finish of jobs that have no tracker
	triggerMu sync.Mutex

	mu       sync.Mutex
	trackers map[int64]*progress.Tracker
}

func NewJobManager(client Backend, historyLimit int, journal Journal) *JobManager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &JobManager{
		ctx:      ctx,
		cancel:   cancel,
		client:   client,
		journal:  journal,
		trackers: make(map[int64]*progress.Tracker),
	}
	m.store = store.New(historyLimit, m)
	return m
}

func (m *JobManager) Store() *store.Store {
	return m.store
}

// Rehydrate loads the backend's in-flight and recent jobs, attaches trackers
// to the in-flight ones and refreshes freshness and seasons.
func (m *JobManager) Rehydrate(ctx context.Context) error {
	active, err := m.client.ActiveJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active jobs: %w", err)
	}

	recent, err := m.client.RecentJobs(ctx, m.store.HistoryLimit())
	if err != nil {
		logger.Log.Warn("Failed to load recent jobs", zap.Error(err))
	} else {
		m.store.SeedHistory(recent)
	}

	for _, job := range active {
		if m.store.AddActive(job) {
			m.attach(job)
		}
	}
	metrics.SetActive(len(m.store.Active()))

	if err := m.Refresh(ctx); err != nil {
		logger.Log.Warn("Initial refresh failed", zap.Error(err))
	}

	logger.Log.Info("Rehydrated jobs",
		zap.Int("active", len(active)),
		zap.Int("history", len(m.store.History())))

	return nil
}

// Trigger starts a sync job after the local conflict check passes.
func (m *JobManager) Trigger(ctx context.Context, jobType model.JobType, season *int) (model.SyncJob, error) {
	m.triggerMu.Lock()
	defer m.triggerMu.Unlock()

	if err := m.store.CanTrigger(jobType); err != nil {
		metrics.IncRejected(string(jobType), "conflict")
		return model.SyncJob{}, err
	}

	job, err := m.client.Trigger(ctx, jobType, season)
	if err != nil {
		metrics.IncRejected(string(jobType), "backend")
		return model.SyncJob{}, err
	}

	metrics.IncTriggered(string(jobType))
	logger.Log.Info("Job triggered",
		zap.Int64("job", job.ID),
		zap.String("type", string(job.JobType)))

	if m.store.AddActive(job) {
		metrics.SetActive(len(m.store.Active()))
		m.attach(job)
	}

	return job, nil
}

// Cancel asks the backend to cancel job id. On success the job finishes
// through its tracker; on failure it stays active.
func (m *JobManager) Cancel(ctx context.Context, id int64) (model.SyncJob, error) {
	job, err := m.client.Cancel(ctx, id)
	if err != nil {
		return model.SyncJob{}, err
	}

	t, ok := m.tracker(id)

	switch {
	case ok:
		t.Complete(job)
	case job.IsTerminal():
		m.finishUntracked(job)
	}

	return job, nil
}

// SyncActive re-fetches the jobs the daemon still holds as active but no
// longer follows, e.g. after a failed fallback fetch. Terminal ones finish,
// the others get a fresh tracker. Jobs the backend reports as active that the
// daemon does not know yet are attached as well.
func (m *JobManager) SyncActive(ctx context.Context) error {
	var errs []error

	for _, job := range m.store.Active() {
		t, ok := m.tracker(job.ID)
		if ok && t.Live() {
			continue
		}

		latest, err := m.client.GetJob(ctx, job.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to fetch job %d: %w", job.ID, err))
			continue
		}

		switch {
		case latest.IsTerminal() && ok:
			t.Complete(latest)
		case latest.IsTerminal():
			m.finishUntracked(latest)
		default:
			merged := job.Merge(model.UpdateFrom(latest))
			m.store.UpdateActive(merged)
			m.attach(merged)
		}
	}

	active, err := m.client.ActiveJobs(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to load active jobs: %w", err))
	} else {
		for _, job := range active {
			if m.store.AddActive(job) {
				m.attach(job)
			}
		}
	}
	metrics.SetActive(len(m.store.Active()))

	return errors.Join(errs...)
}

// Refresh reloads freshness and synced seasons. Each snapshot is replaced
// only when its fetch succeeds.
func (m *JobManager) Refresh(ctx context.Context) error {
	var errs []error

	list, err := m.client.Freshness(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to fetch freshness: %w", err))
	} else {
		m.store.SetFreshness(list)
		for _, f := range list {
			metrics.SetFreshness(string(f.Type), f.Level.Severity())
		}
	}

	seasons, err := m.client.SyncedSeasons(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to fetch synced seasons: %w", err))
	} else {
		m.store.SetSeasons(seasons)
	}

	if len(errs) > 0 {
		metrics.IncRefreshErrors()
	}
	return errors.Join(errs...)
}

// AutoSync triggers every category whose data is critical and that the
// conflict rules allow right now.
func (m *JobManager) AutoSync(ctx context.Context) []model.SyncJob {
	var started []model.SyncJob

	for _, f := range m.store.Freshness().Categories().AtLeast(model.FreshnessCritical) {
		if !f.Type.Valid() || m.store.CanTrigger(f.Type) != nil {
			continue
		}

		job, err := m.Trigger(ctx, f.Type, nil)
		if err != nil {
			logger.Log.Warn("Auto sync trigger failed",
				zap.String("type", string(f.Type)),
				zap.Error(err))
			continue
		}
		started = append(started, job)
	}

	return started
}

func (m *JobManager) DeleteSeason(ctx context.Context, season int) error {
	if err := m.client.DeleteSeason(ctx, season); err != nil {
		return err
	}

	if seasons, err := m.client.SyncedSeasons(ctx); err != nil {
		logger.Log.Warn("Failed to refresh seasons", zap.Error(err))
	} else {
		m.store.SetSeasons(seasons)
	}
	return nil
}

func (m *JobManager) AvailableSeasons(ctx context.Context) ([]int, error) {
	return m.client.AvailableSeasons(ctx)
}

func (m *JobManager) SetHistoryLimit(n int) {
	m.store.SetHistoryLimit(n)
}

func (m *JobManager) Snapshot() Snapshot {
	return Snapshot{
		Active:       m.store.Active(),
		History:      m.store.History(),
		HistoryLimit: m.store.HistoryLimit(),
		Freshness:    m.store.Freshness(),
		Seasons:      m.store.Seasons(),
	}
}

// Freshness lists the syncable categories, each marked with whether a job
// currently keeps it busy.
func (m *JobManager) Freshness() []CategoryFreshness {
	list := m.store.Freshness().Categories()
	out := make([]CategoryFreshness, len(list))
	for i, f := range list {
		out[i] = CategoryFreshness{DataFreshness: f, Syncing: m.store.IsSyncing(f.Type)}
	}
	return out
}

// StopAll detaches every tracker. Jobs keep running on the backend.
func (m *JobManager) StopAll() {
	m.mu.Lock()
	trackers := make([]*progress.Tracker, 0, len(m.trackers))
	for _, t := range m.trackers {
		trackers = append(trackers, t)
	}
	m.mu.Unlock()

	for _, t := range trackers {
		t.Stop()
	}
	m.cancel()
}

func (m *JobManager) attach(job model.SyncJob) {
	t := progress.NewTracker(m.client, job, progress.Callbacks{
		OnUpdate:   m.store.UpdateActive,
		OnComplete: m.finish,
	})

	m.mu.Lock()
	m.trackers[job.ID] = t
	m.mu.Unlock()

	t.Start(m.ctx)
}

func (m *JobManager) tracker(id int64) (*progress.Tracker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trackers[id]
	return t, ok
}

// finishUntracked finishes a terminal job that has no tracker, once.
func (m *JobManager) finishUntracked(job model.SyncJob) {
	m.triggerMu.Lock()
	defer m.triggerMu.Unlock()

	if _, active := m.store.ActiveJob(job.ID); active {
		m.finish(job)
	}
}

func (m *JobManager) finish(job model.SyncJob) {
	m.mu.Lock()
	delete(m.trackers, job.ID)
	m.mu.Unlock()

	m.store.OnJobTerminal(m.ctx, job)

	metrics.ObserveFinished(string(job.JobType), string(job.Status), job.DurationSeconds)
	metrics.SetActive(len(m.store.Active()))

	if m.journal != nil {
		if err := m.journal.Save(job); err != nil {
			logger.Log.Warn("Failed to journal job",
				zap.Int64("job", job.ID),
				zap.Error(err))
		}
	}
}
