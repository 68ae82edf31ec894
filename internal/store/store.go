package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"statsync/internal/logger"
	"statsync/internal/model"

	"go.uber.org/zap"
)

const DefaultHistoryLimit = 10

var ErrSyncInProgress = errors.New("sync in progress")

// Refresher reloads the data that depends on finished jobs: freshness and
// the synced seasons.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Store holds the client's view of sync jobs: the jobs in flight, a capped
// history of finished ones, and the last freshness and season snapshots.
type Store struct {
	refresher Refresher

	mu           sync.Mutex
	historyLimit int
	active       []model.SyncJob
	history      []model.SyncJob
	freshness    model.FreshnessList
	seasons      []model.SeasonData
}

func New(historyLimit int, refresher Refresher) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{historyLimit: historyLimit, refresher: refresher}
}

// AddActive records a newly triggered or rehydrated job. A job whose id is
// already active is ignored. It reports whether the job was added.
func (s *Store) AddActive(job model.SyncJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeIndex(job.ID) >= 0 {
		return false
	}
	s.active = append(s.active, job.Clone())
	return true
}

// UpdateActive replaces the snapshot of an active job. Unknown ids are ignored.
func (s *Store) UpdateActive(job model.SyncJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.activeIndex(job.ID); i >= 0 {
		s.active[i] = job.Clone()
	}
}

// OnJobTerminal moves a finished job from the active set to the front of the
// history and then refreshes dependent data. A failed refresh is logged and
// leaves the previous snapshots in place.
func (s *Store) OnJobTerminal(ctx context.Context, job model.SyncJob) {
	s.mu.Lock()
	if i := s.activeIndex(job.ID); i >= 0 {
		s.active = slices.Delete(s.active, i, i+1)
	}
	s.history = slices.Insert(s.history, 0, job.Clone())
	s.truncateLocked()
	s.mu.Unlock()

	if s.refresher == nil {
		return
	}
	if err := s.refresher.Refresh(ctx); err != nil {
		logger.Log.Warn("Failed to refresh after job finished",
			zap.Int64("job", job.ID),
			zap.Error(err),
		)
	}
}

// SeedHistory replaces the history, newest first, e.g. from the backend's
// recent jobs on start-up.
func (s *Store) SeedHistory(jobs []model.SyncJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = cloneJobs(jobs)
	s.truncateLocked()
}

func (s *Store) SetHistoryLimit(n int) {
	if n <= 0 {
		n = DefaultHistoryLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.historyLimit = n
	s.truncateLocked()
}

func (s *Store) HistoryLimit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLimit
}

// IsSyncing reports whether jobType is busy: a job of that type is active or
// a full sync is running.
func (s *Store) IsSyncing(jobType model.JobType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.active {
		if j.JobType == jobType || j.JobType == model.JobTypeFullSync {
			return true
		}
	}
	return false
}

// CanTrigger applies the client-side conflict rules. A full sync needs an
// idle client; any other type is blocked by a running full sync or by an
// active job of the same type.
func (s *Store) CanTrigger(jobType model.JobType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.active {
		switch {
		case jobType == model.JobTypeFullSync:
			return fmt.Errorf("%w: %s job %d is active", ErrSyncInProgress, j.DisplayType(), j.ID)
		case j.JobType == model.JobTypeFullSync:
			return fmt.Errorf("%w: full sync job %d is running", ErrSyncInProgress, j.ID)
		case j.JobType == jobType:
			return fmt.Errorf("%w: %s job %d is already running", ErrSyncInProgress, j.DisplayType(), j.ID)
		}
	}
	return nil
}

func (s *Store) Active() []model.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneJobs(s.active)
}

func (s *Store) ActiveJob(id int64) (model.SyncJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.activeIndex(id); i >= 0 {
		return s.active[i].Clone(), true
	}
	return model.SyncJob{}, false
}

func (s *Store) History() []model.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneJobs(s.history)
}

func (s *Store) SetFreshness(list model.FreshnessList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freshness = slices.Clone(list)
}

func (s *Store) Freshness() model.FreshnessList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.freshness)
}

func (s *Store) SetSeasons(seasons []model.SeasonData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasons = slices.Clone(seasons)
}

func (s *Store) Seasons() []model.SeasonData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.seasons)
}

func (s *Store) activeIndex(id int64) int {
	return slices.IndexFunc(s.active, func(j model.SyncJob) bool { return j.ID == id })
}

func (s *Store) truncateLocked() {
	if len(s.history) > s.historyLimit {
		s.history = slices.Clip(s.history[:s.historyLimit])
	}
}

func cloneJobs(jobs []model.SyncJob) []model.SyncJob {
	out := make([]model.SyncJob, len(jobs))
	for i, j := range jobs {
		out[i] = j.Clone()
	}
	return out
}
