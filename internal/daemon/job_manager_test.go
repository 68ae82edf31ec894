package daemon

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"statsync/internal/api"
	"statsync/internal/db"
	"statsync/internal/model"
	"statsync/internal/repository"
	"statsync/internal/store"
	"statsync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

func newManager(t *testing.T, journal Journal) (*JobManager, *testutil.Backend) {
	t.Helper()

	b := testutil.NewBackend()
	t.Cleanup(b.Close)

	client, err := api.NewClient(api.Options{BaseURL: b.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)

	m := NewJobManager(client, store.DefaultHistoryLimit, journal)
	t.Cleanup(m.StopAll)

	return m, b
}

func TestTeamsSyncEndToEnd(t *testing.T) {
	m, b := newManager(t, nil)
	ctx := context.Background()

	b.SetNextID(42)
	job, err := m.Trigger(ctx, model.JobTypeTeams, nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), job.ID)
	assert.True(t, m.Store().IsSyncing(model.JobTypeTeams))

	b.Push(42, model.JobUpdate{
		Status:         new(model.JobStatusRunning),
		TotalItems:     new(30),
		ProcessedItems: new(10),
	})
	b.Push(42, model.JobUpdate{
		Status:             new(model.JobStatusCompleted),
		ProcessedItems:     new(30),
		ProgressPercentage: new(100),
		RecordsCreated:     new(30),
	})
	b.CloseStream(42)

	require.Eventually(t, func() bool {
		return b.Calls("/api/data-freshness") == 1
	}, waitFor, tick)

	assert.Empty(t, m.Store().Active())
	hist := m.Store().History()
	require.Len(t, hist, 1)
	assert.Equal(t, int64(42), hist[0].ID)
	assert.Equal(t, model.JobStatusCompleted, hist[0].Status)
	assert.Equal(t, 30, hist[0].RecordsCreated)
	assert.Len(t, m.Store().Freshness(), 3)

	assert.Zero(t, b.Calls("/api/sync-jobs/:id"), "no fallback fetch")
	assert.Equal(t, 1, b.Calls("/api/data-freshness"))
}

func TestFallbackFetchOnEarlyClose(t *testing.T) {
	m, b := newManager(t, nil)
	ctx := context.Background()

	job, err := m.Trigger(ctx, model.JobTypeGames, new(2024))
	require.NoError(t, err)

	b.Push(job.ID, model.JobUpdate{Status: new(model.JobStatusRunning), ProgressPercentage: new(50)})
	require.Eventually(t, func() bool {
		j, ok := m.Store().ActiveJob(job.ID)
		return ok && j.ProgressPercentage == 50
	}, waitFor, tick)

	done := job
	done.Status = model.JobStatusCompleted
	done.RecordsUpdated = 12
	b.SetJob(done)
	b.CloseStream(job.ID)

	require.Eventually(t, func() bool {
		return len(m.Store().History()) == 1
	}, waitFor, tick)

	assert.Equal(t, 1, b.Calls("/api/sync-jobs/:id"))
	assert.Equal(t, 12, m.Store().History()[0].RecordsUpdated)
	assert.Equal(t, 2024, *m.Store().History()[0].Season)
}

func TestFullSyncBlocksTriggers(t *testing.T) {
	m, b := newManager(t, nil)
	ctx := context.Background()

	b.AddJob(model.SyncJob{ID: 7, JobType: model.JobTypeFullSync, Status: model.JobStatusRunning})
	require.NoError(t, m.Rehydrate(ctx))

	for _, jt := range model.JobTypes {
		_, err := m.Trigger(ctx, jt, nil)
		assert.ErrorIs(t, err, store.ErrSyncInProgress, jt)
	}
	assert.Zero(t, b.Calls("/api/ingestion/:segment"))
}

func TestBackendRejectionLeavesStoreUntouched(t *testing.T) {
	m, b := newManager(t, nil)

	b.FailTrigger(http.StatusConflict, "A Teams sync job is already running (job ID: 3)")
	_, err := m.Trigger(context.Background(), model.JobTypeTeams, nil)

	require.ErrorIs(t, err, api.ErrConflict)
	assert.Equal(t, "A Teams sync job is already running (job ID: 3)", api.Reason(err, "generic"))
	assert.Empty(t, m.Store().Active())
	assert.Empty(t, m.Store().History())
}

func TestCancelCompletesOnce(t *testing.T) {
	m, _ := newManager(t, nil)
	ctx := context.Background()

	job, err := m.Trigger(ctx, model.JobTypeStandings, nil)
	require.NoError(t, err)

	cancelled, err := m.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, cancelled.Status)

	require.Eventually(t, func() bool {
		return len(m.Store().History()) == 1
	}, waitFor, tick)

	time.Sleep(50 * time.Millisecond)
	hist := m.Store().History()
	require.Len(t, hist, 1)
	assert.Equal(t, model.JobStatusCancelled, hist[0].Status)
	assert.Empty(t, m.Store().Active())
}

func TestCancelFailureKeepsJobActive(t *testing.T) {
	m, b := newManager(t, nil)
	ctx := context.Background()

	b.AddJob(model.SyncJob{ID: 9, JobType: model.JobTypeRosters, Status: model.JobStatusCompleted})
	_, err := m.Cancel(ctx, 9)
	require.ErrorIs(t, err, api.ErrBadRequest)

	_, err = m.Cancel(ctx, 1234)
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestRehydrate(t *testing.T) {
	m, b := newManager(t, nil)

	b.AddJob(model.SyncJob{ID: 4, JobType: model.JobTypeTeams, Status: model.JobStatusCompleted, RecordsCreated: 30})
	b.AddJob(model.SyncJob{ID: 5, JobType: model.JobTypeGames, Status: model.JobStatusRunning})
	b.SetSeasons([]model.SeasonData{{Season: 2025, IsCurrent: true}})

	require.NoError(t, m.Rehydrate(context.Background()))

	snap := m.Snapshot()
	require.Len(t, snap.Active, 1)
	assert.Equal(t, int64(5), snap.Active[0].ID)
	require.Len(t, snap.History, 1)
	assert.Equal(t, int64(4), snap.History[0].ID)
	assert.Len(t, snap.Freshness, 3)
	require.Len(t, snap.Seasons, 1)
	assert.Equal(t, 1, b.Calls("/api/data-freshness"))
}

func TestAutoSyncTriggersCriticalCategories(t *testing.T) {
	m, b := newManager(t, nil)
	ctx := context.Background()

	b.SetFreshness(model.FreshnessList{
		{Type: model.JobTypeFullSync, Level: model.FreshnessCritical},
		{Type: model.JobTypeTeams, Level: model.FreshnessFresh},
		{Type: model.JobTypeGames, Level: model.FreshnessCritical},
		{Type: model.JobTypeStats, Level: model.FreshnessStale},
	})
	require.NoError(t, m.Refresh(ctx))

	started := m.AutoSync(ctx)
	require.Len(t, started, 1)
	assert.Equal(t, model.JobTypeGames, started[0].JobType)

	assert.Empty(t, m.AutoSync(ctx), "already running")
}

func TestFinishedJobsAreJournaled(t *testing.T) {
	conn, err := db.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	repo := repository.NewJobRepository(conn)

	m, b := newManager(t, repo)

	job, err := m.Trigger(context.Background(), model.JobTypeLinescores, nil)
	require.NoError(t, err)

	b.Push(job.ID, model.JobUpdate{
		Status:       new(model.JobStatusFailed),
		ErrorMessage: new("upstream timeout"),
	})

	require.Eventually(t, func() bool {
		_, err := repo.GetByJobID(job.ID)
		return err == nil
	}, waitFor, tick)

	rec, err := repo.GetByJobID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, rec.Status)
	assert.Equal(t, "upstream timeout", rec.ErrorMessage)
}

func TestSyncActiveRecoversLostJob(t *testing.T) {
	m, b := newManager(t, nil)
	ctx := context.Background()

	job, err := m.Trigger(ctx, model.JobTypeGames, nil)
	require.NoError(t, err)

	b.FailGetJob(http.StatusServiceUnavailable, "maintenance")
	b.CloseStream(job.ID)
	require.Eventually(t, func() bool {
		return b.Calls("/api/sync-jobs/:id") == 1
	}, waitFor, tick)

	require.Eventually(t, func() bool {
		tr, ok := m.tracker(job.ID)
		return ok && !tr.Live()
	}, waitFor, tick)
	require.Len(t, m.Store().Active(), 1)

	done := job
	done.Status = model.JobStatusCompleted
	done.RecordsCreated = 8
	b.SetJob(done)

	_, err = m.Trigger(ctx, model.JobTypeGames, nil)
	require.ErrorIs(t, err, store.ErrSyncInProgress)

	require.Error(t, m.SyncActive(ctx), "fetch still failing")
	assert.Len(t, m.Store().Active(), 1)

	b.RecoverGetJob()
	require.NoError(t, m.SyncActive(ctx))

	assert.Empty(t, m.Store().Active())
	hist := m.Store().History()
	require.Len(t, hist, 1)
	assert.Equal(t, model.JobStatusCompleted, hist[0].Status)
	assert.Equal(t, 8, hist[0].RecordsCreated)

	_, err = m.Trigger(ctx, model.JobTypeGames, nil)
	assert.NoError(t, err)
}

func TestSyncActiveReattachesRunningJob(t *testing.T) {
	m, b := newManager(t, nil)
	ctx := context.Background()

	job, err := m.Trigger(ctx, model.JobTypeStats, nil)
	require.NoError(t, err)

	running := job
	running.Status = model.JobStatusRunning
	running.ProgressPercentage = 60
	b.SetJob(running)
	b.CloseStream(job.ID)

	require.Eventually(t, func() bool {
		j, ok := m.Store().ActiveJob(job.ID)
		return ok && j.ProgressPercentage == 60
	}, waitFor, tick, "non-terminal fallback reaches the store")

	require.Eventually(t, func() bool {
		tr, ok := m.tracker(job.ID)
		return ok && !tr.Live()
	}, waitFor, tick)

	require.NoError(t, m.SyncActive(ctx))
	tr, ok := m.tracker(job.ID)
	require.True(t, ok)
	assert.True(t, tr.Live())

	b.Push(job.ID, model.JobUpdate{Status: new(model.JobStatusCompleted)})
	require.Eventually(t, func() bool {
		return len(m.Store().History()) == 1
	}, waitFor, tick)
	assert.Empty(t, m.Store().Active())
}

func TestSyncActiveAdoptsUnknownJobs(t *testing.T) {
	m, b := newManager(t, nil)

	b.AddJob(model.SyncJob{ID: 11, JobType: model.JobTypeRosters, Status: model.JobStatusPending})
	require.NoError(t, m.SyncActive(context.Background()))

	active := m.Store().Active()
	require.Len(t, active, 1)
	assert.Equal(t, int64(11), active[0].ID)
	assert.Zero(t, b.Calls("/api/sync-jobs/:id"))
}

func TestConcurrentCancelOfUntrackedJob(t *testing.T) {
	m, b := newManager(t, nil)
	ctx := context.Background()

	b.AddJob(model.SyncJob{ID: 3, JobType: model.JobTypeTeams, Status: model.JobStatusRunning})
	require.True(t, m.Store().AddActive(model.SyncJob{ID: 3, JobType: model.JobTypeTeams, Status: model.JobStatusRunning}))

	done := model.SyncJob{ID: 3, JobType: model.JobTypeTeams, Status: model.JobStatusCancelled}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.finishUntracked(done)
		}()
	}
	wg.Wait()

	assert.Empty(t, m.Store().Active())
	assert.Len(t, m.Store().History(), 1)
	assert.Equal(t, 1, b.Calls("/api/data-freshness"))
}
