package repository

import (
	"path/filepath"
	"testing"
	"time"

	"statsync/internal/db"
	"statsync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *JobRepository {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)

	r := NewJobRepository(conn)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return r
}

func TestSaveUpserts(t *testing.T) {
	r := newRepo(t)

	job := model.SyncJob{ID: 42, JobType: model.JobTypeTeams, Status: model.JobStatusCompleted, RecordsCreated: 30}
	require.NoError(t, r.Save(job))

	job.RecordsUpdated = 5
	require.NoError(t, r.Save(job))

	recs, err := r.GetRecent(10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 30, recs[0].RecordsCreated)
	assert.Equal(t, 5, recs[0].RecordsUpdated)
}

func TestRecentAndStats(t *testing.T) {
	r := newRepo(t)

	statuses := []model.JobStatus{
		model.JobStatusCompleted,
		model.JobStatusFailed,
		model.JobStatusCompleted,
		model.JobStatusCancelled,
	}
	for i, s := range statuses {
		job := model.SyncJob{ID: int64(i + 1), JobType: model.JobTypeGames, Status: s}
		if s == model.JobStatusFailed {
			job.ErrorMessage = "upstream timeout"
		}
		require.NoError(t, r.Save(job))
	}

	recs, err := r.GetRecent(2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(4), recs[0].JobID, "newest first")

	failed, err := r.GetFailed()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "upstream timeout", failed[0].ErrorMessage)

	stats, err := r.GetStats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 4, Completed: 2, Failed: 1, Cancelled: 1}, stats)

	rec, err := r.GetByJobID(2)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, rec.Status)
}
