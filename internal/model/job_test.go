package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	t.Run("Should keep fields absent from later updates", func(t *testing.T) {
		job := SyncJob{ID: 1, JobType: JobTypeGames, Status: JobStatusRunning}

		job = job.Merge(JobUpdate{ProgressPercentage: new(10)})
		job = job.Merge(JobUpdate{CurrentStep: new("x")})

		assert.Equal(t, 10, job.ProgressPercentage)
		assert.Equal(t, "x", job.CurrentStep)
		assert.Equal(t, JobTypeGames, job.JobType)
		assert.Equal(t, JobStatusRunning, job.Status)
	})

	t.Run("Should not revert a terminal status", func(t *testing.T) {
		job := SyncJob{ID: 1, Status: JobStatusCompleted, ProgressPercentage: 100}

		job = job.Merge(JobUpdate{Status: new(JobStatusRunning), ProgressPercentage: new(40)})

		assert.Equal(t, JobStatusCompleted, job.Status)
		assert.Equal(t, 100, job.ProgressPercentage)
	})

	t.Run("Should allow one terminal status to follow another", func(t *testing.T) {
		job := SyncJob{ID: 1, Status: JobStatusCancelled}
		job = job.Merge(JobUpdate{Status: new(JobStatusFailed)})
		assert.Equal(t, JobStatusFailed, job.Status)
	})

	t.Run("Should not move progress backwards while running", func(t *testing.T) {
		job := SyncJob{ID: 1, Status: JobStatusRunning, ProgressPercentage: 60}

		job = job.Merge(JobUpdate{ProgressPercentage: new(40)})
		assert.Equal(t, 60, job.ProgressPercentage)

		job = job.Merge(JobUpdate{ProgressPercentage: new(250)})
		assert.Equal(t, 100, job.ProgressPercentage)
	})

	t.Run("Should not share pointers with the merged update", func(t *testing.T) {
		season := 2024
		job := SyncJob{ID: 1}.Merge(JobUpdate{Season: &season})
		season = 1999

		require.NotNil(t, job.Season)
		assert.Equal(t, 2024, *job.Season)
	})

	t.Run("Should ignore null fields decoded from the stream", func(t *testing.T) {
		job := SyncJob{ID: 7, Status: JobStatusRunning, CurrentStep: "Syncing games...", Season: new(2023)}

		var u JobUpdate
		require.NoError(t, json.Unmarshal([]byte(`{"id":7,"status":"RUNNING","season":null,"currentStep":null,"progressPercentage":20}`), &u))
		job = job.Merge(u)

		assert.Equal(t, "Syncing games...", job.CurrentStep)
		require.NotNil(t, job.Season)
		assert.Equal(t, 2023, *job.Season)
		assert.Equal(t, 20, job.ProgressPercentage)
	})

	t.Run("Should round-trip a full snapshot through UpdateFrom", func(t *testing.T) {
		src := SyncJob{
			ID:                 42,
			JobType:            JobTypeTeams,
			Status:             JobStatusCompleted,
			ProgressPercentage: 100,
			RecordsCreated:     30,
			DurationSeconds:    new(int64(12)),
		}

		merged := SyncJob{ID: 42, Status: JobStatusRunning}.Merge(UpdateFrom(src))
		assert.Equal(t, src, merged)
	})
}

func TestParseJobType(t *testing.T) {
	tests := []struct {
		input    string
		expected JobType
	}{
		{"FULL_SYNC", JobTypeFullSync},
		{"full-sync", JobTypeFullSync},
		{"full", JobTypeFullSync},
		{"teams", JobTypeTeams},
		{"boxscores", JobTypeBoxScores},
		{"box-scores", JobTypeBoxScores},
		{"Standings", JobTypeStandings},
		{"sabermetrics", JobTypeSabermetrics},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseJobType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ParseJobType("players")
	assert.Error(t, err)
}

func TestJobTypeSegments(t *testing.T) {
	for _, jt := range JobTypes {
		assert.NotEmpty(t, jt.Segment(), "segment for %s", jt)
		assert.NotEqual(t, string(jt), jt.Display(), "display name for %s", jt)
	}

	assert.Equal(t, "boxscores", JobTypeBoxScores.Segment())
	assert.False(t, JobTypeTeams.AcceptsSeason())
	assert.True(t, JobTypeGames.AcceptsSeason())
}

func TestJobStatus(t *testing.T) {
	assert.True(t, JobStatusPending.IsActive())
	assert.True(t, JobStatusRunning.IsActive())
	assert.False(t, JobStatusRunning.IsTerminal())

	for _, s := range []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled} {
		assert.True(t, s.IsTerminal(), s)
		assert.False(t, s.IsActive(), s)
	}
}

func TestTimeUnmarshal(t *testing.T) {
	t.Run("Should accept zone-less local date-times", func(t *testing.T) {
		var job SyncJob
		require.NoError(t, json.Unmarshal([]byte(`{"id":1,"startedAt":"2025-04-01T06:00:00.123456","completedAt":null}`), &job))

		require.NotNil(t, job.StartedAt)
		assert.Nil(t, job.CompletedAt)
		assert.Equal(t, 2025, job.StartedAt.Year())
		assert.Equal(t, time.April, job.StartedAt.Month())
		assert.Equal(t, 6, job.StartedAt.Hour())
	})

	t.Run("Should accept RFC 3339", func(t *testing.T) {
		var ts Time
		require.NoError(t, json.Unmarshal([]byte(`"2025-04-01T06:00:00Z"`), &ts))
		assert.Equal(t, time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC), ts.UTC())
	})

	t.Run("Should reject garbage", func(t *testing.T) {
		var ts Time
		assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	})
}

func TestFreshnessList(t *testing.T) {
	list := FreshnessList{
		{Type: JobTypeFullSync, Level: FreshnessCritical},
		{Type: JobTypeTeams, Level: FreshnessFresh},
		{Type: JobTypeGames, Level: FreshnessStale},
		{Type: JobTypeStandings, Level: FreshnessCritical},
	}

	cats := list.Categories()
	require.Len(t, cats, 3)
	for _, f := range cats {
		assert.NotEqual(t, JobTypeFullSync, f.Type)
	}

	critical := list.AtLeast(FreshnessCritical)
	require.Len(t, critical, 1)
	assert.Equal(t, JobTypeStandings, critical[0].Type)

	assert.Len(t, list.AtLeast(FreshnessStale), 2)
	assert.Less(t, FreshnessFresh.Severity(), FreshnessStale.Severity())
	assert.Less(t, FreshnessStale.Severity(), FreshnessCritical.Severity())
}
