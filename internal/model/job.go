package model

import (
	"fmt"
	"strings"
)

type JobType string

const (
	JobTypeFullSync     JobType = "FULL_SYNC"
	JobTypeTeams        JobType = "TEAMS"
	JobTypeRosters      JobType = "ROSTERS"
	JobTypeGames        JobType = "GAMES"
	JobTypeStats        JobType = "STATS"
	JobTypeStandings    JobType = "STANDINGS"
	JobTypeBoxScores    JobType = "BOX_SCORES"
	JobTypeLinescores   JobType = "LINESCORES"
	JobTypeSabermetrics JobType = "SABERMETRICS"
)

var JobTypes = []JobType{
	JobTypeFullSync,
	JobTypeTeams,
	JobTypeRosters,
	JobTypeGames,
	JobTypeStats,
	JobTypeStandings,
	JobTypeBoxScores,
	JobTypeLinescores,
	JobTypeSabermetrics,
}

var jobTypeInfo = map[JobType]struct {
	display string
	segment string
}{
	JobTypeFullSync:     {"Full Sync", "full-sync"},
	JobTypeTeams:        {"Teams", "teams"},
	JobTypeRosters:      {"Rosters", "rosters"},
	JobTypeGames:        {"Games", "games"},
	JobTypeStats:        {"Stats", "stats"},
	JobTypeStandings:    {"Standings", "standings"},
	JobTypeBoxScores:    {"Box Scores", "boxscores"},
	JobTypeLinescores:   {"Linescores", "linescores"},
	JobTypeSabermetrics: {"Sabermetrics", "sabermetrics"},
}

func (t JobType) Valid() bool {
	_, ok := jobTypeInfo[t]
	return ok
}

func (t JobType) Display() string {
	if info, ok := jobTypeInfo[t]; ok {
		return info.display
	}
	return string(t)
}

// Segment is the trigger path under /ingestion.
func (t JobType) Segment() string {
	return jobTypeInfo[t].segment
}

// AcceptsSeason reports whether a trigger of this type may be scoped to a season.
func (t JobType) AcceptsSeason() bool {
	return t != JobTypeTeams
}

// ParseJobType accepts the enum name, the trigger path segment, or a lower-case
// alias such as "full", "box-scores" or "box_scores".
func ParseJobType(s string) (JobType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")

	switch norm {
	case "FULL":
		return JobTypeFullSync, nil
	case "BOXSCORES":
		return JobTypeBoxScores, nil
	}

	if t := JobType(norm); t.Valid() {
		return t, nil
	}

	return "", fmt.Errorf("unknown job type %q", s)
}

type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

func (s JobStatus) IsActive() bool {
	return s == JobStatusPending || s == JobStatusRunning
}

type TriggerType string

const (
	TriggerManual    TriggerType = "MANUAL"
	TriggerScheduled TriggerType = "SCHEDULED"
)

type SyncJob struct {
	ID                 int64       `json:"id"`
	JobType            JobType     `json:"jobType"`
	JobTypeDisplay     string      `json:"jobTypeDisplay,omitempty"`
	Status             JobStatus   `json:"status"`
	Season             *int        `json:"season,omitempty"`
	TriggeredBy        TriggerType `json:"triggeredBy,omitempty"`
	StartedByUserEmail *string     `json:"startedByUserEmail,omitempty"`
	TotalItems         *int        `json:"totalItems,omitempty"`
	ProcessedItems     int         `json:"processedItems"`
	ProgressPercentage int         `json:"progressPercentage"`
	CurrentStep        string      `json:"currentStep,omitempty"`
	StartedAt          *Time       `json:"startedAt,omitempty"`
	CompletedAt        *Time       `json:"completedAt,omitempty"`
	CreatedAt          *Time       `json:"createdAt,omitempty"`
	DurationSeconds    *int64      `json:"durationSeconds,omitempty"`
	RecordsCreated     int         `json:"recordsCreated"`
	RecordsUpdated     int         `json:"recordsUpdated"`
	ErrorCount         int         `json:"errorCount"`
	ErrorMessage       string      `json:"errorMessage,omitempty"`
}

func (j SyncJob) DisplayType() string {
	if j.JobTypeDisplay != "" {
		return j.JobTypeDisplay
	}
	return j.JobType.Display()
}

func (j SyncJob) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// Clone returns a copy that shares no pointers with j.
func (j SyncJob) Clone() SyncJob {
	c := j
	c.Season = clonePtr(j.Season)
	c.StartedByUserEmail = clonePtr(j.StartedByUserEmail)
	c.TotalItems = clonePtr(j.TotalItems)
	c.StartedAt = clonePtr(j.StartedAt)
	c.CompletedAt = clonePtr(j.CompletedAt)
	c.CreatedAt = clonePtr(j.CreatedAt)
	c.DurationSeconds = clonePtr(j.DurationSeconds)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
