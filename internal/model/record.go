package model

import "time"

// JobRecord is the local journal row for a job the client saw finish.
type JobRecord struct {
	ID              uint        `gorm:"primaryKey"`
	JobID           int64       `gorm:"uniqueIndex;not null"`
	JobType         JobType     `gorm:"index;not null"`
	Status          JobStatus   `gorm:"index;not null"`
	Season          *int
	TriggeredBy     TriggerType
	RecordsCreated  int
	RecordsUpdated  int
	ErrorCount      int
	ErrorMessage    string
	StartedAt       *time.Time
	CompletedAt     *time.Time
	DurationSeconds *int64
	ObservedAt      time.Time `gorm:"index"`
}

func (JobRecord) TableName() string {
	return "job_records"
}

func RecordFrom(j SyncJob, observedAt time.Time) JobRecord {
	rec := JobRecord{
		JobID:           j.ID,
		JobType:         j.JobType,
		Status:          j.Status,
		Season:          clonePtr(j.Season),
		TriggeredBy:     j.TriggeredBy,
		RecordsCreated:  j.RecordsCreated,
		RecordsUpdated:  j.RecordsUpdated,
		ErrorCount:      j.ErrorCount,
		ErrorMessage:    j.ErrorMessage,
		DurationSeconds: clonePtr(j.DurationSeconds),
		ObservedAt:      observedAt,
	}
	if j.StartedAt != nil {
		rec.StartedAt = new(j.StartedAt.Time)
	}
	if j.CompletedAt != nil {
		rec.CompletedAt = new(j.CompletedAt.Time)
	}
	return rec
}
