package repository

import (
	"time"

	"statsync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobRepository journals finished jobs so history survives daemon restarts.
type JobRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db, now: time.Now}
}

// Save upserts the record for job, keyed by the backend job id.
func (r *JobRepository) Save(job model.SyncJob) error {
	rec := model.RecordFrom(job, r.now())

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		UpdateAll: true,
	}).Create(&rec).Error
}

func (r *JobRepository) GetRecent(limit int) ([]model.JobRecord, error) {
	var records []model.JobRecord
	result := r.db.
		Order("observed_at desc").
		Order("job_id desc").
		Limit(limit).
		Find(&records)

	return records, result.Error
}

func (r *JobRepository) GetByJobID(id int64) (model.JobRecord, error) {
	var rec model.JobRecord
	return rec, r.db.Where("job_id = ?", id).First(&rec).Error
}

func (r *JobRepository) GetFailed() ([]model.JobRecord, error) {
	var records []model.JobRecord
	result := r.db.
		Where("status = ?", model.JobStatusFailed).
		Order("observed_at desc").
		Find(&records)

	return records, result.Error
}

type Stats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}

func (r *JobRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := r.db.Model(&model.JobRecord{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	counts := map[model.JobStatus]*int64{
		model.JobStatusCompleted: &stats.Completed,
		model.JobStatusFailed:    &stats.Failed,
		model.JobStatusCancelled: &stats.Cancelled,
	}
	for status, dst := range counts {
		if err := r.db.Model(&model.JobRecord{}).
			Where("status = ?", status).
			Count(dst).Error; err != nil {
			return stats, err
		}
	}

	return stats, nil
}
