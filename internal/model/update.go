package model

// JobUpdate is a partial SyncJob pushed over the progress stream.
// A nil field was absent from the payload (or null) and leaves the
// previous value untouched when merged.
type JobUpdate struct {
	ID                 *int64       `json:"id"`
	JobType            *JobType     `json:"jobType"`
	Status             *JobStatus   `json:"status"`
	Season             *int         `json:"season"`
	TriggeredBy        *TriggerType `json:"triggeredBy"`
	StartedByUserEmail *string      `json:"startedByUserEmail"`
	TotalItems         *int         `json:"totalItems"`
	ProcessedItems     *int         `json:"processedItems"`
	ProgressPercentage *int         `json:"progressPercentage"`
	CurrentStep        *string      `json:"currentStep"`
	StartedAt          *Time        `json:"startedAt"`
	CompletedAt        *Time        `json:"completedAt"`
	DurationSeconds    *int64       `json:"durationSeconds"`
	RecordsCreated     *int         `json:"recordsCreated"`
	RecordsUpdated     *int         `json:"recordsUpdated"`
	ErrorCount         *int         `json:"errorCount"`
	ErrorMessage       *string      `json:"errorMessage"`
}

// UpdateFrom turns a full snapshot into an update carrying every field.
func UpdateFrom(j SyncJob) JobUpdate {
	c := j.Clone()
	return JobUpdate{
		ID:                 &c.ID,
		JobType:            &c.JobType,
		Status:             &c.Status,
		Season:             c.Season,
		TriggeredBy:        &c.TriggeredBy,
		StartedByUserEmail: c.StartedByUserEmail,
		TotalItems:         c.TotalItems,
		ProcessedItems:     &c.ProcessedItems,
		ProgressPercentage: &c.ProgressPercentage,
		CurrentStep:        &c.CurrentStep,
		StartedAt:          c.StartedAt,
		CompletedAt:        c.CompletedAt,
		DurationSeconds:    c.DurationSeconds,
		RecordsCreated:     &c.RecordsCreated,
		RecordsUpdated:     &c.RecordsUpdated,
		ErrorCount:         &c.ErrorCount,
		ErrorMessage:       &c.ErrorMessage,
	}
}

// Merge overlays the fields present in u onto j and returns the result.
// A terminal status is never replaced by a non-terminal one, progress is
// frozen once terminal, and the percentage of a running job never goes
// backwards.
func (j SyncJob) Merge(u JobUpdate) SyncJob {
	m := j.Clone()
	wasTerminal := j.Status.IsTerminal()

	if u.ID != nil && m.ID == 0 {
		m.ID = *u.ID
	}
	if u.JobType != nil && *u.JobType != "" {
		m.JobType = *u.JobType
	}
	if u.Status != nil && *u.Status != "" {
		if !m.Status.IsTerminal() || u.Status.IsTerminal() {
			m.Status = *u.Status
		}
	}
	if u.Season != nil {
		m.Season = new(*u.Season)
	}
	if u.TriggeredBy != nil && *u.TriggeredBy != "" {
		m.TriggeredBy = *u.TriggeredBy
	}
	if u.StartedByUserEmail != nil {
		m.StartedByUserEmail = new(*u.StartedByUserEmail)
	}
	if u.TotalItems != nil {
		m.TotalItems = new(*u.TotalItems)
	}
	if u.ProcessedItems != nil {
		m.ProcessedItems = *u.ProcessedItems
	}
	if u.ProgressPercentage != nil {
		p := clampPercent(*u.ProgressPercentage)
		if !wasTerminal && (m.Status != JobStatusRunning || p >= m.ProgressPercentage) {
			m.ProgressPercentage = p
		}
	}
	if u.CurrentStep != nil {
		m.CurrentStep = *u.CurrentStep
	}
	if u.StartedAt != nil {
		m.StartedAt = new(*u.StartedAt)
	}
	if u.CompletedAt != nil {
		m.CompletedAt = new(*u.CompletedAt)
	}
	if u.DurationSeconds != nil {
		m.DurationSeconds = new(*u.DurationSeconds)
	}
	if u.RecordsCreated != nil {
		m.RecordsCreated = *u.RecordsCreated
	}
	if u.RecordsUpdated != nil {
		m.RecordsUpdated = *u.RecordsUpdated
	}
	if u.ErrorCount != nil {
		m.ErrorCount = *u.ErrorCount
	}
	if u.ErrorMessage != nil {
		m.ErrorMessage = *u.ErrorMessage
	}

	return m
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
