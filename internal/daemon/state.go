package daemon

import (
	"statsync/internal/model"
)

// Snapshot is the daemon's view served on GET /status.
type Snapshot struct {
	Active       []model.SyncJob     `json:"active"`
	History      []model.SyncJob     `json:"history"`
	HistoryLimit int                 `json:"historyLimit"`
	Freshness    model.FreshnessList `json:"freshness"`
	Seasons      []model.SeasonData  `json:"seasons"`
}

// CategoryFreshness is one syncable category as served on GET /freshness.
type CategoryFreshness struct {
	model.DataFreshness
	Syncing bool `json:"syncing"`
}

type TriggerRequest struct {
	Type   string `json:"type"`
	Season *int   `json:"season,omitempty"`
}
