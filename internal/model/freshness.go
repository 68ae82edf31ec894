package model

type FreshnessLevel string

const (
	FreshnessFresh    FreshnessLevel = "FRESH"
	FreshnessStale    FreshnessLevel = "STALE"
	FreshnessCritical FreshnessLevel = "CRITICAL"
)

// Severity orders levels from 0 (fresh) upwards. Unknown levels rank highest.
func (l FreshnessLevel) Severity() int {
	switch l {
	case FreshnessFresh:
		return 0
	case FreshnessStale:
		return 1
	case FreshnessCritical:
		return 2
	default:
		return 3
	}
}

type DataFreshness struct {
	Type         JobType        `json:"type"`
	TypeDisplay  string         `json:"typeDisplay,omitempty"`
	LastSyncedAt *Time          `json:"lastSyncedAt,omitempty"`
	Level        FreshnessLevel `json:"level"`
	Description  string         `json:"description"`
}

func (f DataFreshness) DisplayType() string {
	if f.TypeDisplay != "" {
		return f.TypeDisplay
	}
	return f.Type.Display()
}

type FreshnessList []DataFreshness

// Categories drops the aggregate full-sync entry, leaving one entry per
// individually syncable category.
func (l FreshnessList) Categories() FreshnessList {
	out := make(FreshnessList, 0, len(l))
	for _, f := range l {
		if f.Type == JobTypeFullSync {
			continue
		}
		out = append(out, f)
	}
	return out
}

// AtLeast returns the categories whose level is at least as severe as min.
func (l FreshnessList) AtLeast(min FreshnessLevel) FreshnessList {
	out := make(FreshnessList, 0, len(l))
	for _, f := range l.Categories() {
		if f.Level.Severity() >= min.Severity() {
			out = append(out, f)
		}
	}
	return out
}

type SeasonData struct {
	Season             int   `json:"season"`
	GamesCount         int64 `json:"gamesCount"`
	BattingStatsCount  int64 `json:"battingStatsCount"`
	PitchingStatsCount int64 `json:"pitchingStatsCount"`
	RosterEntriesCount int64 `json:"rosterEntriesCount"`
	StandingsCount     int64 `json:"standingsCount"`
	IsCurrent          bool  `json:"isCurrent"`
}
