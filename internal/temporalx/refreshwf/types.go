package refreshwf

import "time"

const (
	WorkflowName = "cache_refresh"
	ActivityRun  = "cache_refresh_run"
)

type RunInput struct {
	Trigger string `json:"trigger"`
}

// RunSummary is the activity result kept in workflow history, so it carries
// counts only; per-user failures live in the cache_refresh_runs row.
type RunSummary struct {
	RunID          string    `json:"run_id,omitempty"`
	Status         string    `json:"status"`
	Users          int       `json:"users"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	OrphansRemoved int       `json:"orphans_removed"`
	TargetDates    []string  `json:"target_dates,omitempty"`
	FinishedAt     time.Time `json:"finished_at"`
}
