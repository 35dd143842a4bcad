package ledger

import "time"

// Attempt statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run statuses.
const (
	RunActive    = "active"
	RunCompleted = "completed"
	RunAssembled = "assembled"
	RunAborted   = "aborted"
)

// Run describes one `generate` invocation.
type Run struct {
	ID         string
	Topic      string
	OutputDir  string
	SceneCount int
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	VideoPath  string
}

// Attempt is a single provider call for one asset.
type Attempt struct {
	ID           int64
	RunID        string
	AssetID      string
	SceneID      string
	SceneIndex   int
	AssetType    string
	Provider     string
	Retry        bool
	Status       string
	Outcome      string
	ErrorMessage string
	Bytes        int64
	Duration     time.Duration
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Finish carries the result of an attempt.
type Finish struct {
	Status       string
	Outcome      string
	ErrorMessage string
	Bytes        int64
	Duration     time.Duration
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	RunID     string
	AssetID   string
	AssetType string
	Status    string
	Limit     int
}

// Summary aggregates the attempts of a run.
type Summary struct {
	RunID     string
	Attempts  int
	Succeeded int
	Failed    int
	Running   int
	Retries   int
	Bytes     int64
	Outcomes  map[string]int
}
