package record

import "time"

const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Run is one audit row per destructive invocation. The engine itself stays
// stateless; this is a log, never an input to the next scan.
type Run struct {
	ID         string
	ProjectID  int
	Mode       string
	StartedAt  time.Time
	FinishedAt time.Time
	Planned    int
	Succeeded  int
	Failed     int
	Skipped    int
	Status     string
	Details    string
}

func New(id string, projectID int, mode string, startedAt time.Time) *Run {
	return &Run{
		ID:        id,
		ProjectID: projectID,
		Mode:      mode,
		StartedAt: startedAt,
		Status:    StatusCompleted,
	}
}
