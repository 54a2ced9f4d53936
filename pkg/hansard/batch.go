package hansard

import "time"

// BatchReport summarizes one processing run over a set of documents. A batch
// whose failure share crosses the configured threshold is blocked from
// publication until reviewed.
type BatchReport struct {
	ID             string
	DocumentIDs    []string
	Counts         map[Status]int
	FillerCount    int
	FailedShare    float64
	PublishBlocked bool
	StartedAt      time.Time
	FinishedAt     time.Time
}
