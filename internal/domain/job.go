package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobRunning        JobStatus = "running"
	JobCompleted      JobStatus = "completed"
	JobPartialFailure JobStatus = "partial_failure"
	JobFailed         JobStatus = "failed"
)

// IngestionJob records one execution of the ingestion step across 1..N
// sources. CompletedAt is the single linearization point: the job is
// mutable only while it is nil.
type IngestionJob struct {
	ID              uuid.UUID         `json:"id"`
	StartedAt       time.Time         `json:"startedAt"`
	CompletedAt     *time.Time        `json:"completedAt,omitempty"`
	Status          JobStatus         `json:"status"`
	ArticlesFetched int               `json:"articlesFetched"`
	ArticleIDs      []int64           `json:"articleIds"`
	Errors          map[string]string `json:"errors"`
}

// ResolveJobStatus computes the final job status from the per-source
// error map and the articles touched by the run. A job fails only when
// every source errored and nothing was fetched; a single healthy source
// keeps the job at partial_failure.
func ResolveJobStatus(sourceCount int, errs map[string]string, touched int) JobStatus {
	if len(errs) == 0 {
		return JobCompleted
	}
	if len(errs) == sourceCount && touched == 0 {
		return JobFailed
	}
	return JobPartialFailure
}
