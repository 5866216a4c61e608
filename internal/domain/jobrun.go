package domain

import "time"

// JobRun is one entry in the scheduler's own bookkeeping ledger. It records
// that a tick ran and what it touched; it carries no domain meaning and is
// purged past a fixed retention window.
type JobRun struct {
	JobRunID   string    `json:"id" dynamodbav:"job_run_id"`
	JobName    string    `json:"job_name" dynamodbav:"job_name"`
	StartedAt  time.Time `json:"started_at" dynamodbav:"started_at"`
	FinishedAt time.Time `json:"finished_at" dynamodbav:"finished_at"`
	Processed  int       `json:"processed" dynamodbav:"processed"`
	Failed     int       `json:"failed" dynamodbav:"failed"`
}
