package model

import "time"

// JobState is the lifecycle state of a submitted segmentation run.
type JobState string

// Job states.
const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// Job is one asynchronous segmentation request. ID doubles as the run id of the result.
type Job struct {
	ID          string    `json:"id"`
	RequestKey  string    `json:"request_key,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// RunStatus reports the progress of a Job.
type RunStatus struct {
	ID          string     `json:"id" yaml:"id"`
	State       JobState   `json:"state" yaml:"state"`
	SubmittedAt time.Time  `json:"submitted_at" yaml:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	Result      *Result    `json:"result,omitempty" yaml:"result,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (s RunStatus) Done() bool {
	return s.State == JobSucceeded || s.State == JobFailed
}
