package domain

import "time"

// PipelineStatus is the normalized state of a pipeline, job or step,
// whichever CI system reported it.
type PipelineStatus string

const (
	StatusPending   PipelineStatus = "pending"
	StatusRunning   PipelineStatus = "running"
	StatusSuccess   PipelineStatus = "success"
	StatusFailed    PipelineStatus = "failed"
	StatusCancelled PipelineStatus = "cancelled"
)

// Active reports whether the work is queued or still executing.
func (s PipelineStatus) Active() bool {
	return s == StatusPending || s == StatusRunning
}

// Finished reports a terminal state.
func (s PipelineStatus) Finished() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

type Step struct {
	Name     string
	Status   PipelineStatus
	Duration time.Duration
}

// Job is a unit of work inside a pipeline: a GitHub Actions job or a
// Jenkins stage. Stage is empty when the system has no stage concept.
type Job struct {
	ID        string
	Name      string
	Stage     string
	Status    PipelineStatus
	Duration  time.Duration
	StartedAt time.Time
	Steps     []Step
}

// Pipeline is one run: a workflow run or a build. Jenkins builds carry no
// commit, so Branch, CommitSHA and Author may be empty.
type Pipeline struct {
	ID        string
	Branch    string
	CommitSHA string
	CommitMsg string
	Author    string
	Status    PipelineStatus
	CreatedAt time.Time
	Duration  time.Duration
	WebURL    string
	Jobs      []Job
}
