package actions

import (
	"strconv"
	"time"

	"github.com/waabox/opsdeck/internal/domain"
)

// Workflow is a workflow definition as listed by GET /actions/workflows.
type Workflow struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	State string `json:"state"`
}

// WorkflowRun is one execution of a workflow.
type WorkflowRun struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	WorkflowID int64  `json:"workflow_id"`
	RunNumber  int    `json:"run_number"`
	Event      string `json:"event"`
	HeadBranch string `json:"head_branch"`
	HeadSHA    string `json:"head_sha"`
	HeadCommit struct {
		Message string `json:"message"`
		Author  struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"head_commit"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HTMLURL    string `json:"html_url"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// Job is a single job of a workflow run.
type Job struct {
	ID          int64     `json:"id"`
	RunID       int64     `json:"run_id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	Conclusion  string    `json:"conclusion"`
	StartedAt   string    `json:"started_at"`
	CompletedAt string    `json:"completed_at"`
	Steps       []JobStep `json:"steps"`
}

// JobStep is one step of a job.
type JobStep struct {
	Name        string `json:"name"`
	Number      int    `json:"number"`
	Status      string `json:"status"`
	Conclusion  string `json:"conclusion"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
}

// Artifact is a file bundle uploaded by a run.
type Artifact struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	SizeInBytes        int64  `json:"size_in_bytes"`
	Expired            bool   `json:"expired"`
	ArchiveDownloadURL string `json:"archive_download_url"`
	CreatedAt          string `json:"created_at"`
}

func (r WorkflowRun) toPipeline() domain.Pipeline {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	updated, _ := time.Parse(time.RFC3339, r.UpdatedAt)
	return domain.Pipeline{
		ID:        strconv.FormatInt(r.ID, 10),
		Branch:    r.HeadBranch,
		CommitSHA: r.HeadSHA,
		CommitMsg: r.HeadCommit.Message,
		Author:    r.HeadCommit.Author.Name,
		Status:    mapGitHubStatus(r.Status, r.Conclusion),
		CreatedAt: created,
		Duration:  span(created, updated),
		WebURL:    r.HTMLURL,
	}
}

func (j Job) toJob() domain.Job {
	started, _ := time.Parse(time.RFC3339, j.StartedAt)
	completed, _ := time.Parse(time.RFC3339, j.CompletedAt)
	steps := make([]domain.Step, len(j.Steps))
	for i, s := range j.Steps {
		steps[i] = s.toStep()
	}
	return domain.Job{
		ID:        strconv.FormatInt(j.ID, 10),
		Name:      j.Name,
		Status:    mapGitHubStatus(j.Status, j.Conclusion),
		StartedAt: started,
		Duration:  span(started, completed),
		Steps:     steps,
	}
}

func (s JobStep) toStep() domain.Step {
	started, _ := time.Parse(time.RFC3339, s.StartedAt)
	completed, _ := time.Parse(time.RFC3339, s.CompletedAt)
	return domain.Step{
		Name:     s.Name,
		Status:   mapGitHubStatus(s.Status, s.Conclusion),
		Duration: span(started, completed),
	}
}

func span(from, to time.Time) time.Duration {
	if from.IsZero() || to.IsZero() {
		return 0
	}
	return to.Sub(from)
}

func mapGitHubStatus(status, conclusion string) domain.PipelineStatus {
	if status == "in_progress" || status == "queued" || status == "waiting" {
		return domain.StatusRunning
	}
	if status == "completed" {
		switch conclusion {
		case "success", "skipped", "neutral":
			return domain.StatusSuccess
		case "failure", "timed_out", "startup_failure":
			return domain.StatusFailed
		case "cancelled":
			return domain.StatusCancelled
		}
	}
	return domain.StatusPending
}
