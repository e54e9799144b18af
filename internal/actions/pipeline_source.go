package actions

import (
	"context"

	"github.com/waabox/opsdeck/internal/domain"
)

// PipelineSource exposes workflow runs as domain pipelines for the TUI.
type PipelineSource struct {
	client *Client
	limit  int
}

// NewPipelineSource wraps client. limit controls how many runs are listed; must be >= 1.
func NewPipelineSource(client *Client, limit int) *PipelineSource {
	if limit < 1 {
		limit = 1
	}
	return &PipelineSource{client: client, limit: limit}
}

// ListPipelines returns the most recent workflow runs for the repository.
func (s *PipelineSource) ListPipelines(repo domain.Repository) ([]domain.Pipeline, error) {
	runs, err := s.client.withRepo(repo.Owner, repo.Name).ListRecentRuns(context.Background(), s.limit).Get()
	if err != nil {
		return nil, err
	}
	pipelines := make([]domain.Pipeline, len(runs))
	for i, run := range runs {
		pipelines[i] = run.toPipeline()
	}
	return pipelines, nil
}

// GetPipeline returns a single workflow run with all its jobs and steps.
func (s *PipelineSource) GetPipeline(repo domain.Repository, id domain.PipelineID) (domain.Pipeline, error) {
	ctx := context.Background()
	c := s.client.withRepo(repo.Owner, repo.Name)
	run, err := c.GetRun(ctx, string(id))
	if err != nil {
		return domain.Pipeline{}, err
	}
	jobs, err := c.ListRunJobs(ctx, string(id)).Get()
	if err != nil {
		return domain.Pipeline{}, err
	}
	pipeline := run.toPipeline()
	pipeline.Jobs = make([]domain.Job, len(jobs))
	for i, j := range jobs {
		pipeline.Jobs[i] = j.toJob()
	}
	return pipeline, nil
}

// GetJobLogs returns the plain-text log of one job.
func (s *PipelineSource) GetJobLogs(repo domain.Repository, id domain.JobID) (string, error) {
	return s.client.withRepo(repo.Owner, repo.Name).JobLogs(context.Background(), "", string(id)).Get()
}

// RerunPipeline re-runs a workflow run.
func (s *PipelineSource) RerunPipeline(repo domain.Repository, id domain.PipelineID) error {
	return s.client.withRepo(repo.Owner, repo.Name).RerunRun(context.Background(), string(id)).Err()
}

// CancelPipeline cancels a workflow run.
func (s *PipelineSource) CancelPipeline(repo domain.Repository, id domain.PipelineID) error {
	return s.client.withRepo(repo.Owner, repo.Name).CancelRun(context.Background(), string(id)).Err()
}
