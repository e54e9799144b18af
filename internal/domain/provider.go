package domain

// PipelineID identifies a pipeline run on the remote CI system.
type PipelineID string

// JobID identifies a single job inside a pipeline run.
type JobID string

// PipelineProvider is the port the pipeline browser reads from.
// Adapters for GitHub Actions and Jenkins implement it; the TUI knows neither.
type PipelineProvider interface {
	ListPipelines(repo Repository) ([]Pipeline, error)
	GetPipeline(repo Repository, id PipelineID) (Pipeline, error)
	GetJobLogs(repo Repository, id JobID) (string, error)
	RerunPipeline(repo Repository, id PipelineID) error
	CancelPipeline(repo Repository, id PipelineID) error
}
