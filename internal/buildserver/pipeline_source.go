package buildserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/waabox/opsdeck/internal/domain"
)

// PipelineSource exposes the builds of one Jenkins job as domain pipelines.
// Pipeline stages come from the Pipeline Stage View API when the server has
// it; other jobs show a single job per build.
type PipelineSource struct {
	client *Client
	job    string
	limit  int
}

// NewPipelineSource wraps client. An empty job falls back to the repository
// name passed to each call.
func NewPipelineSource(client *Client, job string, limit int) *PipelineSource {
	if limit < 1 {
		limit = 1
	}
	return &PipelineSource{client: client, job: job, limit: limit}
}

func (s *PipelineSource) jobName(repo domain.Repository) string {
	if s.job != "" {
		return s.job
	}
	return repo.Name
}

type stageDescription struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	StartTimeMillis int64  `json:"startTimeMillis"`
	DurationMillis  int64  `json:"durationMillis"`
}

// ListPipelines returns the most recent builds of the job.
func (s *PipelineSource) ListPipelines(repo domain.Repository) ([]domain.Pipeline, error) {
	builds, err := s.client.Builds(context.Background(), s.jobName(repo))
	if err != nil {
		return nil, err
	}
	if len(builds) > s.limit {
		builds = builds[:s.limit]
	}
	pipelines := make([]domain.Pipeline, len(builds))
	for i, b := range builds {
		pipelines[i] = b.toPipeline()
	}
	return pipelines, nil
}

// GetPipeline returns one build with its stages as jobs.
func (s *PipelineSource) GetPipeline(repo domain.Repository, id domain.PipelineID) (domain.Pipeline, error) {
	ctx := context.Background()
	name := s.jobName(repo)
	number, err := parseBuildNumber(string(id))
	if err != nil {
		return domain.Pipeline{}, err
	}
	b, err := s.client.BuildInfo(ctx, name, number)
	if err != nil {
		return domain.Pipeline{}, err
	}
	pipeline := b.toPipeline()

	var describe struct {
		Stages []stageDescription `json:"stages"`
	}
	err = s.client.getJSON(ctx, "describe build", buildPath(name, number)+"/wfapi/describe", nil, &describe)
	switch {
	case err == nil && len(describe.Stages) > 0:
		pipeline.Jobs = make([]domain.Job, len(describe.Stages))
		for i, st := range describe.Stages {
			pipeline.Jobs[i] = st.toJob(number)
		}
	case err == nil || errors.Is(err, domain.ErrNotFound):
		pipeline.Jobs = []domain.Job{{
			ID:        fmt.Sprintf("%d/build", number),
			Name:      name,
			Stage:     "build",
			Status:    pipeline.Status,
			Duration:  pipeline.Duration,
			StartedAt: pipeline.CreatedAt,
		}}
	default:
		return domain.Pipeline{}, err
	}
	return pipeline, nil
}

// GetJobLogs returns the console output of the build the job belongs to.
// Jenkins keeps a single log per build.
func (s *PipelineSource) GetJobLogs(repo domain.Repository, id domain.JobID) (string, error) {
	build, _, _ := strings.Cut(string(id), "/")
	number, err := parseBuildNumber(build)
	if err != nil {
		return "", err
	}
	return s.client.ConsoleOutput(context.Background(), s.jobName(repo), number)
}

// RerunPipeline queues a new build of the job. Build parameters are not replayed.
func (s *PipelineSource) RerunPipeline(repo domain.Repository, _ domain.PipelineID) error {
	_, err := s.client.Build(context.Background(), s.jobName(repo), nil)
	return err
}

// CancelPipeline aborts a running build.
func (s *PipelineSource) CancelPipeline(repo domain.Repository, id domain.PipelineID) error {
	number, err := parseBuildNumber(string(id))
	if err != nil {
		return err
	}
	return s.client.StopBuild(context.Background(), s.jobName(repo), number)
}

func parseBuildNumber(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid build number %q", s)
	}
	return n, nil
}

func (b Build) toPipeline() domain.Pipeline {
	created := time.UnixMilli(b.Timestamp)
	duration := time.Duration(b.Duration) * time.Millisecond
	if b.Building && b.Timestamp > 0 {
		duration = time.Since(created)
	}
	msg := b.Description
	if msg == "" {
		msg = b.DisplayName
	}
	return domain.Pipeline{
		ID:        strconv.FormatInt(b.Number, 10),
		CommitMsg: msg,
		Status:    mapBuildResult(b.Result, b.Building),
		CreatedAt: created,
		Duration:  duration,
		WebURL:    b.URL,
	}
}

func (st stageDescription) toJob(build int64) domain.Job {
	return domain.Job{
		ID:        fmt.Sprintf("%d/%s", build, st.ID),
		Name:      st.Name,
		Stage:     st.Name,
		Status:    mapStageStatus(st.Status),
		Duration:  time.Duration(st.DurationMillis) * time.Millisecond,
		StartedAt: time.UnixMilli(st.StartTimeMillis),
	}
}

func mapBuildResult(result string, building bool) domain.PipelineStatus {
	if building {
		return domain.StatusRunning
	}
	switch result {
	case "SUCCESS":
		return domain.StatusSuccess
	case "FAILURE", "UNSTABLE":
		return domain.StatusFailed
	case "ABORTED", "NOT_BUILT":
		return domain.StatusCancelled
	default:
		return domain.StatusPending
	}
}

func mapStageStatus(status string) domain.PipelineStatus {
	switch status {
	case "SUCCESS":
		return domain.StatusSuccess
	case "FAILED", "UNSTABLE":
		return domain.StatusFailed
	case "ABORTED", "NOT_EXECUTED":
		return domain.StatusCancelled
	case "IN_PROGRESS", "PAUSED_PENDING_INPUT":
		return domain.StatusRunning
	default:
		return domain.StatusPending
	}
}
