// Package actions talks to the GitHub Actions REST API of a single repository.
package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/waabox/opsdeck/internal/domain"
	"github.com/waabox/opsdeck/internal/telemetry"
)

const (
	defaultBaseURL = "https://api.github.com"
	system         = "github"
)

// Config holds the connection parameters for one repository.
// BaseURL is used for testing and GitHub Enterprise; leave empty for api.github.com.
type Config struct {
	Token    string
	Owner    string
	Repo     string
	BaseURL  string
	Timeout  time.Duration
	Recorder telemetry.Recorder
}

// Client is the GitHub Actions facade. Every call is one HTTP round trip.
type Client struct {
	token   *atomic.Pointer[string]
	owner   string
	repo    string
	baseURL string
	http    *http.Client
	rec     telemetry.Recorder
}

// New builds a client and verifies the repository is reachable with the token.
// A 401 is returned as domain.ErrUnauthorized.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	token := cfg.Token
	c := &Client{
		token:   &atomic.Pointer[string]{},
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		rec:     cfg.Recorder,
	}
	c.token.Store(&token)
	var repo struct {
		FullName string `json:"full_name"`
	}
	if err := c.getJSON(ctx, "get repository", "", &repo); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return nil, fmt.Errorf("github credentials rejected: %w", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("verifying repository %s/%s: %w", cfg.Owner, cfg.Repo, err)
	}
	return c, nil
}

// Repository returns the repository the client is bound to.
func (c *Client) Repository() domain.Repository {
	return domain.Repository{Owner: c.owner, Name: c.repo}
}

// SetToken replaces the bearer token, for example after a new device-flow
// login. Copies made for other repositories see the new token too.
func (c *Client) SetToken(token string) {
	c.token.Store(&token)
}

// withRepo returns a copy bound to another repository on the same host.
func (c *Client) withRepo(owner, name string) *Client {
	if owner == "" || name == "" || (owner == c.owner && name == c.repo) {
		return c
	}
	cp := *c
	cp.owner, cp.repo = owner, name
	return &cp
}

// Dispatch triggers a workflow_dispatch event. workflow is the workflow file
// name or ID. Success is a 204 from GitHub. Empty inputs are left out of
// the payload; GitHub rejects a null inputs object.
func (c *Client) Dispatch(ctx context.Context, workflow, ref string, inputs map[string]string) domain.Outcome[struct{}] {
	payload := map[string]any{"ref": ref}
	if len(inputs) > 0 {
		payload["inputs"] = inputs
	}
	path := "/actions/workflows/" + url.PathEscape(workflow) + "/dispatches"
	err := c.expect(ctx, "dispatch workflow", http.MethodPost, path, payload, http.StatusNoContent, nil)
	return domain.From(struct{}{}, err)
}

// ListRuns returns the runs of one workflow. An empty workflowID lists the
// runs of every workflow in the repository.
func (c *Client) ListRuns(ctx context.Context, workflowID string) domain.Outcome[[]WorkflowRun] {
	path := "/actions/runs"
	if workflowID != "" {
		path = "/actions/workflows/" + url.PathEscape(workflowID) + "/runs"
	}
	return c.listRuns(ctx, path)
}

// ListRecentRuns returns at most limit runs across all workflows, newest first.
func (c *Client) ListRecentRuns(ctx context.Context, limit int) domain.Outcome[[]WorkflowRun] {
	return c.listRuns(ctx, fmt.Sprintf("/actions/runs?per_page=%d", limit))
}

func (c *Client) listRuns(ctx context.Context, path string) domain.Outcome[[]WorkflowRun] {
	var result struct {
		WorkflowRuns []WorkflowRun `json:"workflow_runs"`
	}
	if err := c.getJSON(ctx, "list runs", path, &result); err != nil {
		return domain.Fail[[]WorkflowRun](err)
	}
	return domain.Ok(result.WorkflowRuns)
}

// GetRun returns a single workflow run.
func (c *Client) GetRun(ctx context.Context, runID string) (WorkflowRun, error) {
	var run WorkflowRun
	if err := c.getJSON(ctx, "get run", "/actions/runs/"+url.PathEscape(runID), &run); err != nil {
		return WorkflowRun{}, err
	}
	return run, nil
}

// RunLogs returns the log archive of a run as text.
func (c *Client) RunLogs(ctx context.Context, runID string) domain.Outcome[string] {
	var buf bytes.Buffer
	err := c.expect(ctx, "get run logs", http.MethodGet, "/actions/runs/"+url.PathEscape(runID)+"/logs", nil, http.StatusOK, &buf)
	return domain.From(buf.String(), err)
}

// JobLogs returns the plain-text log of one job. runID only labels failures;
// GitHub addresses job logs by job ID alone.
func (c *Client) JobLogs(ctx context.Context, runID, jobID string) domain.Outcome[string] {
	var buf bytes.Buffer
	err := c.expect(ctx, "get job logs", http.MethodGet, "/actions/jobs/"+url.PathEscape(jobID)+"/logs", nil, http.StatusOK, &buf)
	return domain.From(buf.String(), err)
}

// ListRunJobs returns the jobs of a run, including their steps.
func (c *Client) ListRunJobs(ctx context.Context, runID string) domain.Outcome[[]Job] {
	var result struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.getJSON(ctx, "list run jobs", "/actions/runs/"+url.PathEscape(runID)+"/jobs", &result); err != nil {
		return domain.Fail[[]Job](err)
	}
	return domain.Ok(result.Jobs)
}

// ListArtifacts returns the artifacts uploaded by a run.
func (c *Client) ListArtifacts(ctx context.Context, runID string) domain.Outcome[[]Artifact] {
	var result struct {
		Artifacts []Artifact `json:"artifacts"`
	}
	if err := c.getJSON(ctx, "list artifacts", "/actions/runs/"+url.PathEscape(runID)+"/artifacts", &result); err != nil {
		return domain.Fail[[]Artifact](err)
	}
	return domain.Ok(result.Artifacts)
}

// DownloadArtifact writes the artifact zip to dest byte for byte and returns dest.
// Nothing is written unless GitHub answers 200.
func (c *Client) DownloadArtifact(ctx context.Context, artifactID, dest string) domain.Outcome[string] {
	var buf bytes.Buffer
	if err := c.expect(ctx, "download artifact", http.MethodGet, "/actions/artifacts/"+url.PathEscape(artifactID)+"/zip", nil, http.StatusOK, &buf); err != nil {
		return domain.Fail[string](err)
	}
	if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
		return domain.Fail[string](fmt.Errorf("writing artifact to %s: %w", dest, err))
	}
	return domain.Ok(dest)
}

// ListWorkflows returns the workflows defined in the repository.
func (c *Client) ListWorkflows(ctx context.Context) domain.Outcome[[]Workflow] {
	var result struct {
		Workflows []Workflow `json:"workflows"`
	}
	if err := c.getJSON(ctx, "list workflows", "/actions/workflows", &result); err != nil {
		return domain.Fail[[]Workflow](err)
	}
	return domain.Ok(result.Workflows)
}

// ResolveWorkflowID returns the ID of the first workflow whose path equals
// path exactly. No match is reported as domain.ErrNotFound.
func (c *Client) ResolveWorkflowID(ctx context.Context, path string) domain.Outcome[string] {
	workflows, err := c.ListWorkflows(ctx).Get()
	if err != nil {
		return domain.Fail[string](err)
	}
	for _, w := range workflows {
		if w.Path == path {
			return domain.Ok(strconv.FormatInt(w.ID, 10))
		}
	}
	return domain.Fail[string](fmt.Errorf("workflow %q: %w", path, domain.ErrNotFound))
}

// CancelRun requests cancellation of a run. Success is a 202.
func (c *Client) CancelRun(ctx context.Context, runID string) domain.Outcome[struct{}] {
	err := c.expect(ctx, "cancel run", http.MethodPost, "/actions/runs/"+url.PathEscape(runID)+"/cancel", nil, http.StatusAccepted, nil)
	return domain.From(struct{}{}, err)
}

// RerunRun re-runs every job of a run. Success is a 201.
func (c *Client) RerunRun(ctx context.Context, runID string) domain.Outcome[struct{}] {
	err := c.expect(ctx, "rerun run", http.MethodPost, "/actions/runs/"+url.PathEscape(runID)+"/rerun", nil, http.StatusCreated, nil)
	return domain.From(struct{}{}, err)
}

func (c *Client) getJSON(ctx context.Context, op, path string, target any) error {
	var buf bytes.Buffer
	if err := c.expect(ctx, op, http.MethodGet, path, nil, http.StatusOK, &buf); err != nil {
		return err
	}
	if err := json.Unmarshal(buf.Bytes(), target); err != nil {
		return fmt.Errorf("decoding %s response: %w", op, err)
	}
	return nil
}

// expect performs one request and fails unless GitHub answers with want.
// The response body is copied into out when out is non-nil.
func (c *Client) expect(ctx context.Context, op, method, path string, payload any, want int, out io.Writer) (err error) {
	start := time.Now()
	defer func() { c.rec.Done(op, start, err) }()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding %s payload: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s%s", c.baseURL, c.owner, c.repo, path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if token := *c.token.Load(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.TransportError(system, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		text, _ := io.ReadAll(resp.Body)
		return domain.HTTPError(system, op, resp.StatusCode, string(text))
	}
	if out != nil {
		if _, err := io.Copy(out, resp.Body); err != nil {
			return domain.TransportError(system, op, err)
		}
	}
	return nil
}
