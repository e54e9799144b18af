package provider

import (
	"errors"
	"fmt"

	"github.com/waabox/opsdeck/internal/domain"
)

// AuthExpiredError reports that a provider rejected its credentials and an
// interactive login is needed.
type AuthExpiredError struct {
	Provider string
	Err      error
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("%s session expired: re-authentication required", e.Provider)
}

func (e *AuthExpiredError) Unwrap() error {
	return e.Err
}

// AuthGuard wraps a PipelineProvider and turns credential rejections into
// *AuthExpiredError. Every other result passes through unchanged.
type AuthGuard struct {
	inner    domain.PipelineProvider
	provider string
}

var _ domain.PipelineProvider = (*AuthGuard)(nil)

// NewAuthGuard wraps inner. providerName is reported in AuthExpiredError.
func NewAuthGuard(inner domain.PipelineProvider, providerName string) *AuthGuard {
	return &AuthGuard{inner: inner, provider: providerName}
}

func (g *AuthGuard) check(err error) error {
	if err != nil && errors.Is(err, domain.ErrUnauthorized) {
		return &AuthExpiredError{Provider: g.provider, Err: err}
	}
	return err
}

func (g *AuthGuard) ListPipelines(repo domain.Repository) ([]domain.Pipeline, error) {
	pipelines, err := g.inner.ListPipelines(repo)
	return pipelines, g.check(err)
}

func (g *AuthGuard) GetPipeline(repo domain.Repository, id domain.PipelineID) (domain.Pipeline, error) {
	pipeline, err := g.inner.GetPipeline(repo, id)
	return pipeline, g.check(err)
}

func (g *AuthGuard) GetJobLogs(repo domain.Repository, id domain.JobID) (string, error) {
	logs, err := g.inner.GetJobLogs(repo, id)
	return logs, g.check(err)
}

func (g *AuthGuard) RerunPipeline(repo domain.Repository, id domain.PipelineID) error {
	return g.check(g.inner.RerunPipeline(repo, id))
}

func (g *AuthGuard) CancelPipeline(repo domain.Repository, id domain.PipelineID) error {
	return g.check(g.inner.CancelPipeline(repo, id))
}
