package provider_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/waabox/opsdeck/internal/domain"
	"github.com/waabox/opsdeck/internal/provider"
)

func TestAuthGuard_PassesThroughOnSuccess(t *testing.T) {
	g := provider.NewAuthGuard(&fakeProvider{pipelines: []domain.Pipeline{{ID: "1"}}}, "github")

	result, err := g.ListPipelines(domain.Repository{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0].ID != "1" {
		t.Errorf("unexpected result: %v", result)
	}
}

func TestAuthGuard_PassesThroughOtherErrors(t *testing.T) {
	g := provider.NewAuthGuard(&fakeProvider{err: fmt.Errorf("network timeout")}, "github")

	_, err := g.ListPipelines(domain.Repository{})
	var authErr *provider.AuthExpiredError
	if errors.As(err, &authErr) {
		t.Fatal("did not expect AuthExpiredError")
	}
	if err == nil || err.Error() != "network timeout" {
		t.Errorf("expected original error, got %v", err)
	}
}

func TestAuthGuard_UnauthorizedBecomesAuthExpired(t *testing.T) {
	inner := &fakeProvider{err: fmt.Errorf("list runs: %w", domain.ErrUnauthorized)}
	g := provider.NewAuthGuard(inner, "github")

	calls := map[string]error{}
	_, calls["list"] = g.ListPipelines(domain.Repository{})
	_, calls["get"] = g.GetPipeline(domain.Repository{}, "1")
	_, calls["logs"] = g.GetJobLogs(domain.Repository{}, "1")
	calls["rerun"] = g.RerunPipeline(domain.Repository{}, "1")
	calls["cancel"] = g.CancelPipeline(domain.Repository{}, "1")

	for name, err := range calls {
		var authErr *provider.AuthExpiredError
		if !errors.As(err, &authErr) {
			t.Errorf("%s: expected AuthExpiredError, got %v", name, err)
			continue
		}
		if authErr.Provider != "github" {
			t.Errorf("%s: expected provider github, got %s", name, authErr.Provider)
		}
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("%s: expected wrapped ErrUnauthorized", name)
		}
	}
}
