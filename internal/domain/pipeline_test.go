package domain_test

import (
	"testing"

	"github.com/waabox/opsdeck/internal/domain"
)

func TestPipelineStatus_ActiveAndFinished(t *testing.T) {
	active := []domain.PipelineStatus{domain.StatusPending, domain.StatusRunning}
	finished := []domain.PipelineStatus{domain.StatusSuccess, domain.StatusFailed, domain.StatusCancelled}

	for _, s := range active {
		if !s.Active() || s.Finished() {
			t.Errorf("expected %s to be active", s)
		}
	}
	for _, s := range finished {
		if s.Active() || !s.Finished() {
			t.Errorf("expected %s to be finished", s)
		}
	}
	if domain.PipelineStatus("").Active() || domain.PipelineStatus("").Finished() {
		t.Error("expected the empty status to be neither active nor finished")
	}
}
