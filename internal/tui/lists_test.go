package tui_test

import (
	"strings"
	"testing"
	"time"

	"github.com/waabox/opsdeck/internal/domain"
	"github.com/waabox/opsdeck/internal/tui"
)

func TestPipelineListModel_RowShowsStatusBranchAndAge(t *testing.T) {
	m := tui.NewPipelineListModel([]domain.Pipeline{
		{ID: "100", Branch: "main", Status: domain.StatusSuccess, CreatedAt: time.Now().Add(-3 * time.Hour)},
		{ID: "99", Branch: "feature/a-very-long-branch-name", Status: domain.StatusFailed},
	})

	lines := strings.Split(strings.TrimRight(m.View(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d:\n%s", len(lines), m.View())
	}
	if !strings.HasPrefix(lines[0], "> ✓ #100 main") || !strings.HasSuffix(lines[0], "3h ago") {
		t.Errorf("unexpected first row %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  ✗ #99 feature/a-very-long…") || !strings.HasSuffix(lines[1], "--") {
		t.Errorf("unexpected second row %q", lines[1])
	}
}

func TestPipelineListModel_CursorStaysInBounds(t *testing.T) {
	m := tui.NewPipelineListModel([]domain.Pipeline{{ID: "1"}, {ID: "2"}})

	if m = m.MoveUp(); m.SelectedIndex() != 0 {
		t.Errorf("expected 0 after moving up at the top, got %d", m.SelectedIndex())
	}
	if m = m.MoveDown().MoveDown(); m.SelectedIndex() != 1 {
		t.Errorf("expected 1 after moving past the end, got %d", m.SelectedIndex())
	}
	if m.SelectedPipeline().ID != "2" {
		t.Errorf("expected pipeline 2, got %s", m.SelectedPipeline().ID)
	}
}

func TestPipelineListModel_Empty(t *testing.T) {
	m := tui.NewPipelineListModel(nil).MoveDown()

	if m.View() != "No pipelines found." {
		t.Errorf("unexpected view %q", m.View())
	}
	if m.SelectedPipeline().ID != "" {
		t.Errorf("expected zero pipeline, got %+v", m.SelectedPipeline())
	}
}

func TestPipelineListModel_UpdateKeepsSelectionByID(t *testing.T) {
	m := tui.NewPipelineListModel([]domain.Pipeline{{ID: "3"}, {ID: "2"}, {ID: "1"}})
	m = m.MoveDown()

	// A new run appeared at the top.
	m = m.UpdatePipelines([]domain.Pipeline{{ID: "4"}, {ID: "3"}, {ID: "2"}, {ID: "1"}})

	if m.SelectedPipeline().ID != "2" {
		t.Errorf("expected pipeline 2 to stay selected, got %s", m.SelectedPipeline().ID)
	}
	if len(m.Pipelines()) != 4 {
		t.Errorf("expected 4 pipelines, got %d", len(m.Pipelines()))
	}
}

func TestPipelineListModel_UpdateResetsCursorWhenSelectionGone(t *testing.T) {
	m := tui.NewPipelineListModel([]domain.Pipeline{{ID: "1"}, {ID: "2"}})
	m = m.MoveDown()

	m = m.UpdatePipelines([]domain.Pipeline{{ID: "1"}})

	if m.SelectedIndex() != 0 {
		t.Errorf("expected cursor reset to 0, got %d", m.SelectedIndex())
	}
}

func TestJobDetailModel_StageShownWhenDifferentFromName(t *testing.T) {
	m := tui.NewJobDetailModel([]domain.Job{
		{ID: "1", Name: "compile", Stage: "build", Status: domain.StatusSuccess, Duration: 45 * time.Second},
		{ID: "2", Name: "test", Stage: "test", Status: domain.StatusRunning, Duration: 72 * time.Second},
	})

	view := m.ViewFocused()
	if !strings.Contains(view, "> ✓ build / compile") || !strings.Contains(view, "45s") {
		t.Errorf("expected stage and duration on first row, got:\n%s", view)
	}
	if !strings.Contains(view, "  ● test ") || strings.Contains(view, "test / test") || !strings.Contains(view, "1m12s") {
		t.Errorf("expected plain name on second row, got:\n%s", view)
	}
	if strings.Contains(m.View(), ">") {
		t.Errorf("expected no cursor in unfocused view, got:\n%s", m.View())
	}
}

func TestJobDetailModel_SelectedJob(t *testing.T) {
	if _, ok := tui.NewJobDetailModel(nil).SelectedJob(); ok {
		t.Error("expected no selection in an empty panel")
	}

	m := tui.NewJobDetailModel([]domain.Job{{ID: "1", Name: "build"}, {ID: "2", Name: "test"}}).MoveDown().MoveDown()
	job, ok := m.SelectedJob()
	if !ok || job.Name != "test" || m.Cursor() != 1 {
		t.Errorf("expected test job at cursor 1, got %+v (cursor %d)", job, m.Cursor())
	}
}

func TestStepListModel_RendersAndNavigates(t *testing.T) {
	m := tui.NewStepListModel([]domain.Step{
		{Name: "checkout", Status: domain.StatusSuccess, Duration: 2 * time.Second},
		{Name: "run tests", Status: domain.StatusFailed},
	})

	view := m.View()
	if !strings.Contains(view, "> ✓ checkout") || !strings.Contains(view, "  ✗ run tests") {
		t.Errorf("unexpected view:\n%s", view)
	}
	if m = m.MoveDown().MoveDown(); m.Cursor() != 1 {
		t.Errorf("expected cursor 1, got %d", m.Cursor())
	}
	if m = m.MoveUp().MoveUp(); m.Cursor() != 0 {
		t.Errorf("expected cursor 0, got %d", m.Cursor())
	}
	if len(m.Steps()) != 2 {
		t.Errorf("expected 2 steps, got %d", len(m.Steps()))
	}
}

func TestStepListModel_Empty(t *testing.T) {
	if view := tui.NewStepListModel(nil).View(); view != "No steps found." {
		t.Errorf("unexpected view %q", view)
	}
}
