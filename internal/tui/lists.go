package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/waabox/opsdeck/internal/domain"
)

// cursor is an immutable list position shared by the three panels.
type cursor[T any] struct {
	items []T
	pos   int
}

func (c cursor[T]) down() cursor[T] {
	if c.pos < len(c.items)-1 {
		c.pos++
	}
	return c
}

func (c cursor[T]) up() cursor[T] {
	if c.pos > 0 {
		c.pos--
	}
	return c
}

func (c cursor[T]) selected() (T, bool) {
	if len(c.items) == 0 {
		var zero T
		return zero, false
	}
	return c.items[c.pos], true
}

// PipelineListModel is the pipeline panel.
type PipelineListModel struct {
	c cursor[domain.Pipeline]
}

// NewPipelineListModel creates a pipeline list with the first entry selected.
func NewPipelineListModel(pipelines []domain.Pipeline) PipelineListModel {
	return PipelineListModel{c: cursor[domain.Pipeline]{items: pipelines}}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m PipelineListModel) MoveDown() PipelineListModel {
	m.c = m.c.down()
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m PipelineListModel) MoveUp() PipelineListModel {
	m.c = m.c.up()
	return m
}

// UpdatePipelines returns a model holding the refreshed pipelines. The cursor
// follows the previously selected pipeline by ID and goes back to the top
// when it is gone.
func (m PipelineListModel) UpdatePipelines(pipelines []domain.Pipeline) PipelineListModel {
	selected := m.SelectedPipeline().ID
	next := NewPipelineListModel(pipelines)
	for i, p := range pipelines {
		if p.ID == selected {
			next.c.pos = i
			break
		}
	}
	return next
}

// Pipelines returns the pipelines currently shown.
func (m PipelineListModel) Pipelines() []domain.Pipeline {
	return m.c.items
}

// SelectedIndex returns the current cursor position.
func (m PipelineListModel) SelectedIndex() int {
	return m.c.pos
}

// SelectedPipeline returns the highlighted pipeline, or the zero value when
// the list is empty.
func (m PipelineListModel) SelectedPipeline() domain.Pipeline {
	p, _ := m.c.selected()
	return p
}

// View renders one line per pipeline: status, number, branch and age.
func (m PipelineListModel) View() string {
	if len(m.c.items) == 0 {
		return "No pipelines found."
	}
	var sb strings.Builder
	for i, p := range m.c.items {
		fmt.Fprintf(&sb, "%s%s #%s %-20s %s\n",
			marker(i == m.c.pos), statusIcon(p.Status), p.ID, truncate(p.Branch, 20), formatAge(p.CreatedAt))
	}
	return sb.String()
}

// JobDetailModel is the jobs panel of one pipeline. For Jenkins builds the
// jobs are the stages of the build.
type JobDetailModel struct {
	c cursor[domain.Job]
}

// NewJobDetailModel creates a job list with the first job selected.
func NewJobDetailModel(jobs []domain.Job) JobDetailModel {
	return JobDetailModel{c: cursor[domain.Job]{items: jobs}}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m JobDetailModel) MoveDown() JobDetailModel {
	m.c = m.c.down()
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m JobDetailModel) MoveUp() JobDetailModel {
	m.c = m.c.up()
	return m
}

// Jobs returns the jobs shown in the panel.
func (m JobDetailModel) Jobs() []domain.Job {
	return m.c.items
}

// Cursor returns the index of the highlighted job.
func (m JobDetailModel) Cursor() int {
	return m.c.pos
}

// SelectedJob returns the highlighted job and whether there is one.
func (m JobDetailModel) SelectedJob() (domain.Job, bool) {
	return m.c.selected()
}

// View renders the jobs without a cursor.
func (m JobDetailModel) View() string {
	return m.render(false)
}

// ViewFocused renders the jobs with the cursor marker.
func (m JobDetailModel) ViewFocused() string {
	return m.render(true)
}

func (m JobDetailModel) render(focused bool) string {
	if len(m.c.items) == 0 {
		return "Select a pipeline to see its jobs."
	}
	var sb strings.Builder
	for i, j := range m.c.items {
		name := j.Name
		if j.Stage != "" && j.Stage != j.Name {
			name = j.Stage + " / " + j.Name
		}
		fmt.Fprintf(&sb, "%s%s %-25s %s\n",
			marker(focused && i == m.c.pos), statusIcon(j.Status), truncate(name, 25), formatDuration(j.Duration))
	}
	return sb.String()
}

// StepListModel is the steps panel of one job.
type StepListModel struct {
	c cursor[domain.Step]
}

// NewStepListModel creates a step list with the first step selected.
func NewStepListModel(steps []domain.Step) StepListModel {
	return StepListModel{c: cursor[domain.Step]{items: steps}}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m StepListModel) MoveDown() StepListModel {
	m.c = m.c.down()
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m StepListModel) MoveUp() StepListModel {
	m.c = m.c.up()
	return m
}

// Cursor returns the current cursor position.
func (m StepListModel) Cursor() int {
	return m.c.pos
}

// Steps returns the full step slice.
func (m StepListModel) Steps() []domain.Step {
	return m.c.items
}

// View renders the steps with the cursor marker.
func (m StepListModel) View() string {
	if len(m.c.items) == 0 {
		return "No steps found."
	}
	var sb strings.Builder
	for i, s := range m.c.items {
		fmt.Fprintf(&sb, "%s%s %-25s %s\n",
			marker(i == m.c.pos), statusIcon(s.Status), truncate(s.Name, 25), formatDuration(s.Duration))
	}
	return sb.String()
}

func marker(selected bool) string {
	if selected {
		return "> "
	}
	return "  "
}

func statusIcon(s domain.PipelineStatus) string {
	switch s {
	case domain.StatusSuccess:
		return "✓"
	case domain.StatusFailed:
		return "✗"
	case domain.StatusRunning:
		return "●"
	case domain.StatusPending:
		return "↷"
	case domain.StatusCancelled:
		return "○"
	default:
		return "?"
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "--"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}
