// Package tui is the interactive pipeline browser. It reads from any
// domain.PipelineProvider, so GitHub Actions runs and Jenkins builds look
// the same.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/waabox/opsdeck/internal/domain"
)

// PipelinesLoadedMsg carries the result of a pipeline list refresh.
// It is exported so tests can feed it to AppModel.Update directly.
type PipelinesLoadedMsg struct {
	Pipelines []domain.Pipeline
	Err       error
}

// PipelineDetailMsg carries one pipeline with its jobs.
type PipelineDetailMsg struct {
	Pipeline domain.Pipeline
	Err      error
}

// LogsLoadedMsg carries the log text of one job.
type LogsLoadedMsg struct {
	Content string
	JobName string
	Err     error
}

type tickMsg struct{}

type actionResultMsg struct {
	action string
	err    error
}

type viewState int

const (
	viewPipelines viewState = iota
	viewJobs
	viewSteps
	viewLogs
	viewReAuth
)

const (
	defaultActiveRefresh = 5 * time.Second
	defaultIdleRefresh   = 30 * time.Second
)

// Option customizes an AppModel.
type Option func(*AppModel)

// WithSource names the CI system in the header, e.g. "GitHub Actions".
func WithSource(name string) Option {
	return func(m *AppModel) { m.source = name }
}

// WithRefresh sets the polling intervals used while a pipeline is running
// and while everything is idle.
func WithRefresh(active, idle time.Duration) Option {
	return func(m *AppModel) {
		if active > 0 {
			m.activeRefresh = active
		}
		if idle > 0 {
			m.idleRefresh = idle
		}
	}
}

// AppModel is the root Bubbletea model of the pipeline browser.
type AppModel struct {
	repo     domain.Repository
	provider domain.PipelineProvider
	source   string

	activeRefresh time.Duration
	idleRefresh   time.Duration

	view             viewState
	list             PipelineListModel
	selectedPipeline domain.Pipeline
	detail           JobDetailModel
	selectedJob      domain.Job
	steps            StepListModel

	loading       bool
	err           error
	width, height int
	confirmAction string

	logs   logViewer
	reAuth reAuthState
	onAuth *ReAuth
}

// NewAppModel creates the browser for repo. The first load starts in Init.
func NewAppModel(repo domain.Repository, provider domain.PipelineProvider, opts ...Option) AppModel {
	m := AppModel{
		repo:          repo,
		provider:      provider,
		activeRefresh: defaultActiveRefresh,
		idleRefresh:   defaultIdleRefresh,
		list:          NewPipelineListModel(nil),
		detail:        NewJobDetailModel(nil),
		loading:       true,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init triggers the initial load and the refresh ticker.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.loadPipelines(), tick(m.activeRefresh))
}

func (m AppModel) loadPipelines() tea.Cmd {
	return func() tea.Msg {
		pipelines, err := m.provider.ListPipelines(m.repo)
		return PipelinesLoadedMsg{Pipelines: pipelines, Err: err}
	}
}

func (m AppModel) loadPipelineDetail(id string) tea.Cmd {
	return func() tea.Msg {
		pipeline, err := m.provider.GetPipeline(m.repo, domain.PipelineID(id))
		return PipelineDetailMsg{Pipeline: pipeline, Err: err}
	}
}

func (m AppModel) loadJobLogs(job domain.Job) tea.Cmd {
	return func() tea.Msg {
		content, err := m.provider.GetJobLogs(m.repo, domain.JobID(job.ID))
		return LogsLoadedMsg{Content: content, JobName: job.Name, Err: err}
	}
}

func (m AppModel) runAction(action, id string) tea.Cmd {
	return func() tea.Msg {
		var err error
		switch action {
		case "rerun":
			err = m.provider.RerunPipeline(m.repo, domain.PipelineID(id))
		case "cancel":
			err = m.provider.CancelPipeline(m.repo, domain.PipelineID(id))
		}
		return actionResultMsg{action: action, err: err}
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return tickMsg{} })
}

func anyActive(pipelines []domain.Pipeline) bool {
	for _, p := range pipelines {
		if p.Status.Active() {
			return true
		}
	}
	return false
}

// Update routes messages to the state transitions and key handlers.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case PipelinesLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		m.applyPipelines(msg.Pipelines)
		return m, nil

	case PipelineDetailMsg:
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		// Polling a running pipeline must not move the job cursor.
		keep := 0
		if msg.Pipeline.ID == m.selectedPipeline.ID {
			keep = m.detail.Cursor()
		}
		m.detail = NewJobDetailModel(msg.Pipeline.Jobs)
		for range keep {
			m.detail = m.detail.MoveDown()
		}
		return m, nil

	case tickMsg:
		interval := m.idleRefresh
		if anyActive(m.list.Pipelines()) {
			interval = m.activeRefresh
		}
		cmds := []tea.Cmd{m.loadPipelines(), tick(interval)}
		if m.selectedPipeline.ID != "" && m.selectedPipeline.Status.Active() {
			cmds = append(cmds, m.loadPipelineDetail(m.selectedPipeline.ID))
		}
		return m, tea.Batch(cmds...)

	case actionResultMsg:
		if msg.err != nil {
			return m.fail(fmt.Errorf("%s: %w", msg.action, msg.err))
		}
		m.loading = true
		return m, m.loadPipelines()

	case LogsLoadedMsg:
		m.logs.loading = false
		if msg.Err != nil {
			// Logs that cannot be read leave the current panel in place.
			return m, nil
		}
		m.logs = m.logs.open(msg.JobName, msg.Content, m.view, m.visibleLogLines())
		m.view = viewLogs
		return m, nil

	case DeviceCodeMsg, ReAuthCompleteMsg:
		return m.updateReAuth(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// applyPipelines installs a refreshed list, keeping the selection.
func (m *AppModel) applyPipelines(pipelines []domain.Pipeline) {
	if len(m.list.Pipelines()) == 0 {
		m.list = NewPipelineListModel(pipelines)
	} else {
		m.list = m.list.UpdatePipelines(pipelines)
	}
	m.selectedPipeline = m.list.SelectedPipeline()
}

// fail shows err, or starts re-authentication when the provider rejected
// its credentials and a login flow is wired.
func (m AppModel) fail(err error) (tea.Model, tea.Cmd) {
	if cmd, ok := m.startReAuth(err); ok {
		m.view = viewReAuth
		m.reAuth = reAuthState{provider: providerOf(err)}
		m.err = nil
		return m, cmd
	}
	m.err = err
	return m, nil
}

// Run starts the Bubbletea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, m AppModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running pipeline browser: %w", err)
	}
	return nil
}
