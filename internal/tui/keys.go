package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.confirmAction != "" {
		return m.confirm(key)
	}
	if m.view == viewReAuth {
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			return m.abortReAuth(fmt.Errorf("%s session expired: press ctrl+r to retry", m.reAuth.provider))
		}
		return m, nil
	}
	switch key {
	case "q":
		return m, tea.Quit
	case "ctrl+r":
		m.loading = true
		m.err = nil
		return m, m.loadPipelines()
	}
	switch m.view {
	case viewPipelines:
		return m.pipelineKeys(key)
	case viewJobs:
		return m.jobKeys(key)
	case viewSteps:
		return m.stepKeys(key)
	case viewLogs:
		m.logs = m.logs.scroll(key, m.visibleLogLines())
		if key == "esc" {
			m.view = m.logs.returnTo
			m.logs = logViewer{}
		}
	}
	return m, nil
}

// confirm answers the rerun/cancel prompt. Only "y" runs the action.
func (m AppModel) confirm(key string) (tea.Model, tea.Cmd) {
	action := m.confirmAction
	m.confirmAction = ""
	switch {
	case key == "q":
		return m, tea.Quit
	case key != "y" || m.selectedPipeline.ID == "":
		return m, nil
	}
	return m, m.runAction(action, m.selectedPipeline.ID)
}

func (m AppModel) pipelineKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "down", "j":
		m.list = m.list.MoveDown()
		m.selectedPipeline = m.list.SelectedPipeline()
	case "up", "k":
		m.list = m.list.MoveUp()
		m.selectedPipeline = m.list.SelectedPipeline()
	case "enter":
		if len(m.list.Pipelines()) > 0 {
			m.selectedPipeline = m.list.SelectedPipeline()
			m.view = viewJobs
			return m, m.loadPipelineDetail(m.selectedPipeline.ID)
		}
	case "r":
		m.confirmAction = "rerun"
	case "x":
		m.confirmAction = "cancel"
	}
	return m, nil
}

func (m AppModel) jobKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "down", "j":
		m.detail = m.detail.MoveDown()
	case "up", "k":
		m.detail = m.detail.MoveUp()
	case "enter":
		if job, ok := m.detail.SelectedJob(); ok {
			m.selectedJob = job
			m.steps = NewStepListModel(job.Steps)
			m.view = viewSteps
		}
	case "l":
		if job, ok := m.detail.SelectedJob(); ok && !m.logs.loading {
			m.logs.loading = true
			return m, m.loadJobLogs(job)
		}
	case "esc":
		m.view = viewPipelines
	case "r":
		m.confirmAction = "rerun"
	case "x":
		m.confirmAction = "cancel"
	}
	return m, nil
}

func (m AppModel) stepKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "down", "j":
		m.steps = m.steps.MoveDown()
	case "up", "k":
		m.steps = m.steps.MoveUp()
	case "l":
		if !m.logs.loading {
			m.logs.loading = true
			return m, m.loadJobLogs(m.selectedJob)
		}
	case "esc":
		m.view = viewJobs
	}
	return m, nil
}
