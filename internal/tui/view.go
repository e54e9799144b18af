package tui

import (
	"fmt"
	"strings"

	"github.com/waabox/opsdeck/internal/domain"
)

const separator = "────────────────────────────────────────────────────────────\n"

// View renders the current panel.
func (m AppModel) View() string {
	switch {
	case m.logs.loading:
		return "Loading logs...\n"
	case m.view == viewLogs:
		return m.logView()
	case m.view == viewReAuth:
		return m.reAuthView()
	case m.loading && m.confirmAction == "":
		return "Loading pipelines...\n"
	case m.err != nil:
		return m.errorView()
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString(separator)
	switch m.view {
	case viewPipelines:
		b.WriteString(" Pipelines\n")
		b.WriteString(m.list.View())
		b.WriteString("\n" + separator)
		b.WriteString(m.statusBar())
		b.WriteString(separator)
		b.WriteString(m.footer(" ↑/↓: navigate   enter: open   ctrl+r: refresh   r: rerun   x: cancel   q: quit\n"))
	case viewJobs:
		fmt.Fprintf(&b, " Jobs for pipeline #%s\n", m.selectedPipeline.ID)
		b.WriteString(m.detail.ViewFocused())
		b.WriteString("\n" + separator)
		b.WriteString(m.footer(" ↑/↓: navigate   enter: steps   l: logs   esc: back   r: rerun   x: cancel   q: quit\n"))
	case viewSteps:
		fmt.Fprintf(&b, " Steps of %s\n", m.selectedJob.Name)
		b.WriteString(m.steps.View())
		b.WriteString("\n" + separator)
		b.WriteString(" ↑/↓: navigate   l: logs   esc: back   q: quit\n")
	}
	return b.String()
}

func (m AppModel) header() string {
	p := m.selectedPipeline
	h := fmt.Sprintf(" opsdeck | %s / ⎇ %s %s / %s", m.repo.FullName(), p.Branch, shortSHA(p.CommitSHA), firstLine(p.CommitMsg))
	if m.source != "" {
		h += "  [" + m.source + "]"
	}
	return h + "\n"
}

func (m AppModel) statusBar() string {
	p := m.selectedPipeline
	bar := " #" + p.ID
	if p.Author != "" {
		bar += " by " + p.Author
	}
	if p.WebURL != "" {
		bar += "  " + p.WebURL
	}
	return bar + "\n"
}

// footer swaps the key help for the confirmation prompt while one is open.
func (m AppModel) footer(help string) string {
	p := m.selectedPipeline
	switch m.confirmAction {
	case "rerun":
		return fmt.Sprintf(" Rerun pipeline #%s on %s? [y/N] \n", p.ID, p.Branch)
	case "cancel":
		return fmt.Sprintf(" Cancel pipeline #%s on %s? [y/N] \n", p.ID, p.Branch)
	}
	return help
}

func (m AppModel) errorView() string {
	kind := domain.KindOf(m.err)
	if kind == domain.KindUnknown {
		return fmt.Sprintf("Error: %v\n\nPress 'ctrl+r' to retry or 'q' to quit.\n", m.err)
	}
	return fmt.Sprintf("Error (%s): %v\n\nPress 'ctrl+r' to retry or 'q' to quit.\n", kind, m.err)
}

func (m AppModel) reAuthView() string {
	var body string
	if m.reAuth.code.UserCode == "" {
		body = fmt.Sprintf("\n Session expired for %s.\n\n Requesting authorization...\n\n", m.reAuth.provider)
	} else {
		body = fmt.Sprintf("\n Session expired for %s.\n\n Visit:  %s\n Code:   %s\n\n Waiting for authorization...\n\n",
			m.reAuth.provider, m.reAuth.code.VerificationURI, m.reAuth.code.UserCode)
	}
	return " opsdeck | re-authentication required\n" + separator + body + separator + " esc: cancel   q: quit\n"
}

func (m AppModel) logView() string {
	visible := m.visibleLogLines()
	header := fmt.Sprintf(" opsdeck  %s  [logs] %s\n", m.repo.FullName(), m.logs.jobName)
	body := strings.Join(m.logs.window(visible), "\n")
	return header + separator + body + "\n" + separator + " ↑/↓: scroll   PgUp/PgDn: page   g/G: top/bottom   esc: back\n"
}

// visibleLogLines leaves room for the header, footer and both separators.
func (m AppModel) visibleLogLines() int {
	return max(m.height-4, 10)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
