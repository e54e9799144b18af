package tui

import "strings"

// logViewer is the fullscreen log panel state.
type logViewer struct {
	loading  bool
	jobName  string
	lines    []string
	offset   int
	returnTo viewState
}

// open shows content scrolled to its tail, since failures are usually at the end.
func (l logViewer) open(jobName, content string, returnTo viewState, visible int) logViewer {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	l.jobName = jobName
	l.lines = lines
	l.returnTo = returnTo
	l.offset = maxOffset(len(lines), visible)
	return l
}

func maxOffset(total, visible int) int {
	if total <= visible {
		return 0
	}
	return total - visible
}

func (l logViewer) scroll(key string, visible int) logViewer {
	last := maxOffset(len(l.lines), visible)
	switch key {
	case "down", "j":
		l.offset++
	case "up", "k":
		l.offset--
	case "pgdown", " ":
		l.offset += visible
	case "pgup":
		l.offset -= visible
	case "g", "home":
		l.offset = 0
	case "G", "end":
		l.offset = last
	}
	l.offset = min(max(l.offset, 0), last)
	return l
}

func (l logViewer) window(visible int) []string {
	end := min(l.offset+visible, len(l.lines))
	return l.lines[l.offset:end]
}
