package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderLogo())

	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderLeftColumn(),
		"  ",
		m.renderRightColumn(),
	)
	sections = append(sections, mainContent)

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to abort"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderLogo() string {
	logo := `
 ┏━╸╻ ╻┏━┓╺┳╸╺┳┓╻ ╻┏┳┓┏━┓
 ┃  ┣━┫┣━┫ ┃  ┃┃┃ ┃┃┃┃┣━┛
 ┗━╸╹ ╹╹ ╹ ╹ ╺┻┛┗━┛╹ ╹╹   ` + strings.ToUpper(m.platform) + ` HISTORY EXPORT`

	return logoStyle.Width(m.width).Render(logo)
}

func (m *Model) renderLeftColumn() string {
	width := (m.width - 4) / 2

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderActiveJobsPanel(width),
		m.renderQueuePanel(width),
	)
}

func (m *Model) renderRightColumn() string {
	width := (m.width - 4) / 2

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderPermitsPanel(width),
		m.renderLogsPanel(width),
	)
}

func (m *Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" BATCH STATS ")

	s := m.GetStats()
	elapsed := time.Since(m.sessionStartTime)

	stats := []string{
		statLine("Session Time:", formatDuration(elapsed)),
		statLine("Messages:", humanize.Comma(int64(s.Messages))),
		statLine("Rate:", fmt.Sprintf("%.1f msg/s", s.Rate)),
		statLine("Completed:", fmt.Sprintf("%d", s.Completed)),
		statLine("Flood Waits:", fmt.Sprintf("%d", s.Waits)),
	}
	if s.Failed > 0 {
		stats = append(stats, errorStyle.Render(fmt.Sprintf("✗ %d failed", s.Failed)))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

func statLine(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

func (m *Model) renderActiveJobsPanel(width int) string {
	title := titleStyle.Render(" ACTIVE JOBS ")

	active := append(m.JobsIn(JobActive), m.JobsIn(JobWaiting)...)
	if len(active) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("No active jobs")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	var rows []string
	for _, job := range active {
		rows = append(rows, m.renderJobItem(job, width-4))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

func (m *Model) renderJobItem(job JobItem, width int) string {
	count := humanize.Comma(int64(job.Fetched))
	if job.Total > 0 {
		count += "/" + humanize.Comma(int64(job.Total))
	}

	nameStyle := queueItemActiveStyle
	prefix := m.spinner.View()
	if job.State == JobWaiting {
		nameStyle = queueItemWaitingStyle
		prefix = "⏳"
	}

	info := fmt.Sprintf("%s %s %s",
		prefix,
		nameStyle.Render(job.Label),
		lipgloss.NewStyle().Foreground(dimWhite).Render(count),
	)

	lines := []string{info}
	if job.Total > 0 {
		bar := m.bar
		bar.Width = max(width-10, 10)
		percent := float64(job.Fetched) / float64(job.Total)
		if percent > 1 {
			percent = 1
		}
		lines = append(lines, bar.ViewAs(percent))
	}
	if job.Status != job.Label {
		lines = append(lines, lipgloss.NewStyle().Foreground(dimWhite).MaxWidth(width).Render(job.Status))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderQueuePanel(width int) string {
	title := titleStyle.Render(" JOB QUEUE ")

	pending := m.JobsIn(JobPending)
	completed := m.JobsIn(JobCompleted)
	failed := m.JobsIn(JobFailed)

	var items []string
	if n := len(pending); n > 0 {
		items = append(items, warningStyle.Render(fmt.Sprintf("⏳ %d waiting for a permit", n)))
		for i := 0; i < 3 && i < n; i++ {
			items = append(items, queueItemStyle.Render("• "+pending[i].Label))
		}
		if n > 3 {
			items = append(items, lipgloss.NewStyle().Foreground(dimWhite).Render(fmt.Sprintf("  ... and %d more", n-3)))
		}
	}

	if n := len(completed); n > 0 {
		items = append(items, "", successStyle.Render(fmt.Sprintf("✓ %d completed", n)))
		for i := max(n-3, 0); i < n; i++ {
			line := fmt.Sprintf("✓ %s (%s)", completed[i].Label, humanize.Comma(int64(completed[i].Fetched)))
			items = append(items, queueItemCompletedStyle.Render(line))
		}
	}

	for _, job := range failed {
		items = append(items, errorStyle.Render("✗ "+job.Label))
	}

	if len(items) == 0 {
		items = append(items, lipgloss.NewStyle().Foreground(dimWhite).Render("Queue empty"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...)),
	)
}

func (m *Model) renderPermitsPanel(width int) string {
	title := titleStyle.Render(" FETCH PERMITS ")

	s := m.GetStats()
	inUse := s.Running + s.Waiting
	if inUse > m.permits {
		inUse = m.permits
	}

	usage := 0.0
	if m.permits > 0 {
		usage = float64(inUse) / float64(m.permits) * 100
	}

	barWidth := max(width-8, 1)
	filled := int(usage * float64(barWidth) / 100)
	style := GetPermitStyle(usage, s.Waiting)
	bar := style.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

	content := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("In use:"),
			style.Render(fmt.Sprintf("%d/%d", inUse, m.permits))),
		bar,
		statLine("Rate limited:", fmt.Sprintf("%d", s.Waiting)),
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(content, "\n")),
	)
}

func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" LOGS ")

	start := max(len(m.logMessages)-10, 0)
	line := lipgloss.NewStyle().MaxWidth(width - 6)

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		logs = append(logs, line.Render(fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(log.Message))))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	logsHeight := max(m.height-30, 5)

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Abort the batch (nothing is written)
    ctrl+l   - Clear logs
    ?        - Toggle this help

  Status Indicators:
    ` + successStyle.Render("Green") + `    - Fetching / Completed
    ` + warningStyle.Render("Orange") + `   - Flood wait / Waiting for a permit
    ` + errorStyle.Render("Red") + `      - Failed
`

	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
