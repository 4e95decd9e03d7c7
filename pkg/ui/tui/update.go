package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// JobStartMsg is sent when a job is registered
type JobStartMsg struct {
	ID    int
	Label string
	Total int
}

// JobProgressMsg is sent when a job receives messages
type JobProgressMsg struct {
	ID    int
	Delta int
}

// JobStatusMsg is sent when a job's status line changes
type JobStatusMsg struct {
	ID      int
	Status  string
	Waiting bool
}

// JobFinishMsg is sent when a job ends
type JobFinishMsg struct {
	ID     int
	Status string
	Failed bool
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case JobStartMsg:
		m.AddJob(msg.ID, msg.Label, msg.Total)
		return m, nil

	case JobProgressMsg:
		m.AddProgress(msg.ID, msg.Delta)
		return m, nil

	case JobStatusMsg:
		m.SetStatus(msg.ID, msg.Status, msg.Waiting)
		if msg.Waiting {
			m.AddLogMessage("WARN", msg.Status)
		}
		return m, nil

	case JobFinishMsg:
		m.FinishJob(msg.ID, msg.Status, msg.Failed)
		if msg.Failed {
			m.AddLogMessage("ERROR", msg.Status)
		} else {
			m.AddLogMessage("SUCCESS", msg.Status)
		}
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
