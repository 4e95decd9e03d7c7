package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// JobState represents the display state of a crawl job
type JobState int

const (
	JobPending JobState = iota
	JobActive
	JobWaiting
	JobCompleted
	JobFailed
)

// JobItem represents a single crawl job on screen
type JobItem struct {
	ID        int
	Label     string
	Total     int
	Fetched   int
	Status    string
	State     JobState
	StartTime time.Time
	EndTime   time.Time
}

// Model represents the TUI model
type Model struct {
	// UI components
	spinner spinner.Model
	bar     progress.Model

	// Job state
	jobs     map[int]*JobItem
	jobOrder []int
	platform string
	permits  int

	// Stats
	totalMessages    int
	floodWaits       int
	sessionStartTime time.Time

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int
	onQuit         func()

	// Mutex for thread safety
	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a dashboard for a batch on platform running at most
// permits fetches at once
func NewModel(platform string, permits int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return Model{
		spinner:          s,
		bar:              p,
		jobs:             make(map[int]*JobItem),
		platform:         platform,
		permits:          permits,
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// AddJob registers a job; it stays pending until its first event
func (m *Model) AddJob(id int, label string, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; ok {
		return
	}
	m.jobs[id] = &JobItem{
		ID:     id,
		Label:  label,
		Total:  total,
		Status: label,
		State:  JobPending,
	}
	m.jobOrder = append(m.jobOrder, id)
}

// AddProgress records n more messages for a job
func (m *Model) AddProgress(id, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return
	}
	m.activate(job)
	if job.State == JobWaiting {
		job.State = JobActive
	}
	job.Fetched += n
	m.totalMessages += n
}

// SetStatus updates the status line of a job. A waiting status marks the
// job as rate limited until its next progress event.
func (m *Model) SetStatus(id int, status string, waiting bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return
	}
	m.activate(job)
	job.Status = status
	if waiting && job.State != JobWaiting {
		job.State = JobWaiting
		m.floodWaits++
	}
}

// FinishJob marks a job as done
func (m *Model) FinishJob(id int, status string, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.State == JobCompleted || job.State == JobFailed {
		return
	}
	job.Status = status
	job.EndTime = time.Now()
	if failed {
		job.State = JobFailed
	} else {
		job.State = JobCompleted
	}
}

func (m *Model) activate(job *JobItem) {
	if job.State == JobPending {
		job.State = JobActive
		job.StartTime = time.Now()
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// JobsIn returns the jobs currently in state, in registration order
func (m *Model) JobsIn(state JobState) []JobItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []JobItem
	for _, id := range m.jobOrder {
		if job := m.jobs[id]; job != nil && job.State == state {
			out = append(out, *job)
		}
	}
	return out
}

// Stats summarises the batch
type Stats struct {
	Messages  int
	Completed int
	Failed    int
	Running   int
	Waiting   int
	Pending   int
	Waits     int
	Rate      float64
}

// GetStats returns aggregate counters for the stats panel
func (m *Model) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{Messages: m.totalMessages, Waits: m.floodWaits}
	for _, job := range m.jobs {
		switch job.State {
		case JobPending:
			s.Pending++
		case JobActive:
			s.Running++
		case JobWaiting:
			s.Waiting++
		case JobCompleted:
			s.Completed++
		case JobFailed:
			s.Failed++
		}
	}
	if elapsed := time.Since(m.sessionStartTime).Seconds(); elapsed > 0 {
		s.Rate = float64(m.totalMessages) / elapsed
	}
	return s
}
