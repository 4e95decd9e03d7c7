package tui

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"chatdump/pkg/ui"
)

// TUI is a full-screen crawl dashboard. It implements ui.ProgressSink.
type TUI struct {
	program *tea.Program
	model   *Model
	send    func(tea.Msg)
	nextID  atomic.Int64
	done    chan struct{}
	err     error
	once    sync.Once
}

// Option configures a TUI
type Option func(*TUI)

// WithInterrupt registers fn to run when the user aborts from the keyboard
func WithInterrupt(fn func()) Option {
	return func(t *TUI) { t.model.onQuit = fn }
}

// NewTUI creates a dashboard for a batch on platform limited to permits
// concurrent fetches
func NewTUI(platform string, permits int, opts ...Option) *TUI {
	model := NewModel(platform, permits)
	t := &TUI{
		model: &model,
		done:  make(chan struct{}),
	}
	t.program = tea.NewProgram(t.model, tea.WithAltScreen())
	t.send = t.program.Send
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start runs the program in the background
func (t *TUI) Start() {
	go func() {
		defer close(t.done)
		_, t.err = t.program.Run()
	}()
}

// Close stops the program and waits for the terminal to be restored
func (t *TUI) Close() {
	t.once.Do(func() {
		t.program.Quit()
		<-t.done
	})
}

// Err returns the error the program exited with; valid after Close
func (t *TUI) Err() error {
	return t.err
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.send != nil {
		t.send(msg)
	}
}

// Track registers a job row
func (t *TUI) Track(label string, total int) ui.Tracker {
	id := int(t.nextID.Add(1))
	t.Send(JobStartMsg{ID: id, Label: label, Total: total})
	return &tracker{tui: t, id: id}
}

// LogWriter returns a writer that feeds complete lines into the logs panel.
// Hand it to the logger as its console while the dashboard owns the screen.
func (t *TUI) LogWriter() io.Writer {
	return &logWriter{tui: t}
}

type tracker struct {
	tui *TUI
	id  int
}

func (tr *tracker) Increment(n int) {
	tr.tui.Send(JobProgressMsg{ID: tr.id, Delta: n})
}

func (tr *tracker) SetMessage(msg string) {
	tr.tui.Send(JobStatusMsg{ID: tr.id, Status: msg})
}

func (tr *tracker) Waiting(msg string) {
	tr.tui.Send(JobStatusMsg{ID: tr.id, Status: msg, Waiting: true})
}

func (tr *tracker) Finish(msg string) {
	tr.tui.Send(JobFinishMsg{ID: tr.id, Status: msg})
}

func (tr *tracker) Fail(msg string) {
	tr.tui.Send(JobFinishMsg{ID: tr.id, Status: msg, Failed: true})
}

type logWriter struct {
	tui *TUI
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// keep the partial line for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			w.tui.Send(LogMsg{Level: "LOG", Message: line})
		}
	}
	return len(p), nil
}
