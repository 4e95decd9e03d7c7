package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

const (
	barWidth      = 30
	redrawEvery   = 100 * time.Millisecond
	clearLineCode = "\033[2K"
)

// ProgressDisplay renders one line per job. On a terminal the block of
// lines is redrawn in place; otherwise only finished jobs are printed.
type ProgressDisplay struct {
	mu         sync.Mutex
	out        io.Writer
	live       bool
	rows       []*row
	drawn      int
	lastRedraw time.Time
	startTime  time.Time
}

type row struct {
	display *ProgressDisplay
	label   string
	total   int
	current int
	message string
	done    bool
}

// NewProgressDisplay writes to out; live redraw is used when out is a terminal
func NewProgressDisplay(out io.Writer) *ProgressDisplay {
	live := false
	if f, ok := out.(*os.File); ok {
		live = term.IsTerminal(int(f.Fd()))
	}
	return &ProgressDisplay{out: out, live: live, startTime: time.Now()}
}

// Track adds a row for a job
func (p *ProgressDisplay) Track(label string, total int) Tracker {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := &row{display: p, label: label, total: total, message: label}
	p.rows = append(p.rows, r)
	p.redraw(true)
	return r
}

// Close draws the final state
func (p *ProgressDisplay) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redraw(true)
}

func (r *row) Increment(n int) {
	r.display.mu.Lock()
	defer r.display.mu.Unlock()
	r.current += n
	r.display.redraw(false)
}

func (r *row) SetMessage(msg string) {
	r.display.mu.Lock()
	defer r.display.mu.Unlock()
	r.message = msg
	r.display.redraw(false)
}

func (r *row) Finish(msg string) {
	r.display.mu.Lock()
	defer r.display.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	r.message = msg
	if !r.display.live {
		fmt.Fprintln(r.display.out, r.display.render(r))
		return
	}
	r.display.redraw(true)
}

// redraw must be called with mu held
func (p *ProgressDisplay) redraw(force bool) {
	if !p.live {
		return
	}
	if !force && time.Since(p.lastRedraw) < redrawEvery {
		return
	}
	p.lastRedraw = time.Now()

	var b strings.Builder
	if p.drawn > 0 {
		fmt.Fprintf(&b, "\033[%dA", p.drawn)
	}
	for _, r := range p.rows {
		b.WriteString("\r")
		b.WriteString(clearLineCode)
		b.WriteString(p.render(r))
		b.WriteString("\n")
	}
	p.drawn = len(p.rows)
	fmt.Fprint(p.out, b.String())
}

func (p *ProgressDisplay) render(r *row) string {
	elapsed := formatElapsed(time.Since(p.startTime))

	var bar string
	if r.total > 0 {
		filled := r.current * barWidth / r.total
		if filled > barWidth {
			filled = barWidth
		}
		bar = strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)
	} else {
		bar = strings.Repeat("─", barWidth)
	}

	count := humanize.Comma(int64(r.current))
	if r.total > 0 {
		count += "/" + humanize.Comma(int64(r.total))
	}

	status := Cyan(r.message)
	if r.done {
		status = Green(r.message)
	}

	return fmt.Sprintf("[%s] [%s] %s %s", Dim(elapsed), bar, count, status)
}

func formatElapsed(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
