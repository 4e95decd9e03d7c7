package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatdump/internal/crawl"
	"chatdump/pkg/config"
	"chatdump/pkg/logger"
	"chatdump/pkg/metrics"
	"chatdump/pkg/storage"
	"chatdump/pkg/ui"
	"chatdump/pkg/ui/tui"
)

// batch carries everything one data command shares: the run id, the
// artifact writer, metrics and the progress display
type batch struct {
	platform    string
	runID       string
	execTime    time.Time
	log         logger.Logger
	metrics     *metrics.Collector
	store       *storage.Manager
	notifier    *ui.Notifier
	metricsFile string

	cfg       *config.Config
	sink      ui.ProgressSink
	dashboard *tui.TUI
	cancel    context.CancelFunc
	engineOps []crawl.EngineOption
}

// newBatch initializes logging and output for a batch. cancel is called
// when the user quits the dashboard.
func newBatch(cfg *config.Config, platform string, cancel context.CancelFunc) (*batch, error) {
	if err := logger.InitializeWithWriter(&cfg.Logging, os.Stderr); err != nil {
		return nil, err
	}

	b := &batch{
		platform:    platform,
		runID:       uuid.NewString(),
		execTime:    time.Now().UTC(),
		metrics:     metrics.New(),
		metricsFile: cfg.Metrics.Textfile,
		cfg:         cfg,
		cancel:      cancel,
	}
	b.log = logger.GetLogger().WithFields(map[string]interface{}{
		"run_id":   b.runID,
		"platform": platform,
	})

	store, err := storage.NewManager(cfg.Output.Directory,
		storage.WithLogger(b.log),
		storage.WithMetrics(b.metrics),
	)
	if err != nil {
		return nil, err
	}
	b.store = store

	if cfg.UI.Notifications {
		b.notifier = ui.NewNotifier()
	}
	return b, nil
}

// start puts up the progress display. It is called after any interactive
// login so prompts never fight the dashboard for the terminal.
func (b *batch) start() {
	switch strings.ToLower(b.cfg.UI.Mode) {
	case "tui":
		b.dashboard = tui.NewTUI(b.platform, crawl.DefaultPermits, tui.WithInterrupt(b.cancel))
		b.dashboard.Start()
		// the dashboard owns the screen; route console logs into its panel
		if err := logger.InitializeWithWriter(&b.cfg.Logging, b.dashboard.LogWriter()); err == nil {
			b.log = logger.GetLogger().WithFields(map[string]interface{}{
				"run_id":   b.runID,
				"platform": b.platform,
			})
		}
		b.sink = b.dashboard
	case "none":
		b.sink = ui.NopSink()
	default:
		b.sink = ui.NewProgressDisplay(os.Stderr)
	}
}

// engine creates a crawl engine wired to this batch
func (b *batch) engine(src crawl.Source) *crawl.Engine {
	if b.sink == nil {
		b.sink = ui.NopSink()
	}
	opts := []crawl.EngineOption{
		crawl.WithLogger(b.log),
		crawl.WithMetrics(b.metrics),
		crawl.WithProgress(b.sink),
	}
	return crawl.NewEngine(b.platform, src, append(opts, b.engineOps...)...)
}

// finish tears the display down, exports metrics and announces the outcome
func (b *batch) finish(err error, peers, messages int) {
	if b.sink != nil {
		b.sink.Close()
	}
	if b.dashboard != nil {
		_ = logger.InitializeWithWriter(&b.cfg.Logging, os.Stderr)
		b.log = logger.GetLogger().WithField("run_id", b.runID)
	}

	if werr := b.metrics.WriteTextfile(b.metricsFile); werr != nil {
		b.log.WithError(werr).Warn("Failed to write metrics textfile")
	}

	if err != nil {
		b.notifier.BatchFailed(b.platform, err)
		return
	}
	b.notifier.BatchDone(b.platform, peers, messages)
}
