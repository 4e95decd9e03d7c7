package crawl

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	errs "chatdump/pkg/errors"
	"chatdump/pkg/logger"
	"chatdump/pkg/metrics"
	"chatdump/pkg/models"
	"chatdump/pkg/ratelimit"
	"chatdump/pkg/retry"
	"chatdump/pkg/ui"
)

// Options select what each job of a batch fetches
type Options struct {
	// Limit caps messages per target; 0 means the whole history
	Limit int
	// Boundary stops a job at the first message at or before it
	Boundary time.Time
	Direction models.Direction
}

// Validate rejects options no platform supports
func (o Options) Validate() error {
	if o.Direction == models.Forward {
		return errs.Validation("--reverse", "reverse direction is not supported")
	}
	if o.Limit < 0 {
		return errs.Validation("--limit", "must be positive, got %d", o.Limit)
	}
	return nil
}

// BatchError is returned by Run for the first job that failed
type BatchError struct {
	Target string
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch aborted by %s: %v", e.Target, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Engine runs batches of crawl jobs against one platform
type Engine struct {
	platform  string
	source    Source
	governor  *Governor
	retry     *retry.Config
	pageDelay time.Duration
	log       logger.Logger
	metrics   *metrics.Collector
	progress  ui.ProgressSink
	observer  func(target string, from, to State)
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithLogger sets the engine logger
func WithLogger(l logger.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithMetrics records crawl metrics into c
func WithMetrics(c *metrics.Collector) EngineOption {
	return func(e *Engine) { e.metrics = c }
}

// WithProgress reports per-job progress to sink
func WithProgress(sink ui.ProgressSink) EngineOption {
	return func(e *Engine) { e.progress = sink }
}

// WithRetryConfig replaces the backoff configuration
func WithRetryConfig(cfg *retry.Config) EngineOption {
	return func(e *Engine) { e.retry = cfg }
}

// WithPageDelay sets the pause between history requests of one job
func WithPageDelay(d time.Duration) EngineOption {
	return func(e *Engine) { e.pageDelay = d }
}

// WithStateObserver is called on every job state transition
func WithStateObserver(fn func(target string, from, to State)) EngineOption {
	return func(e *Engine) { e.observer = fn }
}

// NewEngine creates an engine for platform backed by source
func NewEngine(platform string, source Source, opts ...EngineOption) *Engine {
	e := &Engine{
		platform:  platform,
		source:    source,
		governor:  NewGovernor(DefaultPermits),
		retry:     retry.DefaultConfig(),
		pageDelay: ratelimit.DefaultPageDelay,
		progress:  ui.NopSink(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.GetLogger()
	}
	e.log = e.log.WithField("platform", platform)
	if e.progress == nil {
		e.progress = ui.NopSink()
	}
	if e.retry == nil {
		e.retry = retry.DefaultConfig()
	}
	return e
}

// Permits returns the governor capacity
func (e *Engine) Permits() int {
	return e.governor.Capacity()
}

// Run crawls every target and returns one dump per target in input
// order. The first failing job aborts the batch: the others stop before
// their next request and nothing is returned.
func (e *Engine) Run(ctx context.Context, targets []string, opts Options) ([]models.DumpedPeer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	e.log.InfoWithFields("Starting crawl", map[string]interface{}{
		"targets":  len(targets),
		"limit":    opts.Limit,
		"boundary": opts.Boundary,
		"permits":  e.governor.Capacity(),
	})

	results := make([]models.DumpedPeer, len(targets))
	g, gctx := errgroup.WithContext(ctx)

	for i, target := range targets {
		i, target := i, target
		job := newJob(e, target, opts)
		g.Go(func() error {
			dump, err := job.run(gctx)
			if err != nil {
				return &BatchError{Target: target, Err: err}
			}
			results[i] = dump
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.metrics.BatchFinished(e.platform, "failed", time.Since(start))
		e.log.WithError(err).Error("Crawl aborted")
		return nil, err
	}

	e.metrics.BatchFinished(e.platform, "completed", time.Since(start))
	e.log.InfoWithFields("Crawl finished", map[string]interface{}{
		"targets":  len(targets),
		"duration": time.Since(start),
	})
	return results, nil
}

// ResolveAll resolves every target concurrently without permits and
// returns the peers in input order. It fails fast like Run.
func (e *Engine) ResolveAll(ctx context.Context, targets []string) ([]models.ResolvedPeer, error) {
	peers := make([]models.ResolvedPeer, len(targets))
	g, gctx := errgroup.WithContext(ctx)

	for i, target := range targets {
		i, target := i, target
		tracker := e.progress.Track(target, 1)
		tracker.SetMessage(target)
		g.Go(func() error {
			peer, _, err := e.resolve(gctx, target)
			if err != nil {
				ui.Fail(tracker, fmt.Sprintf("%s - Failed", target))
				return &BatchError{Target: target, Err: err}
			}

			tracker.Increment(1)
			tracker.Finish(fmt.Sprintf("%s - Resolved", target))
			peers[i] = peer
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.log.WithError(err).Error("Resolution aborted")
		return nil, err
	}
	return peers, nil
}

// resolve goes through the backoff controller like any other request
func (e *Engine) resolve(ctx context.Context, target string) (models.ResolvedPeer, History, error) {
	type resolved struct {
		peer    models.ResolvedPeer
		history History
	}

	cfg := *e.retry
	cfg.Logger = e.log.WithField("target", target)
	r, err := retry.DoWithResult(ctx, func() (resolved, error) {
		peer, history, err := e.source.Resolve(context.WithoutCancel(ctx), target)
		return resolved{peer, history}, err
	}, &cfg)
	if err != nil {
		if kind, ok := errs.KindOf(err); !ok || kind == errs.KindRateLimit {
			err = errs.ResolutionFailed(target, err)
		}
		return models.ResolvedPeer{}, nil, err
	}
	return r.peer, r.history, nil
}
