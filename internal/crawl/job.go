package crawl

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	errs "chatdump/pkg/errors"
	"chatdump/pkg/logger"
	"chatdump/pkg/models"
	"chatdump/pkg/ratelimit"
	"chatdump/pkg/retry"
	"chatdump/pkg/ui"
)

// State is a crawl job's position in its lifecycle
type State int32

const (
	StateQueued State = iota
	StateResolving
	StateAwaitingPermit
	StateFetching
	StateRateLimited
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateResolving:
		return "resolving"
	case StateAwaitingPermit:
		return "awaiting_permit"
	case StateFetching:
		return "fetching"
	case StateRateLimited:
		return "rate_limited"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Job crawls one target
type Job struct {
	Target   string
	Limit    int
	Boundary time.Time

	engine  *Engine
	state   atomic.Int32
	log     logger.Logger
	tracker ui.Tracker
	peer    models.ResolvedPeer
}

func newJob(e *Engine, target string, opts Options) *Job {
	j := &Job{
		Target:   target,
		Limit:    opts.Limit,
		Boundary: opts.Boundary,
		engine:   e,
		log:      e.log.WithField("target", target),
		tracker:  e.progress.Track(target, opts.Limit),
	}
	j.tracker.SetMessage(fmt.Sprintf("%s - Awaiting to start", target))
	return j
}

// State returns the current state
func (j *Job) State() State {
	return State(j.state.Load())
}

func (j *Job) transition(to State) {
	from := State(j.state.Swap(int32(to)))
	if from == to {
		return
	}
	j.log.DebugWithFields("Job state changed", map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
	if j.engine.observer != nil {
		j.engine.observer(j.Target, from, to)
	}
}

func (j *Job) fail(err error) error {
	j.transition(StateFailed)
	ui.Fail(j.tracker, fmt.Sprintf("%s - Failed", j.label()))
	j.engine.metrics.JobFinished(j.engine.platform, "failed")
	j.log.WithError(err).Error("Job failed")
	return err
}

func (j *Job) label() string {
	if j.peer.PeerUsername != "" {
		return j.peer.PeerUsername
	}
	return j.Target
}

// run drives the job to Completed or Failed. Partial messages are
// dropped on failure.
func (j *Job) run(ctx context.Context) (models.DumpedPeer, error) {
	j.transition(StateResolving)
	peer, history, err := j.engine.resolve(ctx, j.Target)
	if err != nil {
		return models.DumpedPeer{}, j.fail(err)
	}
	j.peer = peer

	j.transition(StateAwaitingPermit)
	permit, ok := j.engine.governor.TryAcquire()
	if !ok {
		j.tracker.SetMessage(fmt.Sprintf("%s - Awaiting permit...", j.label()))
		permit, err = j.engine.governor.Acquire(ctx)
		if err != nil {
			return models.DumpedPeer{}, j.fail(err)
		}
	}
	defer permit.Release()

	j.engine.metrics.FetchStarted(j.engine.platform)
	defer j.engine.metrics.FetchEnded(j.engine.platform)

	j.transition(StateFetching)
	j.tracker.SetMessage(j.label())

	chunks, err := j.drain(ctx, history)
	if err != nil {
		return models.DumpedPeer{}, j.fail(err)
	}

	j.transition(StateCompleted)
	permit.Release()
	j.tracker.Finish(fmt.Sprintf("%s - Dumped", j.label()))
	j.engine.metrics.JobFinished(j.engine.platform, "completed")
	j.log.InfoWithFields("Job completed", map[string]interface{}{
		"peer_id":  peer.PeerID,
		"messages": len(chunks),
	})

	return models.DumpedPeer{Peer: peer, Chunks: chunks}, nil
}

// drain pulls messages until End, the limit, or the first message at or
// before the boundary, which is kept
func (j *Job) drain(ctx context.Context, history History) ([]models.Message, error) {
	e := j.engine
	cursor := NewCursor(history, j.Limit, ratelimit.NewInterval(e.pageDelay))
	cursor.OnPage = func(requested, received int, before string) {
		logger.LogPageFetched(j.log, j.Target, requested, received, before)
		e.metrics.PageFetched(e.platform, received)
	}

	cfg := j.retryConfig()

	var chunks []models.Message
	for {
		step, err := retry.DoWithResult(ctx, func() (cursorStep, error) {
			msg, ok, err := cursor.Next(ctx)
			return cursorStep{msg: msg, ok: ok}, err
		}, cfg)
		if err != nil {
			if kind, ok := errs.KindOf(err); !ok || kind == errs.KindRateLimit {
				err = errs.FetchFailed(j.Target, err)
			}
			return nil, err
		}
		if j.State() == StateRateLimited {
			j.transition(StateFetching)
			j.tracker.SetMessage(j.label())
		}
		if !step.ok {
			return chunks, nil
		}

		chunks = append(chunks, step.msg)
		j.tracker.Increment(1)

		if !step.msg.Timestamp.After(j.Boundary) {
			return chunks, nil
		}
		if j.Limit > 0 && len(chunks) >= j.Limit {
			return chunks, nil
		}
	}
}

type cursorStep struct {
	msg models.Message
	ok  bool
}

func (j *Job) retryConfig() *retry.Config {
	cfg := *j.engine.retry
	cfg.Logger = j.log
	parent := cfg.OnWait
	cfg.OnWait = func(attempt int, wait time.Duration, err error) {
		j.transition(StateRateLimited)
		logger.LogFloodWait(j.log, j.engine.platform, j.Target, attempt, wait)
		ui.Waiting(j.tracker, fmt.Sprintf("%s - Flood Wait For %d Seconds", j.label(), int(wait.Seconds())))
		j.engine.metrics.RateLimited(j.engine.platform, wait)
		if parent != nil {
			parent(attempt, wait, err)
		}
	}
	return &cfg
}
