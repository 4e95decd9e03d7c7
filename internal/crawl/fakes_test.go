package crawl

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	errs "chatdump/pkg/errors"
	"chatdump/pkg/logger"
	"chatdump/pkg/models"
	"chatdump/pkg/retry"
)

type pageCall struct {
	limit  int
	before string
}

// fakeHistory serves a fixed newest-first message list
type fakeHistory struct {
	messages []models.Message
	delay    time.Duration
	gate     <-chan struct{}
	inflight *inflight

	mu       sync.Mutex
	calls    []pageCall
	failures map[int]error // call number (from 1) -> error
}

func (h *fakeHistory) FetchPage(ctx context.Context, limit int, before string) ([]models.Message, error) {
	h.mu.Lock()
	h.calls = append(h.calls, pageCall{limit: limit, before: before})
	n := len(h.calls)
	failure := h.failures[n]
	h.mu.Unlock()

	if h.inflight != nil {
		h.inflight.enter()
		defer h.inflight.leave()
	}
	if h.gate != nil {
		<-h.gate
	}
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	if failure != nil {
		return nil, failure
	}

	start := 0
	if before != "" {
		start = len(h.messages)
		for i, m := range h.messages {
			if m.ID == before {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(h.messages))
	return append([]models.Message(nil), h.messages[start:end]...), nil
}

func (h *fakeHistory) pageCalls() []pageCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]pageCall(nil), h.calls...)
}

// inflight tracks the peak number of concurrent requests
type inflight struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (f *inflight) enter() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current++
	if f.current > f.peak {
		f.peak = f.current
	}
}

func (f *inflight) leave() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current--
}

func (f *inflight) max() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

type fakeSource struct {
	histories   map[string]*fakeHistory
	resolveErrs map[string]error
	resolves    atomic.Int32
}

func (s *fakeSource) Resolve(ctx context.Context, target string) (models.ResolvedPeer, History, error) {
	s.resolves.Add(1)
	if err := s.resolveErrs[target]; err != nil {
		return models.ResolvedPeer{}, nil, err
	}
	h, ok := s.histories[target]
	if !ok {
		return models.ResolvedPeer{}, nil, errs.PeerNotFound(target)
	}
	return models.NewResolvedPeer("id-"+target, target), h, nil
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// makeMessages builds n messages, newest first, one minute apart
func makeMessages(n int) []models.Message {
	msgs := make([]models.Message, n)
	for i := range msgs {
		msgs[i] = models.Message{
			ID:        strconv.Itoa(n - i),
			UserID:    models.SenderID(int64(i % 3)),
			Content:   "message " + strconv.Itoa(n-i),
			Timestamp: baseTime.Add(-time.Duration(i) * time.Minute),
		}
	}
	return msgs
}

type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func testEngine(src Source, sleep *recordingSleep, opts ...EngineOption) *Engine {
	cfg := retry.DefaultConfig()
	cfg.Logger = logger.NewNopLogger()
	if sleep != nil {
		cfg.Sleep = sleep.sleep
	}
	base := []EngineOption{
		WithLogger(logger.NewNopLogger()),
		WithPageDelay(0),
		WithRetryConfig(cfg),
	}
	return NewEngine("telegram", src, append(base, opts...)...)
}

var errForbidden = errors.New("forbidden")
