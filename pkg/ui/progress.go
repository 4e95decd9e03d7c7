package ui

// Tracker receives progress for one crawl job. Implementations must be
// safe for concurrent use and must never block the caller for long.
type Tracker interface {
	Increment(n int)
	SetMessage(msg string)
	Finish(msg string)
}

// ProgressSink hands out one Tracker per job.
// total is the expected item count, or 0 when unbounded.
type ProgressSink interface {
	Track(label string, total int) Tracker
	Close()
}

// NopSink discards all progress
func NopSink() ProgressSink {
	return nopSink{}
}

type nopSink struct{}

func (nopSink) Track(string, int) Tracker { return nopTracker{} }
func (nopSink) Close()                    {}

type nopTracker struct{}

func (nopTracker) Increment(int)     {}
func (nopTracker) SetMessage(string) {}
func (nopTracker) Finish(string)     {}

// StatusTracker is a Tracker that distinguishes rate-limit pauses and
// failures from ordinary status text
type StatusTracker interface {
	Tracker
	Waiting(msg string)
	Fail(msg string)
}

// Waiting reports a rate-limit pause on t
func Waiting(t Tracker, msg string) {
	if st, ok := t.(StatusTracker); ok {
		st.Waiting(msg)
		return
	}
	t.SetMessage(msg)
}

// Fail ends t with a failure
func Fail(t Tracker, msg string) {
	if st, ok := t.(StatusTracker); ok {
		st.Fail(msg)
		return
	}
	t.Finish(msg)
}
