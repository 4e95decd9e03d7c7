package crawl

import (
	"context"

	"chatdump/pkg/models"
	"chatdump/pkg/ratelimit"
)

// Cursor walks a History backward in time, one message per Next call.
// It only knows about counts; date boundaries are the job's concern.
type Cursor struct {
	history  History
	limit    int // 0 means unbounded
	pacer    ratelimit.Limiter
	received int
	before   string
	page     []models.Message
	pos      int
	done     bool

	// OnPage is called after every successful request
	OnPage func(requested, received int, before string)
}

// NewCursor creates a cursor that yields at most limit messages, or the
// whole history when limit is 0. pacer is waited before every request;
// nil means no pacing.
func NewCursor(history History, limit int, pacer ratelimit.Limiter) *Cursor {
	return &Cursor{history: history, limit: limit, pacer: pacer}
}

// Received returns how many messages have been fetched so far.
// Placeholders are not counted.
func (c *Cursor) Received() int {
	return c.received
}

// Next returns the next older message. ok is false once the history or
// the limit is exhausted. A failed request leaves the cursor untouched,
// so calling Next again re-issues the same request.
func (c *Cursor) Next(ctx context.Context) (msg models.Message, ok bool, err error) {
	for {
		for c.pos < len(c.page) {
			msg = c.page[c.pos]
			c.pos++
			if !msg.Placeholder {
				return msg, true, nil
			}
		}
		if c.done {
			return models.Message{}, false, nil
		}
		if err := c.fetch(ctx); err != nil {
			return models.Message{}, false, err
		}
	}
}

// fetch loads the next page. Whether the history is exhausted and where
// the next page starts are decided on the raw page, placeholders included.
func (c *Cursor) fetch(ctx context.Context) error {
	size := c.pageSize()
	if size == 0 {
		c.done = true
		return nil
	}

	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return err
		}
	}

	// the request itself is not interrupted once issued
	page, err := c.history.FetchPage(context.WithoutCancel(ctx), size, c.before)
	if err != nil {
		return err
	}
	if len(page) > size {
		page = page[:size]
	}

	kept := 0
	for _, m := range page {
		if !m.Placeholder {
			kept++
		}
	}
	if c.OnPage != nil {
		c.OnPage(size, kept, c.before)
	}

	c.received += kept
	c.page = page
	c.pos = 0
	if len(page) < size {
		c.done = true
	}
	if len(page) > 0 {
		c.before = page[len(page)-1].ID
	}
	return nil
}

// pageSize returns the size of the next request, 0 once the limit is met
func (c *Cursor) pageSize() int {
	if c.limit <= 0 {
		return PageSize
	}
	return min(max(c.limit-c.received, 0), PageSize)
}
