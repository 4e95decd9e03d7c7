package discord

import (
	"context"
	"net/http"
	"testing"
	"time"

	"chatdump/internal/crawl"
	errs "chatdump/pkg/errors"
	"chatdump/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	pages   [][]Message
	queries []MessageQuery
	err     error
}

func (s *stubLister) GetMessages(ctx context.Context, channelID string, q MessageQuery) ([]Message, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.pages) == 0 {
		return nil, nil
	}
	page := s.pages[0]
	s.pages = s.pages[1:]
	return page, nil
}

var _ crawl.Source = (*Source)(nil)

func TestResolveIsIdentity(t *testing.T) {
	src := NewSource(&stubLister{})

	peer, history, err := src.Resolve(context.Background(), "1120000000000000000")
	require.NoError(t, err)
	assert.Equal(t, models.ResolvedPeer{PeerID: "1120000000000000000", PeerUsername: "1120000000000000000"}, peer)
	assert.NotNil(t, history)
}

func TestFetchPageConvertsMessages(t *testing.T) {
	lister := &stubLister{pages: [][]Message{{
		{ID: "901", Author: User{ID: "7"}, Content: "hello", Timestamp: "2024-05-01T14:00:00.123000+02:00"},
		{ID: "900", Content: "system", Timestamp: "2024-05-01T11:59:00+00:00"},
	}}}
	_, history, err := NewSource(lister).Resolve(context.Background(), "555")
	require.NoError(t, err)

	page, err := history.FetchPage(context.Background(), 2, "902")
	require.NoError(t, err)

	assert.Equal(t, []MessageQuery{{Limit: 2, Before: "902"}}, lister.queries)
	require.Len(t, page, 2)
	assert.Equal(t, models.Message{
		ID:        "901",
		UserID:    "user7",
		Content:   "hello",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 123000000, time.UTC),
	}, page[0])
	assert.Equal(t, models.UnknownSender, page[1].UserID)
}

func TestFetchPageBadTimestamp(t *testing.T) {
	lister := &stubLister{pages: [][]Message{{{ID: "1", Timestamp: "yesterday"}}}}
	_, history, _ := NewSource(lister).Resolve(context.Background(), "555")

	_, err := history.FetchPage(context.Background(), 100, "")
	var dErr *Error
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, ErrorTypeParsing, dErr.Type)
}

func TestFetchPagePassesRateLimit(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"retry_after":0.25}`))
	})
	_, history, _ := NewSource(client).Resolve(context.Background(), "555")

	_, err := history.FetchPage(context.Background(), 100, "")
	rl, ok := errs.AsRateLimit(err)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, rl.RetryAfter)
}
