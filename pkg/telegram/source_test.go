package telegram

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"chatdump/internal/crawl"
	errs "chatdump/pkg/errors"
	"chatdump/pkg/logger"
	"chatdump/pkg/models"
	"chatdump/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned entities and a newest-first history per peer
type fakeAPI struct {
	mu       sync.Mutex
	resolved map[string]*tg.ContactsResolvedPeer
	history  map[int64][]tg.MessageClass
	// errs are returned once each, in order, before normal answers
	errs     []error
	requests []*tg.MessagesGetHistoryRequest
	resolves int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		resolved: make(map[string]*tg.ContactsResolvedPeer),
		history:  make(map[int64][]tg.MessageClass),
	}
}

func (f *fakeAPI) addUser(id int64, username string, messages []tg.MessageClass) {
	f.resolved[username] = &tg.ContactsResolvedPeer{
		Peer:  &tg.PeerUser{UserID: id},
		Users: []tg.UserClass{&tg.User{ID: id, AccessHash: id * 10, Username: username}},
	}
	f.history[id] = messages
}

func (f *fakeAPI) popErr() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeAPI) ContactsResolveUsername(ctx context.Context, username string) (*tg.ContactsResolvedPeer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves++
	if err := f.popErr(); err != nil {
		return nil, err
	}
	res, ok := f.resolved[username]
	if !ok {
		return nil, tgerr.New(400, "USERNAME_NOT_OCCUPIED")
	}
	return res, nil
}

func (f *fakeAPI) MessagesGetHistory(ctx context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err := f.popErr(); err != nil {
		return nil, err
	}

	var id int64
	switch p := req.Peer.(type) {
	case *tg.InputPeerUser:
		id = p.UserID
	case *tg.InputPeerChannel:
		id = p.ChannelID
	}

	var page []tg.MessageClass
	for _, m := range f.history[id] {
		if req.OffsetID != 0 && m.GetID() >= req.OffsetID {
			continue
		}
		if len(page) == req.Limit {
			break
		}
		page = append(page, m)
	}
	return &tg.MessagesMessagesSlice{Messages: page, Count: len(f.history[id])}, nil
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// chat builds n incoming messages from peer, ids n..1, one minute apart
func chat(peer int64, n int) []tg.MessageClass {
	out := make([]tg.MessageClass, 0, n)
	for i := n; i >= 1; i-- {
		out = append(out, &tg.Message{
			ID:      i,
			PeerID:  &tg.PeerUser{UserID: peer},
			Date:    int(baseTime.Add(time.Duration(i) * time.Minute).Unix()),
			Message: "hello",
		})
	}
	return out
}

var _ crawl.Source = (*Source)(nil)

func TestResolveUser(t *testing.T) {
	api := newFakeAPI()
	api.addUser(42, "alice", nil)

	peer, history, err := NewSource(api, 0).Resolve(context.Background(), "@alice")
	require.NoError(t, err)
	assert.Equal(t, models.ResolvedPeer{PeerID: "42", PeerUsername: "alice"}, peer)
	require.IsType(t, &peerHistory{}, history)
	assert.Equal(t, &tg.InputPeerUser{UserID: 42, AccessHash: 420}, history.(*peerHistory).peer)
}

func TestResolveIsIdempotent(t *testing.T) {
	api := newFakeAPI()
	api.addUser(42, "alice", nil)
	src := NewSource(api, 0)

	first, _, err := src.Resolve(context.Background(), "alice")
	require.NoError(t, err)
	second, _, err := src.Resolve(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, api.resolves)
}

func TestResolveChannelAndPrivateUser(t *testing.T) {
	api := newFakeAPI()
	api.resolved["gonews"] = &tg.ContactsResolvedPeer{
		Peer:  &tg.PeerChannel{ChannelID: 77},
		Chats: []tg.ChatClass{&tg.Channel{ID: 77, AccessHash: 5, Username: "gonews"}},
	}
	api.resolved["ghost"] = &tg.ContactsResolvedPeer{
		Peer:  &tg.PeerUser{UserID: 9},
		Users: []tg.UserClass{&tg.User{ID: 9, AccessHash: 1}},
	}
	src := NewSource(api, 0)

	peer, history, err := src.Resolve(context.Background(), "gonews")
	require.NoError(t, err)
	assert.Equal(t, models.ResolvedPeer{PeerID: "77", PeerUsername: "gonews"}, peer)
	assert.Equal(t, &tg.InputPeerChannel{ChannelID: 77, AccessHash: 5}, history.(*peerHistory).peer)

	peer, _, err = src.Resolve(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, models.PrivateUsername, peer.PeerUsername)
}

func TestResolveErrors(t *testing.T) {
	t.Run("unknown username", func(t *testing.T) {
		_, _, err := NewSource(newFakeAPI(), 0).Resolve(context.Background(), "nobody")
		assert.ErrorIs(t, err, errs.ErrPeerNotFound)
	})

	t.Run("entity missing from response", func(t *testing.T) {
		api := newFakeAPI()
		api.resolved["odd"] = &tg.ContactsResolvedPeer{Peer: &tg.PeerUser{UserID: 1}}
		_, _, err := NewSource(api, 0).Resolve(context.Background(), "odd")
		assert.ErrorIs(t, err, errs.ErrPeerNotFound)
	})

	t.Run("flood wait", func(t *testing.T) {
		api := newFakeAPI()
		api.errs = []error{tgerr.New(420, "FLOOD_WAIT_7")}
		_, _, err := NewSource(api, 0).Resolve(context.Background(), "alice")

		rl, ok := errs.AsRateLimit(err)
		require.True(t, ok)
		assert.Equal(t, 7*time.Second, rl.RetryAfter)
		assert.Equal(t, Platform, rl.Platform)
	})

	t.Run("other rpc error", func(t *testing.T) {
		api := newFakeAPI()
		api.errs = []error{tgerr.New(401, "AUTH_KEY_UNREGISTERED")}
		_, _, err := NewSource(api, 0).Resolve(context.Background(), "alice")

		_, limited := errs.AsRateLimit(err)
		assert.False(t, limited)
		assert.True(t, tgerr.Is(err, "AUTH_KEY_UNREGISTERED"))
	})
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		limited bool
		wait    time.Duration
	}{
		{name: "nil", err: nil},
		{name: "plain error", err: errors.New("boom")},
		{name: "flood wait", err: tgerr.New(420, "FLOOD_WAIT_30"), limited: true, wait: 30 * time.Second},
		{name: "slow mode", err: tgerr.New(420, "SLOWMODE_WAIT_5"), limited: true, wait: 5 * time.Second},
		{name: "bare 420", err: tgerr.New(420, "FLOOD"), limited: true},
		{name: "bad request", err: tgerr.New(400, "PEER_ID_INVALID")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err)
			rl, limited := errs.AsRateLimit(got)
			assert.Equal(t, tt.limited, limited)
			if limited {
				assert.Equal(t, tt.wait, rl.RetryAfter)
				assert.ErrorIs(t, got, tt.err)
			}
		})
	}
}

func TestFetchPage(t *testing.T) {
	api := newFakeAPI()
	api.addUser(42, "alice", chat(42, 5))
	_, history, err := NewSource(api, 0).Resolve(context.Background(), "alice")
	require.NoError(t, err)

	page, err := history.FetchPage(context.Background(), 2, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "5", page[0].ID)
	assert.Equal(t, "user42", page[0].UserID)
	assert.Equal(t, baseTime.Add(5*time.Minute), page[0].Timestamp)

	page, err = history.FetchPage(context.Background(), 2, "4")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "3", page[0].ID)
	assert.Equal(t, 4, api.requests[1].OffsetID)
	assert.Equal(t, 2, api.requests[1].Limit)

	_, err = history.FetchPage(context.Background(), 2, "abc")
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestSenderRules(t *testing.T) {
	src := NewSource(newFakeAPI(), 1000)
	date := int(baseTime.Unix())

	tests := []struct {
		name     string
		msg      tg.MessageClass
		expected string
		kept     bool
	}{
		{
			name: "group message with from_id",
			msg: func() tg.MessageClass {
				m := &tg.Message{ID: 1, PeerID: &tg.PeerChannel{ChannelID: 5}, Date: date}
				m.SetFromID(&tg.PeerUser{UserID: 7})
				return m
			}(),
			expected: "user7",
			kept:     true,
		},
		{
			name:     "incoming private message",
			msg:      &tg.Message{ID: 2, PeerID: &tg.PeerUser{UserID: 42}, Date: date},
			expected: "user42",
			kept:     true,
		},
		{
			name:     "outgoing private message",
			msg:      &tg.Message{ID: 3, Out: true, PeerID: &tg.PeerUser{UserID: 42}, Date: date},
			expected: "user1000",
			kept:     true,
		},
		{
			name:     "anonymous channel post",
			msg:      &tg.Message{ID: 4, PeerID: &tg.PeerChannel{ChannelID: 5}, Date: date},
			expected: models.UnknownSender,
			kept:     true,
		},
		{
			name:     "service message",
			msg:      &tg.MessageService{ID: 5, PeerID: &tg.PeerUser{UserID: 42}, Date: date, Action: &tg.MessageActionHistoryClear{}},
			expected: "user42",
			kept:     true,
		},
		{
			name: "empty placeholder",
			msg:  &tg.MessageEmpty{ID: 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := src.convert(tt.msg)
			assert.Equal(t, tt.kept, !got.Placeholder)
			if tt.kept {
				assert.Equal(t, tt.expected, got.UserID)
				assert.Equal(t, baseTime, got.Timestamp)
			}
		})
	}
}

func TestEngineOverTelegram(t *testing.T) {
	api := newFakeAPI()
	api.addUser(1, "alice", chat(1, 150))
	api.addUser(2, "bob", chat(2, 30))

	var slept []time.Duration
	cfg := retry.DefaultConfig()
	cfg.Logger = logger.NewNopLogger()
	cfg.Sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	engine := crawl.NewEngine(Platform, NewSource(api, 0),
		crawl.WithLogger(logger.NewNopLogger()),
		crawl.WithPageDelay(0),
		crawl.WithRetryConfig(cfg),
	)

	dumps, err := engine.Run(context.Background(), []string{"alice", "bob"}, crawl.Options{
		Limit:    50,
		Boundary: time.Unix(0, 0),
	})
	require.NoError(t, err)
	require.Len(t, dumps, 2)
	assert.Len(t, dumps[0].Chunks, 50)
	assert.Equal(t, "150", dumps[0].Chunks[0].ID)
	assert.Len(t, dumps[1].Chunks, 30)
	assert.Empty(t, slept)
}

func TestEngineCrawlsPastEmptyEntries(t *testing.T) {
	tests := []struct {
		name  string
		empty int
	}{
		{name: "inside a full page", empty: 150},
		{name: "last entry of a full page", empty: 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := chat(1, 200)
			messages[200-tt.empty] = &tg.MessageEmpty{ID: tt.empty}

			api := newFakeAPI()
			api.addUser(1, "alice", messages)

			engine := crawl.NewEngine(Platform, NewSource(api, 0),
				crawl.WithLogger(logger.NewNopLogger()),
				crawl.WithPageDelay(0),
			)
			dumps, err := engine.Run(context.Background(), []string{"alice"}, crawl.Options{})
			require.NoError(t, err)
			require.Len(t, dumps, 1)

			chunks := dumps[0].Chunks
			require.Len(t, chunks, 199)
			assert.Equal(t, "200", chunks[0].ID)
			assert.Equal(t, "1", chunks[198].ID)
			for _, m := range chunks {
				assert.NotEqual(t, strconv.Itoa(tt.empty), m.ID)
			}

			// two full pages, then the empty page that ends the history
			require.Len(t, api.requests, 3)
			assert.Equal(t, 101, api.requests[1].OffsetID)
			assert.Equal(t, 1, api.requests[2].OffsetID)
		})
	}
}

func TestEngineWaitsOutFloodWait(t *testing.T) {
	api := newFakeAPI()
	api.addUser(1, "alice", chat(1, 10))

	var slept []time.Duration
	cfg := retry.DefaultConfig()
	cfg.Logger = logger.NewNopLogger()
	cfg.Sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	engine := crawl.NewEngine(Platform, NewSource(api, 0),
		crawl.WithLogger(logger.NewNopLogger()),
		crawl.WithPageDelay(0),
		crawl.WithRetryConfig(cfg),
	)

	clean, err := engine.Run(context.Background(), []string{"alice"}, crawl.Options{Boundary: time.Unix(0, 0)})
	require.NoError(t, err)

	throttled := &throttledAPI{fakeAPI: api, failAt: 1, err: tgerr.New(420, "FLOOD_WAIT_3")}
	engine = crawl.NewEngine(Platform, NewSource(throttled, 0),
		crawl.WithLogger(logger.NewNopLogger()),
		crawl.WithPageDelay(0),
		crawl.WithRetryConfig(cfg),
	)
	waited, err := engine.Run(context.Background(), []string{"alice"}, crawl.Options{Boundary: time.Unix(0, 0)})
	require.NoError(t, err)

	assert.Equal(t, clean, waited)
	assert.Equal(t, []time.Duration{3 * time.Second}, slept)
}

// throttledAPI fails the failAt-th history request once
type throttledAPI struct {
	*fakeAPI
	calls  int
	failAt int
	err    error
}

func (t *throttledAPI) MessagesGetHistory(ctx context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	t.calls++
	if t.calls == t.failAt {
		return nil, t.err
	}
	return t.fakeAPI.MessagesGetHistory(ctx, req)
}
