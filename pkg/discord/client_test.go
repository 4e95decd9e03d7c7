package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errs "chatdump/pkg/errors"
	"chatdump/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newResponse(req *http.Request, statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
		Request:    req,
	}
}

func newServerClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Options{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
		Headers: map[string]string{"Authorization": "token-123"},
		Logger:  logger.NewTestLogger(),
	})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(Options{Headers: map[string]string{"Authorization": "abc"}})
	require.NoError(t, err)

	assert.Equal(t, BaseURL, client.baseURL)
	assert.Equal(t, "abc", client.headers["Authorization"])
	assert.Equal(t, "*/*", client.headers["Accept"])
}

func TestNewClientProxy(t *testing.T) {
	_, err := NewClient(Options{Proxy: "socks5://127.0.0.1:9050"})
	require.NoError(t, err)

	_, err = NewClient(Options{Proxy: "ftp://127.0.0.1:21"})
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestRequestCarriesSessionHeaders(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "/users/@me", r.URL.Path)
		json.NewEncoder(w).Encode(User{ID: "42", Username: "alice"})
	})

	user, err := client.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestCheckResponseStatus(t *testing.T) {
	client, err := NewClient(Options{Logger: logger.NewTestLogger()})
	require.NoError(t, err)

	tests := []struct {
		name         string
		statusCode   int
		expectedType ErrorType
	}{
		{name: "200 OK", statusCode: http.StatusOK},
		{name: "401 Unauthorized", statusCode: http.StatusUnauthorized, expectedType: ErrorTypeAuth},
		{name: "403 Forbidden", statusCode: http.StatusForbidden, expectedType: ErrorTypeAuth},
		{name: "404 Not Found", statusCode: http.StatusNotFound, expectedType: ErrorTypeNotFound},
		{name: "429 Too Many Requests", statusCode: http.StatusTooManyRequests, expectedType: ErrorTypeRateLimit},
		{name: "500 Internal Server Error", statusCode: http.StatusInternalServerError, expectedType: ErrorTypeServerError},
		{name: "502 Bad Gateway", statusCode: http.StatusBadGateway, expectedType: ErrorTypeServerError},
		{name: "400 Bad Request", statusCode: http.StatusBadRequest, expectedType: ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
			resp := newResponse(req, tt.statusCode, "")

			err := client.checkResponseStatus(resp, nil)
			if tt.expectedType == "" {
				assert.NoError(t, err)
				return
			}

			var dErr *Error
			require.ErrorAs(t, err, &dErr)
			assert.Equal(t, tt.expectedType, dErr.Type)
			assert.Equal(t, tt.statusCode, dErr.Code)
		})
	}
}

func TestRateLimitTranslation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		header   string
		expected time.Duration
	}{
		{name: "body retry_after", body: `{"message":"You are being rate limited.","retry_after":1.5,"global":false}`, expected: 1500 * time.Millisecond},
		{name: "header fallback", body: `not json`, header: "3", expected: 3 * time.Second},
		{name: "body wins over header", body: `{"retry_after":2}`, header: "9", expected: 2 * time.Second},
		{name: "no hint", body: ``, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(tt.body))
			})

			_, err := client.GetMessages(context.Background(), "1", MessageQuery{Limit: 10})

			rl, ok := errs.AsRateLimit(err)
			require.True(t, ok)
			assert.Equal(t, Platform, rl.Platform)
			assert.Equal(t, tt.expected, rl.RetryAfter)

			var dErr *Error
			require.ErrorAs(t, err, &dErr)
			assert.Equal(t, ErrorTypeRateLimit, dErr.Type)
		})
	}
}

func TestGetJSON(t *testing.T) {
	type payload struct {
		Value int `json:"value"`
	}

	t.Run("invalid JSON", func(t *testing.T) {
		tl := logger.NewTestLogger()
		client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>login</html>"))
		})
		client.logger = tl

		var out payload
		err := client.GetJSON(context.Background(), client.baseURL+"/x", &out)

		var dErr *Error
		require.ErrorAs(t, err, &dErr)
		assert.Equal(t, ErrorTypeParsing, dErr.Type)
		assert.True(t, tl.HasMessage("failed to parse JSON response"))
	})

	t.Run("network error", func(t *testing.T) {
		client, err := NewClient(Options{Logger: logger.NewTestLogger()})
		require.NoError(t, err)
		client.httpClient = &http.Client{Transport: &mockRoundTripper{
			handler: func(req *http.Request) (*http.Response, error) {
				return nil, io.ErrUnexpectedEOF
			},
		}}

		var out payload
		err = client.GetJSON(context.Background(), "http://example.com", &out)

		var dErr *Error
		require.ErrorAs(t, err, &dErr)
		assert.Equal(t, ErrorTypeNetwork, dErr.Type)
	})

	t.Run("cancelled context", func(t *testing.T) {
		client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"value":1}`))
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var out payload
		assert.Error(t, client.GetJSON(ctx, client.baseURL+"/x", &out))
	})
}

func TestGetMessagesQuery(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/555/messages", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "900", r.URL.Query().Get("before"))
		w.Write([]byte(`[{"id":"899","channel_id":"555","author":{"id":"7","username":"bob"},"content":"hi","timestamp":"2024-05-01T12:00:00.000000+00:00"}]`))
	})

	page, err := client.GetMessages(context.Background(), "555", MessageQuery{Limit: 50, Before: "900"})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bob", page[0].Author.Username)
}

func TestGuildAndDMListing(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/@me/guilds":
			w.Write([]byte(`[{"id":"10","name":"gophers"}]`))
		case "/guilds/10/channels":
			w.Write([]byte(`[{"id":"11","name":"general","type":0},{"id":"12","name":"voice","type":2},{"id":"13","name":"category","type":4}]`))
		case "/users/@me/channels":
			w.Write([]byte(`[{"id":"20","type":1,"recipients":[{"id":"7","username":"bob"}]}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	guilds, err := client.GetJoinedGuilds(ctx)
	require.NoError(t, err)
	require.Len(t, guilds, 1)

	channels, err := client.GetGuildChannels(ctx, guilds[0].ID)
	require.NoError(t, err)
	assert.Len(t, channels, 3)
	assert.False(t, HasHistory(channels[2].Type))

	dms, err := client.GetDMChannels(ctx)
	require.NoError(t, err)
	require.Len(t, dms, 1)
	assert.Equal(t, "bob", dms[0].Recipients[0].Username)

	all, err := client.ListChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ChannelInfo{
		{ID: "20", Name: "bob"},
		{ID: "11", Name: "general", Guild: "gophers"},
		{ID: "12", Name: "voice", Guild: "gophers"},
	}, all)
}
