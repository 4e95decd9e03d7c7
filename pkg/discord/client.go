package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	errs "chatdump/pkg/errors"
	"chatdump/pkg/logger"
)

// Platform is the name used in logs, metrics and errors
const Platform = "discord"

// ErrorType classifies Discord API failures
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a Discord API error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("discord %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// Options configures a Client
type Options struct {
	BaseURL string
	// Timeout bounds each HTTP request; 0 means none
	Timeout time.Duration
	// Proxy is an optional socks5:// URL
	Proxy   string
	Headers map[string]string
	Logger  logger.Logger
}

// Client talks to the Discord REST API with browser session headers
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a new Discord API client
func NewClient(opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		dial, err := proxyDialer(opts.Proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = nil
		transport.DialContext = dial
	}

	headers := map[string]string{
		"Accept": "*/*",
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		headers: headers,
		baseURL: trimBase(opts.BaseURL),
		logger:  log.WithField("platform", Platform),
	}, nil
}

func proxyDialer(raw string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errs.Validation(raw, "invalid proxy URL: %v", err)
	}
	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, errs.Validation(raw, "unsupported proxy: %v", err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// GetJSON performs a GET request and decodes the JSON response
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := c.checkResponseStatus(resp, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus maps HTTP status codes to errors. A 429 becomes a
// rate-limit signal carrying the server's retry_after.
func (c *Client) checkResponseStatus(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := retryAfter(resp, body)
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status":      resp.StatusCode,
			"url":         resp.Request.URL.String(),
			"retry_after": wait,
		})
		return &errs.RateLimitError{
			Platform:   Platform,
			RetryAfter: wait,
			Err: &Error{
				Type:    ErrorTypeRateLimit,
				Message: "rate limit exceeded",
				Code:    resp.StatusCode,
			},
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &Error{
			Type:    ErrorTypeAuth,
			Message: "authentication failed or access denied",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &Error{
			Type:    ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &Error{
			Type:    ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	default:
		c.logger.ErrorWithFields("unexpected API error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}

// retryAfter prefers the body's retry_after (seconds, fractional) over
// the Retry-After header. Zero means the server gave no hint.
func retryAfter(resp *http.Response, body []byte) time.Duration {
	var rl rateLimitBody
	if err := json.Unmarshal(body, &rl); err == nil && rl.RetryAfter > 0 {
		return time.Duration(rl.RetryAfter * float64(time.Second))
	}
	if h := resp.Header.Get("Retry-After"); h != "" {
		if secs, err := strconv.ParseFloat(h, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return 0
}

// GetMessages fetches one page of a channel's messages, newest first
func (c *Client) GetMessages(ctx context.Context, channelID string, q MessageQuery) ([]Message, error) {
	var messages []Message
	if err := c.GetJSON(ctx, MessagesURL(c.baseURL, channelID, q), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// GetCurrentUser returns the account the headers authenticate
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.GetJSON(ctx, UserURL(c.baseURL, "@me"), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetJoinedGuilds lists the guilds the account is a member of
func (c *Client) GetJoinedGuilds(ctx context.Context) ([]PartialGuild, error) {
	var guilds []PartialGuild
	if err := c.GetJSON(ctx, JoinedGuildsURL(c.baseURL), &guilds); err != nil {
		return nil, err
	}
	return guilds, nil
}

// GetGuildChannels lists a guild's channels
func (c *Client) GetGuildChannels(ctx context.Context, guildID string) ([]Channel, error) {
	var channels []Channel
	if err := c.GetJSON(ctx, GuildChannelsURL(c.baseURL, guildID), &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// GetDMChannels lists the account's direct message channels
func (c *Client) GetDMChannels(ctx context.Context) ([]DMChannel, error) {
	var channels []DMChannel
	if err := c.GetJSON(ctx, DMChannelsURL(c.baseURL), &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// ChannelInfo describes a channel whose history can be dumped
type ChannelInfo struct {
	ID    string
	Name  string
	Guild string
}

// ListChannels returns the account's DM channels followed by every
// readable channel of every joined guild
func (c *Client) ListChannels(ctx context.Context) ([]ChannelInfo, error) {
	dms, err := c.GetDMChannels(ctx)
	if err != nil {
		return nil, err
	}

	var out []ChannelInfo
	for _, dm := range dms {
		names := make([]string, 0, len(dm.Recipients))
		for _, r := range dm.Recipients {
			names = append(names, r.Username)
		}
		out = append(out, ChannelInfo{ID: dm.ID, Name: strings.Join(names, ", ")})
	}

	guilds, err := c.GetJoinedGuilds(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range guilds {
		channels, err := c.GetGuildChannels(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		for _, ch := range channels {
			if !HasHistory(ch.Type) {
				continue
			}
			name := ch.ID
			if ch.Name != nil {
				name = *ch.Name
			}
			out = append(out, ChannelInfo{ID: ch.ID, Name: name, Guild: g.Name})
		}
	}
	return out, nil
}
