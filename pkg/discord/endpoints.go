package discord

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// BaseURL is the Discord REST API root
	BaseURL = "https://discord.com/api/v10"

	// MaxMessageLimit is the largest page the messages route returns
	MaxMessageLimit = 100
)

// MessageQuery selects a page of channel messages. At most one of Before,
// After and Around is sent, in that order of preference.
type MessageQuery struct {
	Limit  int
	Before string
	After  string
	Around string
}

// MessagesURL builds channels/{id}/messages
func MessagesURL(base, channelID string, q MessageQuery) string {
	limit := q.Limit
	if limit <= 0 || limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	switch {
	case q.Before != "":
		params.Set("before", q.Before)
	case q.After != "":
		params.Set("after", q.After)
	case q.Around != "":
		params.Set("around", q.Around)
	}

	return fmt.Sprintf("%s/channels/%s/messages?%s", trimBase(base), url.PathEscape(channelID), params.Encode())
}

// UserURL builds users/{id}; "@me" is the authenticated account
func UserURL(base, userID string) string {
	return fmt.Sprintf("%s/users/%s", trimBase(base), userID)
}

// GuildURL builds guilds/{id}
func GuildURL(base, guildID string) string {
	return fmt.Sprintf("%s/guilds/%s", trimBase(base), url.PathEscape(guildID))
}

// GuildChannelsURL builds guilds/{id}/channels
func GuildChannelsURL(base, guildID string) string {
	return fmt.Sprintf("%s/guilds/%s/channels", trimBase(base), url.PathEscape(guildID))
}

// JoinedGuildsURL builds users/@me/guilds
func JoinedGuildsURL(base string) string {
	return trimBase(base) + "/users/@me/guilds"
}

// DMChannelsURL builds users/@me/channels
func DMChannelsURL(base string) string {
	return trimBase(base) + "/users/@me/channels"
}

func trimBase(base string) string {
	if base == "" {
		base = BaseURL
	}
	return strings.TrimRight(base, "/")
}
