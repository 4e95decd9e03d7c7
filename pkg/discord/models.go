package discord

// User is a Discord account as embedded in API responses
type User struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator"`
	GlobalName    *string `json:"global_name"`
	Avatar        *string `json:"avatar"`
}

// PartialGuild is an entry of users/@me/guilds
type PartialGuild struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Icon        *string `json:"icon"`
	Owner       *bool   `json:"owner"`
	Permissions *string `json:"permissions"`
}

// Message is a channel message
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Author    User   `json:"author"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Channel is a guild channel
type Channel struct {
	ID      string  `json:"id"`
	GuildID *string `json:"guild_id"`
	Name    *string `json:"name"`
	Type    int     `json:"type"`
}

// DMChannel is a direct or group message channel
type DMChannel struct {
	ID            string  `json:"id"`
	LastMessageID *string `json:"last_message_id"`
	Recipients    []User  `json:"recipients"`
	Type          int     `json:"type"`
}

// Channel types that carry a readable message history
const (
	ChannelTypeGuildText         = 0
	ChannelTypeDM                = 1
	ChannelTypeGuildVoice        = 2
	ChannelTypeGroupDM           = 3
	ChannelTypeGuildAnnouncement = 5
)

// HasHistory reports whether messages can be listed for a channel type
func HasHistory(channelType int) bool {
	switch channelType {
	case ChannelTypeGuildText, ChannelTypeDM, ChannelTypeGuildVoice, ChannelTypeGroupDM, ChannelTypeGuildAnnouncement:
		return true
	default:
		return false
	}
}

// rateLimitBody is the JSON body of a 429 response
type rateLimitBody struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
	Global     bool    `json:"global"`
}
