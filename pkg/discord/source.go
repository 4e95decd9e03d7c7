package discord

import (
	"context"
	"fmt"
	"time"

	"chatdump/internal/crawl"
	"chatdump/pkg/models"
)

// MessageLister is the part of Client a Source needs
type MessageLister interface {
	GetMessages(ctx context.Context, channelID string, q MessageQuery) ([]Message, error)
}

// Source resolves Discord channel ids. Channels have no username, so a
// target resolves to itself without a remote call.
type Source struct {
	client MessageLister
}

// NewSource creates a crawl source backed by client
func NewSource(client MessageLister) *Source {
	return &Source{client: client}
}

// Resolve implements crawl.Source
func (s *Source) Resolve(ctx context.Context, target string) (models.ResolvedPeer, crawl.History, error) {
	peer := models.NewResolvedPeer(target, target)
	return peer, &channelHistory{client: s.client, channelID: target}, nil
}

type channelHistory struct {
	client    MessageLister
	channelID string
}

func (h *channelHistory) FetchPage(ctx context.Context, limit int, before string) ([]models.Message, error) {
	page, err := h.client.GetMessages(ctx, h.channelID, MessageQuery{Limit: limit, Before: before})
	if err != nil {
		return nil, err
	}

	out := make([]models.Message, 0, len(page))
	for _, m := range page {
		msg, err := convertMessage(m)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func convertMessage(m Message) (models.Message, error) {
	ts, err := time.Parse(time.RFC3339Nano, m.Timestamp)
	if err != nil {
		return models.Message{}, &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("message %s has invalid timestamp %q", m.ID, m.Timestamp),
		}
	}

	userID := models.UnknownSender
	if m.Author.ID != "" {
		userID = "user" + m.Author.ID
	}

	return models.Message{
		ID:        m.ID,
		UserID:    userID,
		Content:   m.Content,
		Timestamp: ts.UTC(),
	}, nil
}
