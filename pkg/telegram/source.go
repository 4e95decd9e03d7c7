package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"chatdump/internal/crawl"
	errs "chatdump/pkg/errors"
	"chatdump/pkg/models"
)

// API is the subset of *tg.Client the crawler calls
type API interface {
	ContactsResolveUsername(ctx context.Context, username string) (*tg.ContactsResolvedPeer, error)
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
}

// Source resolves usernames through contacts.resolveUsername and pages
// history through messages.getHistory
type Source struct {
	api API
	// selfID is used as the sender of outgoing private messages
	selfID int64
}

// NewSource wraps api. selfID may be zero when the account is unknown.
func NewSource(api API, selfID int64) *Source {
	return &Source{api: api, selfID: selfID}
}

// Resolve implements crawl.Source
func (s *Source) Resolve(ctx context.Context, target string) (models.ResolvedPeer, crawl.History, error) {
	username := strings.TrimPrefix(strings.TrimSpace(target), "@")

	res, err := s.api.ContactsResolveUsername(ctx, username)
	if err != nil {
		if isUnknownUsername(err) {
			return models.ResolvedPeer{}, nil, errs.PeerNotFound(target)
		}
		return models.ResolvedPeer{}, nil, translate(err)
	}

	peer, input, ok := lookupPeer(res)
	if !ok {
		return models.ResolvedPeer{}, nil, errs.PeerNotFound(target)
	}

	return peer, &peerHistory{source: s, peer: input}, nil
}

// lookupPeer finds the resolved entity among the returned users and chats
func lookupPeer(res *tg.ContactsResolvedPeer) (models.ResolvedPeer, tg.InputPeerClass, bool) {
	switch p := res.Peer.(type) {
	case *tg.PeerUser:
		for _, u := range res.Users {
			if user, ok := u.(*tg.User); ok && user.ID == p.UserID {
				id := strconv.FormatInt(user.ID, 10)
				return models.NewResolvedPeer(id, user.Username),
					&tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}, true
			}
		}
	case *tg.PeerChannel:
		for _, c := range res.Chats {
			if channel, ok := c.(*tg.Channel); ok && channel.ID == p.ChannelID {
				id := strconv.FormatInt(channel.ID, 10)
				return models.NewResolvedPeer(id, channel.Username),
					&tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash}, true
			}
		}
	case *tg.PeerChat:
		for _, c := range res.Chats {
			if chat, ok := c.(*tg.Chat); ok && chat.ID == p.ChatID {
				id := strconv.FormatInt(chat.ID, 10)
				return models.NewResolvedPeer(id, ""), &tg.InputPeerChat{ChatID: chat.ID}, true
			}
		}
	}
	return models.ResolvedPeer{}, nil, false
}

type peerHistory struct {
	source *Source
	peer   tg.InputPeerClass
}

func (h *peerHistory) FetchPage(ctx context.Context, limit int, before string) ([]models.Message, error) {
	req := &tg.MessagesGetHistoryRequest{
		Peer:  h.peer,
		Limit: limit,
	}
	if before != "" {
		offset, err := strconv.Atoi(before)
		if err != nil {
			return nil, errs.Validation(before, "invalid message id")
		}
		req.OffsetID = offset
	}

	res, err := h.source.api.MessagesGetHistory(ctx, req)
	if err != nil {
		return nil, translate(err)
	}

	var raw []tg.MessageClass
	switch m := res.(type) {
	case *tg.MessagesMessages:
		raw = m.Messages
	case *tg.MessagesMessagesSlice:
		raw = m.Messages
	case *tg.MessagesChannelMessages:
		raw = m.Messages
	}

	out := make([]models.Message, 0, len(raw))
	for _, m := range raw {
		out = append(out, h.source.convert(m))
	}
	return out, nil
}

// convert renders a history entry. Service messages are kept with empty
// content; empty entries become placeholders so the page keeps its length.
func (s *Source) convert(m tg.MessageClass) models.Message {
	switch msg := m.(type) {
	case *tg.Message:
		from, _ := msg.GetFromID()
		return models.Message{
			ID:        strconv.Itoa(msg.ID),
			UserID:    s.sender(from, msg.PeerID, msg.Out),
			Content:   msg.Message,
			Timestamp: time.Unix(int64(msg.Date), 0).UTC(),
		}
	case *tg.MessageService:
		from, _ := msg.GetFromID()
		return models.Message{
			ID:        strconv.Itoa(msg.ID),
			UserID:    s.sender(from, msg.PeerID, msg.Out),
			Timestamp: time.Unix(int64(msg.Date), 0).UTC(),
		}
	default:
		return models.Message{ID: strconv.Itoa(m.GetID()), Placeholder: true}
	}
}

// sender prefers from_id. Private chats omit it, so the peer is the
// sender of incoming messages and the account itself of outgoing ones.
func (s *Source) sender(from, peer tg.PeerClass, out bool) string {
	if id, ok := peerID(from); ok {
		return models.SenderID(id)
	}
	if user, ok := peer.(*tg.PeerUser); ok {
		if !out {
			return models.SenderID(user.UserID)
		}
		if s.selfID != 0 {
			return models.SenderID(s.selfID)
		}
	}
	return models.UnknownSender
}

func peerID(p tg.PeerClass) (int64, bool) {
	switch v := p.(type) {
	case *tg.PeerUser:
		return v.UserID, true
	case *tg.PeerChat:
		return v.ChatID, true
	case *tg.PeerChannel:
		return v.ChannelID, true
	default:
		return 0, false
	}
}
