package models

import (
	"fmt"
	"time"
)

// PrivateUsername stands in for peers that expose no public username.
const PrivateUsername = "PRIVATE_USERNAME"

// UnknownSender is the user_id rendered for messages without a sender.
const UnknownSender = "userXXX"

// ResolvedPeer is the platform-normalized identity of a target.
// It is comparable and safe to use as a map key.
type ResolvedPeer struct {
	PeerID       string `json:"peer_id"`
	PeerUsername string `json:"peer_username"`
}

// NewResolvedPeer creates a peer, substituting PrivateUsername for an empty username.
func NewResolvedPeer(id, username string) ResolvedPeer {
	if username == "" {
		username = PrivateUsername
	}
	return ResolvedPeer{PeerID: id, PeerUsername: username}
}

// Message is a single chat message as stored in archives.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"message"`
	Timestamp time.Time `json:"date"`

	// Placeholder marks a history slot with nothing in it, such as a
	// deleted message. It counts toward a page but is never archived.
	Placeholder bool `json:"-"`
}

// SenderID renders a numeric sender id the way archives store it.
func SenderID(id int64) string {
	return fmt.Sprintf("user%d", id)
}

// DumpedPeer is the crawl result for one peer, newest message first.
type DumpedPeer struct {
	Peer   ResolvedPeer `json:"peer"`
	Chunks []Message    `json:"chunks"`
}

// Direction selects which way a history walk moves in time.
type Direction int

const (
	// Backward walks from the newest message towards older ones.
	Backward Direction = iota
	// Forward walks from old messages towards newer ones.
	Forward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}
