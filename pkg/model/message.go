// Package model holds the persisted data shapes shared between the relay,
// the messaging consumer, and the read-side API.
package model

import "time"

// Kind is the content kind of a chat message.
type Kind string

const (
	KindText        Kind = "text"
	KindSticker     Kind = "sticker"
	KindVideo       Kind = "video"
	KindVideoCircle Kind = "video_circle"
	KindVoice       Kind = "voice"
	KindImage       Kind = "image"
)

// ValidKind reports whether k is a recognized message content kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindText, KindSticker, KindVideo, KindVideoCircle, KindVoice, KindImage:
		return true
	}
	return false
}

// Message is one direct message, immutable once written. The ID is a
// snowflake, so ordering by ID matches ordering by CreatedAt.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	Kind       Kind      `json:"messageType"`
	CreatedAt  time.Time `json:"createdAt"`
}
