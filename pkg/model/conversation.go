package model

import "time"

// Conversation summarizes one DM thread from a user's point of view. Rows are
// maintained by the messaging consumer, not by the relay.
type Conversation struct {
	UserID      string    `json:"user_id"`
	OtherUserID string    `json:"other_user_id"`
	LastUpdated time.Time `json:"last_updated"`
	UnreadCount int64     `json:"unread_count"`
}
