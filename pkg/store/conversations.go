package store

import (
	"context"
	"time"

	"github.com/gocql/gocql"

	"github.com/svyazapp/backend/pkg/apperr"
	"github.com/svyazapp/backend/pkg/model"
)

// Conversations maintains the per-user DM summaries and unread counters.
// Writes come from the messaging consumer; reads from the API service.
type Conversations struct {
	session *Session
}

func NewConversations(session *Session) *Conversations {
	return &Conversations{session: session}
}

// Touch upserts the summary row for both participants and bumps the
// receiver's unread counter.
func (c *Conversations) Touch(ctx context.Context, senderID, receiverID string, at time.Time) error {
	const upsert = `INSERT INTO user_conversations (user_id, other_user_id, last_updated) VALUES (?, ?, ?)`
	if err := c.session.Query(upsert, senderID, receiverID, at).WithContext(ctx).Exec(); err != nil {
		return apperr.Unavailable("conversation store unavailable", err)
	}
	if err := c.session.Query(upsert, receiverID, senderID, at).WithContext(ctx).Exec(); err != nil {
		return apperr.Unavailable("conversation store unavailable", err)
	}

	const bump = `UPDATE conversation_counters SET unread_count = unread_count + 1
	              WHERE user_id = ? AND other_user_id = ?`
	if err := c.session.Query(bump, receiverID, senderID).WithContext(ctx).Exec(); err != nil {
		return apperr.Unavailable("conversation store unavailable", err)
	}
	return nil
}

// List returns the user's conversation summaries with unread counts.
func (c *Conversations) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	iter := c.session.Query(
		`SELECT other_user_id, last_updated FROM user_conversations WHERE user_id = ?`, userID,
	).WithContext(ctx).Iter()

	var (
		convs   []model.Conversation
		otherID string
		updated time.Time
	)
	for iter.Scan(&otherID, &updated) {
		convs = append(convs, model.Conversation{
			UserID:      userID,
			OtherUserID: otherID,
			LastUpdated: updated,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, apperr.Unavailable("conversation store unavailable", err)
	}

	for i := range convs {
		var unread int64
		err := c.session.Query(
			`SELECT unread_count FROM conversation_counters WHERE user_id = ? AND other_user_id = ?`,
			userID, convs[i].OtherUserID,
		).WithContext(ctx).Scan(&unread)
		if err != nil {
			// Counter rows appear lazily; absence means zero unread.
			continue
		}
		convs[i].UnreadCount = unread
	}
	return convs, nil
}

// MarkRead resets the unread counter for one conversation by decrementing it
// to zero (Cassandra counters cannot be set directly).
func (c *Conversations) MarkRead(ctx context.Context, userID, otherUserID string) error {
	var unread int64
	err := c.session.Query(
		`SELECT unread_count FROM conversation_counters WHERE user_id = ? AND other_user_id = ?`,
		userID, otherUserID,
	).WithContext(ctx).Scan(&unread)
	if err == gocql.ErrNotFound {
		// No counter row means nothing to reset.
		return nil
	}
	if err != nil {
		return apperr.Unavailable("conversation store unavailable", err)
	}
	if unread == 0 {
		return nil
	}

	err = c.session.Query(
		`UPDATE conversation_counters SET unread_count = unread_count - ? WHERE user_id = ? AND other_user_id = ?`,
		unread, userID, otherUserID,
	).WithContext(ctx).Exec()
	if err != nil {
		return apperr.Unavailable("conversation store unavailable", err)
	}
	return nil
}
