package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/svyazapp/backend/pkg/apperr"
	"github.com/svyazapp/backend/pkg/model"
	"github.com/svyazapp/backend/pkg/snowflake"
)

// storeErr classifies a failed cluster round-trip: a deadline hit surfaces
// as DEADLINE_EXCEEDED so callers can distinguish a slow store from a down
// one; everything else is UNAVAILABLE.
func storeErr(err error) *apperr.AppError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, gocql.ErrTimeoutNoResponse) {
		return apperr.Wrap(apperr.CodeDeadlineExceeded, "message store timed out", err)
	}
	return apperr.Unavailable("message store unavailable", err)
}

// ConversationKey derives the partition key for a DM thread. It is symmetric
// in its arguments so both participants read and write the same partition.
func ConversationKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return "dm:" + strings.Join(pair, ":")
}

// Messages persists chat messages. IDs are snowflakes generated at write
// time, so clustering by id descending yields newest-first history.
type Messages struct {
	session *Session
	ids     *snowflake.Node
}

func NewMessages(session *Session, ids *snowflake.Node) *Messages {
	return &Messages{session: session, ids: ids}
}

// InsertMessage durably stores one message and returns the record with its
// generated id and server timestamp. Transient cluster errors surface as
// UNAVAILABLE.
func (m *Messages) InsertMessage(ctx context.Context, senderID, receiverID, content string, kind model.Kind) (model.Message, error) {
	msg := model.Message{
		ID:         m.ids.Generate(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Kind:       kind,
		CreatedAt:  time.Now().UTC(),
	}

	const q = `INSERT INTO messages (conversation, id, sender_id, receiver_id, content, type, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	err := m.session.Query(q,
		ConversationKey(senderID, receiverID), msg.ID,
		msg.SenderID, msg.ReceiverID, msg.Content, string(msg.Kind), msg.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return model.Message{}, storeErr(err)
	}
	return msg, nil
}

// History returns up to limit messages between the two users, newest first.
// A non-zero before id pages further back.
func (m *Messages) History(ctx context.Context, userA, userB string, limit int, before int64) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := `SELECT id, sender_id, receiver_id, content, type, created_at
	      FROM messages WHERE conversation = ?`
	args := []interface{}{ConversationKey(userA, userB)}
	if before > 0 {
		q += ` AND id < ?`
		args = append(args, before)
	}
	q += ` LIMIT ?`
	args = append(args, limit)

	iter := m.session.Query(q, args...).WithContext(ctx).Iter()

	var (
		messages []model.Message
		id       int64
		sender   string
		receiver string
		content  string
		kind     string
		created  time.Time
	)
	for iter.Scan(&id, &sender, &receiver, &content, &kind, &created) {
		messages = append(messages, model.Message{
			ID:         id,
			SenderID:   sender,
			ReceiverID: receiver,
			Content:    content,
			Kind:       model.Kind(kind),
			CreatedAt:  created,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, storeErr(err)
	}
	return messages, nil
}
