package protocol

import (
	"encoding/json"

	"github.com/svyazapp/backend/pkg/apperr"
	"github.com/svyazapp/backend/pkg/model"
)

// MessageFrame is a persisted chat message as delivered to the receiver.
type MessageFrame struct {
	Type string `json:"type"`
	model.Message
}

// AckFrame answers the sender of a chat message with the persisted record.
type AckFrame struct {
	Success bool          `json:"success"`
	Message model.Message `json:"message"`
}

// ErrorFrame rejects one inbound frame without closing the connection.
type ErrorFrame struct {
	Success bool        `json:"success"`
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// OfflineFrame tells a signaling sender that the peer has no live connection.
type OfflineFrame struct {
	Type       string `json:"type"`
	ReceiverID string `json:"receiverId"`
}

// PresenceFrame reports an online/offline transition (broadcast) or answers
// an online_status point query (ReceiverID set, SenderID empty).
type PresenceFrame struct {
	Type       string `json:"type"`
	SenderID   string `json:"senderId,omitempty"`
	ReceiverID string `json:"receiverId,omitempty"`
	IsOnline   bool   `json:"isOnline"`
}

func NewMessageFrame(msg model.Message) []byte {
	return mustMarshal(MessageFrame{Type: TypeMessage, Message: msg})
}

func NewAckFrame(msg model.Message) []byte {
	return mustMarshal(AckFrame{Success: true, Message: msg})
}

// NewErrorFrame renders err as a rejection frame. Non-AppError causes are
// reported as UNKNOWN with a generic message so internals never leak.
func NewErrorFrame(err error) []byte {
	code := apperr.CodeOf(err)
	msg := "failed to process frame"
	if code != apperr.CodeUnknown {
		msg = err.Error()
	}
	return mustMarshal(ErrorFrame{Success: false, Code: code, Message: msg})
}

func NewOfflineFrame(receiverID string) []byte {
	return mustMarshal(OfflineFrame{Type: TypeOffline, ReceiverID: receiverID})
}

func NewPresenceBroadcast(userID string, online bool) []byte {
	return mustMarshal(PresenceFrame{Type: TypeOnlineStatus, SenderID: userID, IsOnline: online})
}

func NewPresenceReply(receiverID string, online bool) []byte {
	return mustMarshal(PresenceFrame{Type: TypeOnlineStatus, ReceiverID: receiverID, IsOnline: online})
}

// mustMarshal is safe here: every frame type above marshals without error.
func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
