// Package protocol defines the JSON frames exchanged over the real-time
// connection. Every inbound frame carries a "type" discriminator; outbound
// frames are either typed events (message, offline, online_status) or
// result frames ({"success":...}) answering a specific inbound frame.
package protocol

import (
	"encoding/json"

	"github.com/svyazapp/backend/pkg/apperr"
	"github.com/svyazapp/backend/pkg/model"
)

// Client -> server frame types.
const (
	TypeMessage      = "message"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice_candidate"
	TypeOnlineStatus = "online_status"
)

// Server -> client frame types (TypeMessage and TypeOnlineStatus flow both
// directions).
const (
	TypeOffline = "offline"
)

// Envelope is the parsed form of one inbound frame. Raw retains the full
// frame bytes so signaling frames can be forwarded verbatim.
type Envelope struct {
	Type       string     `json:"type"`
	SenderID   string     `json:"senderId"`
	ReceiverID string     `json:"receiverId"`
	Content    string     `json:"content"`
	Kind       model.Kind `json:"messageType"`

	Raw json.RawMessage `json:"-"`
}

// Parse decodes one frame. It rejects frames over maxSize, malformed JSON,
// and frames without a type discriminator.
func Parse(data []byte, maxSize int64) (*Envelope, error) {
	if int64(len(data)) > maxSize {
		return nil, apperr.InvalidArg("frame too large")
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidArgument, "malformed frame", err)
	}
	if env.Type == "" {
		return nil, apperr.InvalidArg("missing frame type")
	}

	env.Raw = make(json.RawMessage, len(data))
	copy(env.Raw, data)
	return &env, nil
}

// IsSignaling reports whether the envelope is a WebRTC negotiation frame,
// forwarded without persistence.
func (e *Envelope) IsSignaling() bool {
	switch e.Type {
	case TypeOffer, TypeAnswer, TypeICECandidate:
		return true
	}
	return false
}

// ValidateChat checks a message-type envelope against the authenticated user.
// The sender identity is never trusted from the payload alone.
func (e *Envelope) ValidateChat(authenticatedUserID string) error {
	if e.SenderID == "" || e.ReceiverID == "" || e.Content == "" || e.Kind == "" {
		return apperr.InvalidArg("missing required fields: senderId, receiverId, content, messageType")
	}
	if !model.ValidKind(e.Kind) {
		return apperr.InvalidArg("unsupported message type")
	}
	if e.SenderID != authenticatedUserID {
		return apperr.Forbidden("insufficient rights to send on behalf of another user")
	}
	return nil
}
