package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svyazapp/backend/pkg/apperr"
	"github.com/svyazapp/backend/pkg/model"
)

const testMaxFrame = 10 * 1024

func TestParse_ChatFrame(t *testing.T) {
	data := []byte(`{"type":"message","senderId":"1","receiverId":"2","content":"hi","messageType":"text"}`)

	env, err := Parse(data, testMaxFrame)
	require.NoError(t, err)
	assert.Equal(t, TypeMessage, env.Type)
	assert.Equal(t, "1", env.SenderID)
	assert.Equal(t, "2", env.ReceiverID)
	assert.Equal(t, "hi", env.Content)
	assert.Equal(t, model.KindText, env.Kind)
	assert.JSONEq(t, string(data), string(env.Raw))
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"type":`), testMaxFrame)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestParse_MissingType(t *testing.T) {
	_, err := Parse([]byte(`{"senderId":"1"}`), testMaxFrame)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestParse_Oversized(t *testing.T) {
	big := `{"type":"message","content":"` + strings.Repeat("x", testMaxFrame) + `"}`
	_, err := Parse([]byte(big), testMaxFrame)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestIsSignaling(t *testing.T) {
	for _, typ := range []string{TypeOffer, TypeAnswer, TypeICECandidate} {
		env := &Envelope{Type: typ}
		assert.True(t, env.IsSignaling(), typ)
	}
	for _, typ := range []string{TypeMessage, TypeOnlineStatus, "unknown"} {
		env := &Envelope{Type: typ}
		assert.False(t, env.IsSignaling(), typ)
	}
}

func TestValidateChat(t *testing.T) {
	valid := Envelope{
		Type:       TypeMessage,
		SenderID:   "1",
		ReceiverID: "2",
		Content:    "hi",
		Kind:       model.KindText,
	}

	t.Run("ok", func(t *testing.T) {
		env := valid
		require.NoError(t, env.ValidateChat("1"))
	})

	t.Run("missing fields", func(t *testing.T) {
		env := valid
		env.Content = ""
		err := env.ValidateChat("1")
		require.Error(t, err)
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	})

	t.Run("unknown kind", func(t *testing.T) {
		env := valid
		env.Kind = "carrier_pigeon"
		err := env.ValidateChat("1")
		require.Error(t, err)
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	})

	t.Run("spoofed sender", func(t *testing.T) {
		env := valid
		env.SenderID = "99"
		err := env.ValidateChat("1")
		require.Error(t, err)
		assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))
	})
}

func TestFrames_Shapes(t *testing.T) {
	msg := model.Message{ID: 42, SenderID: "1", ReceiverID: "2", Content: "hi", Kind: model.KindText}

	t.Run("delivery", func(t *testing.T) {
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(NewMessageFrame(msg), &out))
		assert.Equal(t, "message", out["type"])
		assert.Equal(t, float64(42), out["id"])
		assert.Equal(t, "text", out["messageType"])
	})

	t.Run("ack", func(t *testing.T) {
		var out struct {
			Success bool          `json:"success"`
			Message model.Message `json:"message"`
		}
		require.NoError(t, json.Unmarshal(NewAckFrame(msg), &out))
		assert.True(t, out.Success)
		assert.Equal(t, int64(42), out.Message.ID)
	})

	t.Run("error", func(t *testing.T) {
		var out ErrorFrame
		require.NoError(t, json.Unmarshal(NewErrorFrame(apperr.Forbidden("nope")), &out))
		assert.False(t, out.Success)
		assert.Equal(t, apperr.CodePermissionDenied, out.Code)
	})

	t.Run("offline", func(t *testing.T) {
		var out OfflineFrame
		require.NoError(t, json.Unmarshal(NewOfflineFrame("7"), &out))
		assert.Equal(t, TypeOffline, out.Type)
		assert.Equal(t, "7", out.ReceiverID)
	})

	t.Run("presence broadcast", func(t *testing.T) {
		var out PresenceFrame
		require.NoError(t, json.Unmarshal(NewPresenceBroadcast("3", true), &out))
		assert.Equal(t, TypeOnlineStatus, out.Type)
		assert.Equal(t, "3", out.SenderID)
		assert.True(t, out.IsOnline)
	})
}
